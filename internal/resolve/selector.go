package resolve

import (
	"errors"
	"sort"

	"github.com/filmatlas/moviemeta/internal/catalog"
)

// SelectBest picks the candidate whose title scores highest against the
// query. Ties keep the original relative order. An empty candidate list is
// a no-results failure.
func SelectBest(candidates []catalog.Candidate, query string) (catalog.Candidate, error) {
	if len(candidates) == 0 {
		return catalog.Candidate{}, catalog.NewError(catalog.KindNoResults, "select best",
			errors.New("no candidates"))
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}

	normQuery := normalize(query)
	scored := make([]scoredCandidate, len(candidates))
	for i, c := range candidates {
		scored[i] = scoredCandidate{
			candidate: c,
			score:     Similarity(normQuery, normalize(c.Title)),
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	return scored[0].candidate, nil
}

type scoredCandidate struct {
	candidate catalog.Candidate
	score     float64
}
