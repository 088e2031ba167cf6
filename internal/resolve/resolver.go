// Package resolve turns a free-text movie name into ranked detail-page
// candidates using a primary suggestion endpoint and an HTML search fallback.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/filmatlas/moviemeta/internal/catalog"
	"github.com/filmatlas/moviemeta/internal/fetch"
	"github.com/filmatlas/moviemeta/internal/metrics"
)

// Getter is the retrieval capability the resolver consumes. Satisfied by
// *fetch.Client and by test doubles.
type Getter interface {
	Text(ctx context.Context, rawURL string, opts fetch.Options) (string, error)
	JSON(ctx context.Context, rawURL string, opts fetch.Options, out any) error
}

var subjectIDPattern = regexp.MustCompile(`/subject/(\d+)/`)

// resultsPattern builds the backup-strategy scanner for detail-page anchors
// hosted on the configured catalog origin, capturing (detailURL, id, title)
// triples. Anchors pointing at other hosts never match.
func resultsPattern(baseOrigin string) *regexp.Regexp {
	host := `[^"/]+`
	if u, err := url.Parse(baseOrigin); err == nil && u.Host != "" {
		host = regexp.QuoteMeta(u.Host)
	}
	return regexp.MustCompile(
		`<a[^>]+href="(https?://` + host + `/subject/(\d+)/[^"]*)"[^>]*>\s*([^<][^<]*?)\s*</a>`)
}

// Resolver implements the two-strategy search over the catalog site.
type Resolver struct {
	getter       Getter
	baseOrigin   string
	searchOrigin string
	results      *regexp.Regexp
	opts         fetch.Options
	logger       *zap.Logger
}

// NewResolver builds a Resolver. baseOrigin hosts the suggestion endpoint
// and detail pages; searchOrigin hosts the full-text search fallback.
func NewResolver(getter Getter, baseOrigin, searchOrigin string, opts fetch.Options, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseOrigin = strings.TrimRight(baseOrigin, "/")
	return &Resolver{
		getter:       getter,
		baseOrigin:   baseOrigin,
		searchOrigin: strings.TrimRight(searchOrigin, "/"),
		results:      resultsPattern(baseOrigin),
		opts:         opts,
		logger:       logger,
	}
}

// suggestEntry is one element of the suggestion endpoint's JSON payload.
type suggestEntry struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	ID    string `json:"id"`
	Year  string `json:"year"`
}

// Search resolves a free-text query into candidates. The primary suggestion
// strategy runs first; the HTML fallback runs only when the primary yields
// nothing. A strategy's transport failure degrades it to an empty result;
// only both strategies failing surfaces a network error.
func (r *Resolver) Search(ctx context.Context, query string) ([]catalog.Candidate, error) {
	query = strings.Join(strings.Fields(query), " ")
	if query == "" {
		return nil, catalog.NewError(catalog.KindInvalidArgs, "search", errors.New("empty query"))
	}

	candidates, primaryErr := r.searchSuggest(ctx, query)
	if primaryErr != nil {
		r.logger.Warn("primary search strategy failed", zap.String("query", query), zap.Error(primaryErr))
		metrics.ObserveSearch("suggest", "error")
	} else {
		metrics.ObserveSearch("suggest", outcomeOf(candidates))
	}
	if len(candidates) > 0 {
		return candidates, nil
	}

	candidates, backupErr := r.searchHTML(ctx, query)
	if backupErr != nil {
		r.logger.Warn("backup search strategy failed", zap.String("query", query), zap.Error(backupErr))
		metrics.ObserveSearch("html", "error")
		if primaryErr != nil {
			return nil, catalog.NewError(catalog.KindNetwork, "search", backupErr)
		}
		return nil, nil
	}
	metrics.ObserveSearch("html", outcomeOf(candidates))
	return candidates, nil
}

func outcomeOf(candidates []catalog.Candidate) string {
	if len(candidates) == 0 {
		return "empty"
	}
	return "hit"
}

func (r *Resolver) searchSuggest(ctx context.Context, query string) ([]catalog.Candidate, error) {
	endpoint := fmt.Sprintf("%s/j/subject_suggest?q=%s", r.baseOrigin, url.QueryEscape(query))

	var entries []suggestEntry
	if err := r.getter.JSON(ctx, endpoint, r.opts, &entries); err != nil {
		return nil, err
	}

	candidates := make([]catalog.Candidate, 0, len(entries))
	for _, e := range entries {
		c, ok := r.toCandidate(e)
		if !ok {
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// toCandidate maps a suggestion entry to a Candidate, deriving the numeric
// identifier from the entry URL and falling back to the id field. Entries
// without a title or a usable address are dropped.
func (r *Resolver) toCandidate(e suggestEntry) (catalog.Candidate, bool) {
	title := strings.TrimSpace(e.Title)
	if title == "" {
		return catalog.Candidate{}, false
	}

	id := ""
	if m := subjectIDPattern.FindStringSubmatch(e.URL); m != nil {
		id = m[1]
	} else if strings.TrimSpace(e.ID) != "" {
		id = strings.TrimSpace(e.ID)
	}
	if id == "" {
		return catalog.Candidate{}, false
	}

	detailURL := r.absolutize(e.URL)
	if detailURL == "" {
		detailURL = fmt.Sprintf("%s/subject/%s/", r.baseOrigin, id)
	}
	return catalog.Candidate{ID: id, URL: detailURL, Title: title}, true
}

func (r *Resolver) searchHTML(ctx context.Context, query string) ([]catalog.Candidate, error) {
	endpoint := fmt.Sprintf("%s/search?cat=1002&q=%s", r.searchOrigin, url.QueryEscape(query))

	page, err := r.getter.Text(ctx, endpoint, r.opts)
	if err != nil {
		return nil, err
	}

	matches := r.results.FindAllStringSubmatch(page, -1)
	candidates := make([]catalog.Candidate, 0, len(matches))
	for _, m := range matches {
		detailURL, id, title := m[1], m[2], strings.TrimSpace(m[3])
		if title == "" || id == "" || detailURL == "" {
			continue
		}
		candidates = append(candidates, catalog.Candidate{ID: id, URL: detailURL, Title: title})
	}
	return candidates, nil
}

// absolutize resolves protocol-relative and root-relative addresses against
// the catalog origin. Already-absolute addresses pass through unchanged.
func (r *Resolver) absolutize(raw string) string {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return ""
	case strings.HasPrefix(raw, "//"):
		return "https:" + raw
	case strings.HasPrefix(raw, "/"):
		return r.baseOrigin + raw
	default:
		return raw
	}
}
