package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filmatlas/moviemeta/internal/catalog"
)

func TestSelectBest_Empty(t *testing.T) {
	t.Parallel()
	_, err := SelectBest(nil, "anything")
	require.Error(t, err)
	assert.True(t, catalog.IsNoResults(err))
}

func TestSelectBest_Singleton(t *testing.T) {
	t.Parallel()
	c := catalog.Candidate{ID: "1", URL: "https://movie.douban.com/subject/1/", Title: "whatever"}
	got, err := SelectBest([]catalog.Candidate{c}, "totally unrelated query")
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestSelectBest_PrefersExactMatch(t *testing.T) {
	t.Parallel()
	candidates := []catalog.Candidate{
		{ID: "1", URL: "u1", Title: "A Sun Also Rises"},
		{ID: "2", URL: "u2", Title: "A Sun"},
		{ID: "3", URL: "u3", Title: "Sunshine"},
	}
	got, err := SelectBest(candidates, "a sun")
	require.NoError(t, err)
	assert.Equal(t, "2", got.ID)
}

func TestSelectBest_CaseAndWhitespaceInvariant(t *testing.T) {
	t.Parallel()
	candidates := []catalog.Candidate{
		{ID: "1", URL: "u1", Title: "other movie"},
		{ID: "2", URL: "u2", Title: "The   MATRIX"},
	}
	got, err := SelectBest(candidates, "the matrix")
	require.NoError(t, err)
	assert.Equal(t, "2", got.ID)
}

func TestSelectBest_StableTieKeepsSourceOrder(t *testing.T) {
	t.Parallel()
	// both titles score identically against the query
	candidates := []catalog.Candidate{
		{ID: "first", URL: "u1", Title: "same title"},
		{ID: "second", URL: "u2", Title: "same title"},
	}
	got, err := SelectBest(candidates, "same title")
	require.NoError(t, err)
	assert.Equal(t, "first", got.ID)
}
