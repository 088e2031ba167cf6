package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/filmatlas/moviemeta/internal/catalog"
	"github.com/filmatlas/moviemeta/internal/fetch"
)

// fakeGetter serves canned payloads for the suggestion endpoint and the
// search results page.
type fakeGetter struct {
	jsonPayload string
	jsonErr     error
	htmlPayload string
	htmlErr     error

	jsonCalls   int
	htmlCalls   int
	lastJSONURL string
	lastHTMLURL string
}

func (f *fakeGetter) Text(_ context.Context, rawURL string, _ fetch.Options) (string, error) {
	f.htmlCalls++
	f.lastHTMLURL = rawURL
	return f.htmlPayload, f.htmlErr
}

func (f *fakeGetter) JSON(_ context.Context, rawURL string, _ fetch.Options, out any) error {
	f.jsonCalls++
	f.lastJSONURL = rawURL
	if f.jsonErr != nil {
		return f.jsonErr
	}
	return json.Unmarshal([]byte(f.jsonPayload), out)
}

func newTestResolver(g Getter) *Resolver {
	return NewResolver(g, "https://movie.douban.com", "https://www.douban.com", fetch.Options{}, zap.NewNop())
}

func TestSearch_EmptyQuery(t *testing.T) {
	t.Parallel()
	r := newTestResolver(&fakeGetter{})
	_, err := r.Search(context.Background(), "   ")
	require.Error(t, err)
	assert.True(t, catalog.IsInvalidArgs(err))
}

func TestSearch_PrimaryStrategy(t *testing.T) {
	t.Parallel()
	g := &fakeGetter{
		jsonPayload: `[{"title":"阳光普照","url":"/subject/30329536/"}]`,
	}
	r := newTestResolver(g)

	candidates, err := r.Search(context.Background(), "阳光普照")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, catalog.Candidate{
		ID:    "30329536",
		URL:   "https://movie.douban.com/subject/30329536/",
		Title: "阳光普照",
	}, candidates[0])
	assert.Equal(t, 0, g.htmlCalls, "backup strategy must not run when primary yields candidates")
	assert.Contains(t, g.lastJSONURL, "/j/subject_suggest?q=")
}

func TestSearch_QueryNormalization(t *testing.T) {
	t.Parallel()
	g := &fakeGetter{jsonPayload: `[{"title":"A Sun","url":"/subject/1/"}]`}
	r := newTestResolver(g)

	_, err := r.Search(context.Background(), "  a   sun ")
	require.NoError(t, err)
	assert.Contains(t, g.lastJSONURL, "q=a+sun")
}

func TestSearch_SkipsMalformedEntries(t *testing.T) {
	t.Parallel()
	g := &fakeGetter{
		jsonPayload: `[
			{"title":"","url":"/subject/1/"},
			{"title":"no address at all"},
			{"title":"id only","id":"42"},
			{"title":"good","url":"https://movie.douban.com/subject/7/"}
		]`,
	}
	r := newTestResolver(g)

	candidates, err := r.Search(context.Background(), "whatever")
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "42", candidates[0].ID)
	assert.Equal(t, "https://movie.douban.com/subject/42/", candidates[0].URL)
	assert.Equal(t, "7", candidates[1].ID)
}

func TestSearch_BackupActivatesOnEmptyPrimary(t *testing.T) {
	t.Parallel()
	g := &fakeGetter{
		jsonPayload: `[]`,
		htmlPayload: `<div class="result">
			<a href="https://movie.douban.com/subject/30329536/" class="nbg">阳光普照</a>
		</div>`,
	}
	r := newTestResolver(g)

	candidates, err := r.Search(context.Background(), "阳光普照")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "30329536", candidates[0].ID)
	assert.Equal(t, "https://movie.douban.com/subject/30329536/", candidates[0].URL)
	assert.Equal(t, "阳光普照", candidates[0].Title)
	assert.Equal(t, 1, g.htmlCalls)
	assert.Contains(t, g.lastHTMLURL, "cat=1002")
}

func TestSearch_BackupMatchesConfiguredOrigin(t *testing.T) {
	t.Parallel()
	g := &fakeGetter{
		jsonPayload: `[]`,
		htmlPayload: `<a href="https://films.example.test/subject/99/">Mirror</a>
			<a href="https://movie.douban.com/subject/7/">Elsewhere</a>`,
	}
	r := NewResolver(g, "https://films.example.test", "https://search.example.test", fetch.Options{}, zap.NewNop())

	candidates, err := r.Search(context.Background(), "mirror")
	require.NoError(t, err)
	require.Len(t, candidates, 1, "only anchors on the configured host count")
	assert.Equal(t, "99", candidates[0].ID)
	assert.Equal(t, "https://films.example.test/subject/99/", candidates[0].URL)
}

func TestSearch_PrimaryFailureDegradesToBackup(t *testing.T) {
	t.Parallel()
	g := &fakeGetter{
		jsonErr:     catalog.NewError(catalog.KindNetwork, "fetch", errors.New("boom")),
		htmlPayload: `<a href="https://movie.douban.com/subject/5/">Plan B</a>`,
	}
	r := newTestResolver(g)

	candidates, err := r.Search(context.Background(), "plan b")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "5", candidates[0].ID)
}

func TestSearch_BothStrategiesEmpty(t *testing.T) {
	t.Parallel()
	g := &fakeGetter{jsonPayload: `[]`, htmlPayload: `<p>no results</p>`}
	r := newTestResolver(g)

	candidates, err := r.Search(context.Background(), "nothing matches this")
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestSearch_BothStrategiesFail(t *testing.T) {
	t.Parallel()
	g := &fakeGetter{
		jsonErr: errors.New("primary down"),
		htmlErr: errors.New("backup down"),
	}
	r := newTestResolver(g)

	_, err := r.Search(context.Background(), "anything")
	require.Error(t, err)
	assert.True(t, catalog.IsNetwork(err))
}

func TestSearch_BackupFailureAfterEmptyPrimaryIsNotAnError(t *testing.T) {
	t.Parallel()
	g := &fakeGetter{
		jsonPayload: `[]`,
		htmlErr:     errors.New("backup down"),
	}
	r := newTestResolver(g)

	candidates, err := r.Search(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestSearch_PreservesSourceOrder(t *testing.T) {
	t.Parallel()
	g := &fakeGetter{
		jsonPayload: `[
			{"title":"b","url":"/subject/2/"},
			{"title":"a","url":"/subject/1/"},
			{"title":"c","url":"/subject/3/"}
		]`,
	}
	r := newTestResolver(g)

	candidates, err := r.Search(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, candidates, 3)
	assert.Equal(t, []string{"2", "1", "3"}, []string{candidates[0].ID, candidates[1].ID, candidates[2].ID})
}
