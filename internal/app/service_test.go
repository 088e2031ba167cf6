package app

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/filmatlas/moviemeta/internal/catalog"
	"github.com/filmatlas/moviemeta/internal/config"
	"github.com/filmatlas/moviemeta/internal/fetch"
)

// routedGetter dispatches canned responses by URL substring, emulating the
// catalog's suggestion endpoint and detail pages.
type routedGetter struct {
	json    map[string]string
	text    map[string]string
	raw     map[string][]byte
	lastURL string
}

func (g *routedGetter) JSON(_ context.Context, rawURL string, _ fetch.Options, out any) error {
	g.lastURL = rawURL
	for key, payload := range g.json {
		if strings.Contains(rawURL, key) {
			return json.Unmarshal([]byte(payload), out)
		}
	}
	return catalog.NewError(catalog.KindNetwork, "fetch json", nil)
}

func (g *routedGetter) Text(_ context.Context, rawURL string, _ fetch.Options) (string, error) {
	g.lastURL = rawURL
	for key, payload := range g.text {
		if strings.Contains(rawURL, key) {
			return payload, nil
		}
	}
	return "", catalog.NewError(catalog.KindNetwork, "fetch", nil)
}

func (g *routedGetter) Fetch(_ context.Context, rawURL string, _ fetch.Options) ([]byte, error) {
	g.lastURL = rawURL
	for key, payload := range g.raw {
		if strings.Contains(rawURL, key) {
			return payload, nil
		}
	}
	return nil, catalog.NewError(catalog.KindNetwork, "fetch", nil)
}

const sunDetailHTML = `<html>
<head><title>阳光普照 (豆瓣)</title></head>
<body>
<h1><span property="v:itemreviewed">阳光普照</span><span class="year">(2019)</span></h1>
<strong class="ll rating_num" property="v:average">8.9</strong>
<span property="v:genre">剧情</span>
<a rel="v:starring">陈以文</a>
<div id="mainpic"><img src="//img2.doubanio.com/p2573943239.jpg?size=l"/></div>
<span property="v:summary">阿文是一名驾训班教练，生活的重担让这个家庭摇摇欲坠。</span>
</body>
</html>`

func newTestService(g Getter) *Service {
	cfg, _ := config.Load("")
	return NewWithGetter(g, cfg, zap.NewNop())
}

func TestService_EndToEnd(t *testing.T) {
	t.Parallel()
	g := &routedGetter{
		json: map[string]string{
			"subject_suggest": `[{"title":"阳光普照","url":"/subject/30329536/"}]`,
		},
		text: map[string]string{
			"/subject/30329536/": sunDetailHTML,
		},
	}
	svc := newTestService(g)

	rec, err := svc.Resolve(context.Background(), "阳光普照")
	require.NoError(t, err)
	assert.Equal(t, "阳光普照", rec.Title)
	assert.Equal(t, "2019", rec.Year)
	assert.Equal(t, "8.9", rec.Rating)
	assert.Equal(t, "https://img2.doubanio.com/p2573943239.jpg", rec.Poster)
}

func TestService_ResolveNoResults(t *testing.T) {
	t.Parallel()
	g := &routedGetter{
		json: map[string]string{"subject_suggest": `[]`},
		text: map[string]string{"/search?": `<p>nothing</p>`},
	}
	svc := newTestService(g)

	_, err := svc.Resolve(context.Background(), "a movie that does not exist")
	require.Error(t, err)
	assert.True(t, catalog.IsNoResults(err))
}

func TestService_ResolveEmptyQuery(t *testing.T) {
	t.Parallel()
	svc := newTestService(&routedGetter{})
	_, err := svc.Resolve(context.Background(), "  ")
	require.Error(t, err)
	assert.True(t, catalog.IsInvalidArgs(err))
}

func TestService_FetchDetailEmptyURL(t *testing.T) {
	t.Parallel()
	svc := newTestService(&routedGetter{})
	_, err := svc.FetchDetail(context.Background(), "")
	require.Error(t, err)
	assert.True(t, catalog.IsInvalidArgs(err))
}

func TestService_FetchDetailParseFailure(t *testing.T) {
	t.Parallel()
	g := &routedGetter{
		text: map[string]string{"/subject/1/": `<html><body><p>markup with no title</p></body></html>`},
	}
	svc := newTestService(g)

	_, err := svc.FetchDetail(context.Background(), "https://movie.douban.com/subject/1/")
	require.Error(t, err)
	assert.True(t, catalog.IsParse(err))
}

func TestService_SubjectURL(t *testing.T) {
	t.Parallel()
	svc := newTestService(&routedGetter{})
	assert.Equal(t, "https://movie.douban.com/subject/30329536/", svc.SubjectURL("30329536"))
}

func TestService_FetchRaw(t *testing.T) {
	t.Parallel()
	g := &routedGetter{raw: map[string][]byte{"poster.jpg": []byte{0xFF, 0xD8}}}
	svc := newTestService(g)

	body, err := svc.FetchRaw(context.Background(), "https://img2.doubanio.com/poster.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8}, body)

	_, err = svc.FetchRaw(context.Background(), "")
	assert.True(t, catalog.IsInvalidArgs(err))
}
