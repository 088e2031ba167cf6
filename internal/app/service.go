// Package app wires the resolution pipeline: search, best-match selection,
// detail retrieval, parsing, and cleaning.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/filmatlas/moviemeta/internal/catalog"
	"github.com/filmatlas/moviemeta/internal/config"
	"github.com/filmatlas/moviemeta/internal/detail"
	"github.com/filmatlas/moviemeta/internal/fetch"
	"github.com/filmatlas/moviemeta/internal/resolve"
)

// Getter extends the resolver's retrieval capability with raw byte access,
// used by the poster proxy. *fetch.Client satisfies it.
type Getter interface {
	resolve.Getter
	Fetch(ctx context.Context, rawURL string, opts fetch.Options) ([]byte, error)
}

// Service exposes the pipeline operations to the CLI and HTTP layers.
type Service struct {
	getter     Getter
	resolver   *resolve.Resolver
	parser     *detail.Parser
	opts       fetch.Options
	baseOrigin string
	logger     *zap.Logger
}

// New builds a Service from configuration with the real HTTP client.
func New(cfg config.Config, logger *zap.Logger) *Service {
	client := fetch.New(cfg.Catalog.UserAgent, logger)
	return NewWithGetter(client, cfg, logger)
}

// NewWithGetter builds a Service around an arbitrary retrieval capability,
// used by tests to substitute transport doubles.
func NewWithGetter(getter Getter, cfg config.Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := fetch.Options{
		Timeout:     cfg.FetchTimeout(),
		MaxRetries:  cfg.HTTP.MaxRetries,
		BackoffBase: cfg.BackoffBase(),
	}
	return &Service{
		getter:     getter,
		resolver:   resolve.NewResolver(getter, cfg.Catalog.BaseOrigin, cfg.Catalog.SearchOrigin, opts, logger),
		parser:     detail.NewParser(cfg.Catalog.BaseOrigin, cfg.Parser.SummaryMaxLen, cfg.Parser.SummaryMinLen, logger),
		opts:       opts,
		baseOrigin: strings.TrimRight(cfg.Catalog.BaseOrigin, "/"),
		logger:     logger,
	}
}

// SubjectURL builds the detail-page address for a catalog id.
func (s *Service) SubjectURL(id string) string {
	return fmt.Sprintf("%s/subject/%s/", s.baseOrigin, id)
}

// FetchRaw retrieves arbitrary bytes through the retrieval layer; the poster
// proxy uses it so browsers never hit the catalog's image hosts directly.
func (s *Service) FetchRaw(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, catalog.NewError(catalog.KindInvalidArgs, "fetch raw", errors.New("empty url"))
	}
	return s.getter.Fetch(ctx, url, s.opts)
}

// ResolveCandidates turns a free-text query into search candidates. An empty
// result is not an error; see Resolve for the no-results policy.
func (s *Service) ResolveCandidates(ctx context.Context, query string) ([]catalog.Candidate, error) {
	return s.resolver.Search(ctx, query)
}

// FetchDetail retrieves and parses one detail page into a Record.
func (s *Service) FetchDetail(ctx context.Context, url string) (catalog.Record, error) {
	if url == "" {
		return catalog.Record{}, catalog.NewError(catalog.KindInvalidArgs, "fetch detail",
			errors.New("empty url"))
	}
	body, err := s.getter.Text(ctx, url, s.opts)
	if err != nil {
		return catalog.Record{}, err
	}
	rec, err := s.parser.Parse(body)
	if err != nil {
		return catalog.Record{}, err
	}
	return rec, nil
}

// Resolve runs the full pipeline: search, pick the best candidate, fetch
// and parse its detail page.
func (s *Service) Resolve(ctx context.Context, query string) (catalog.Record, error) {
	candidates, err := s.ResolveCandidates(ctx, query)
	if err != nil {
		return catalog.Record{}, err
	}
	best, err := resolve.SelectBest(candidates, query)
	if err != nil {
		return catalog.Record{}, err
	}
	s.logger.Debug("selected candidate",
		zap.String("query", query),
		zap.String("id", best.ID),
		zap.String("title", best.Title),
	)
	return s.FetchDetail(ctx, best.URL)
}
