// Package api exposes the HTTP interface for the resolver service.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/filmatlas/moviemeta/internal/catalog"
	"github.com/filmatlas/moviemeta/internal/config"
	"github.com/filmatlas/moviemeta/internal/metrics"
)

// Resolver is the pipeline surface the server dispatches to.
type Resolver interface {
	ResolveCandidates(ctx context.Context, query string) ([]catalog.Candidate, error)
	FetchDetail(ctx context.Context, url string) (catalog.Record, error)
	Resolve(ctx context.Context, query string) (catalog.Record, error)
	FetchRaw(ctx context.Context, url string) ([]byte, error)
	SubjectURL(id string) string
}

// Server wires HTTP handlers to the resolution pipeline.
type Server struct {
	router   chi.Router
	resolver Resolver
	cfg      config.Config
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(resolver Resolver, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		resolver: resolver,
		cfg:      cfg,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(time.Duration(cfg.Server.TimeoutSecs) * time.Second))
	r.Use(corsMiddleware(cfg.Server.CORSOrigin))

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/movies", s.resolveMovie)
		r.Get("/movies/{id}", s.movieByID)
		r.Get("/search", s.searchCandidates)
		r.Get("/poster", s.proxyPoster)
	})

	if cfg.Server.StaticDir != "" {
		fs := http.FileServer(http.Dir(cfg.Server.StaticDir))
		r.Handle("/*", fs)
	}

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// resolveMovie runs the full pipeline for ?q=<name> and returns one record.
func (s *Server) resolveMovie(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	rec, err := s.resolver.Resolve(r.Context(), query)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

// movieByID fetches the detail page for a known catalog id.
func (s *Server) movieByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.resolver.FetchDetail(r.Context(), s.resolver.SubjectURL(id))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

// searchCandidates exposes the raw candidate list without detail resolution.
func (s *Server) searchCandidates(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	candidates, err := s.resolver.ResolveCandidates(r.Context(), query)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if candidates == nil {
		candidates = []catalog.Candidate{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"candidates": candidates})
}

// proxyPoster streams a catalog-hosted image so browsers avoid the source
// site's referer checks. Only configured poster hosts are reachable.
func (s *Server) proxyPoster(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		s.writeError(w, http.StatusBadRequest, "missing url parameter")
		return
	}
	u, err := url.Parse(rawURL)
	if err != nil || !s.allowedPosterHost(u.Hostname()) {
		s.writeError(w, http.StatusBadRequest, "url host not allowed")
		return
	}
	body, err := s.resolver.FetchRaw(r.Context(), rawURL)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(body))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := w.Write(body); err != nil {
		s.logger.Error("poster write failed", zap.Error(err))
	}
}

func (s *Server) allowedPosterHost(host string) bool {
	host = strings.ToLower(host)
	for _, allowed := range s.cfg.Server.PosterHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

// statusFor maps pipeline error kinds onto HTTP statuses.
func statusFor(err error) int {
	switch catalog.KindOf(err) {
	case catalog.KindInvalidArgs:
		return http.StatusBadRequest
	case catalog.KindNoResults:
		return http.StatusNotFound
	case catalog.KindParse:
		return http.StatusBadGateway
	case catalog.KindNetwork:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeErr(w http.ResponseWriter, err error) {
	s.writeError(w, statusFor(err), err.Error())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		duration := time.Since(start)
		metrics.ObserveHTTPRequest(r.Method, r.URL.Path, ww.status, duration)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", duration.Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func corsMiddleware(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
