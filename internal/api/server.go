// Package api exposes scoring and saved assessments over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/rxhuang/fp-null-pointer/internal/config"
	"github.com/rxhuang/fp-null-pointer/internal/store"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 10 << 20

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	store     store.Store
	scorer    config.ScorerConfig
	threshold float64
	origins   []string
	limiter   *clientLimiter
}

// New creates a Server. st may be nil, in which case run endpoints and
// save requests answer 503.
func New(st store.Store, cfg *config.Config) *Server {
	return &Server{
		store:     st,
		scorer:    cfg.Scorer,
		threshold: cfg.Ingest.DetectionThreshold,
		origins:   cfg.Server.AllowedOrigins,
		limiter:   newClientLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst),
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)

	r.Route("/v1/assessments", func(r chi.Router) {
		r.Use(s.limiter.middleware)

		r.Post("/", s.assess)
		r.Post("/whatif", s.whatIf)
		r.Get("/", s.listRuns)
		r.Get("/{id}", s.getRun)
		r.Get("/{id}/overlay", s.getOverlay)
	})

	return r
}

// requestLogger echoes the request id and logs each request at info once it
// completes.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(middleware.RequestIDHeader, middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		zap.L().Info("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
