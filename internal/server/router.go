package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lakshaymaurya-felt/winsweep/internal/logger"
)

// NewRouter wires the middleware stack and routes.
//
// Routes:
//   - GET / - browser UI
//   - GET /api/health - liveness and build info
//   - GET /api/csrf - per-process token required by POST /api/run
//   - GET /api/preview - targets a run would consider
//   - POST /api/run - execute one run
//   - GET /metrics - Prometheus exposition
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", h.Index)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/csrf", h.CSRF)
		r.Get("/preview", h.Preview)
		r.With(h.requireCSRF, middleware.AllowContentType("application/json")).Post("/run", h.Run)
	})

	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	return r
}

// requestLogger logs each request at debug level on entry and at info level
// on completion, except health checks.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logArgs := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		}
		if r.URL.Path == "/api/health" || r.URL.Path == "/metrics" {
			logger.Debug("API request completed", logArgs...)
			return
		}
		logger.Info("API request completed", logArgs...)
	})
}
