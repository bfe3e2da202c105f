package server

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/lakshaymaurya-felt/winsweep/internal/config"
	"github.com/lakshaymaurya-felt/winsweep/internal/engine"
	"github.com/lakshaymaurya-felt/winsweep/internal/logger"
	"github.com/lakshaymaurya-felt/winsweep/internal/metrics"
	"github.com/lakshaymaurya-felt/winsweep/internal/stats"
)

// csrfHeader carries the per-process token on state-changing requests.
const csrfHeader = "X-CSRF-Token"

// fastModeNote is appended to real fast-mode run responses.
const fastModeNote = "Byte counts for directories are approximate (fast mode). Use exact_stats for precise totals."

// Runner is the engine surface the front end drives.
type Runner interface {
	Run(cfg config.RunConfig, ov config.Overrides) stats.Summary
	Preview(cfg config.RunConfig, ov config.Overrides) engine.Preview
}

// BuildInfo is reported by the health endpoint.
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Handler serves the API routes. Authorization happens here, before the
// engine is called; the engine assumes its caller is authorized.
type Handler struct {
	runner   Runner
	base     config.RunConfig
	elevated bool
	build    BuildInfo
	metrics  *metrics.Metrics
	timeout  time.Duration

	csrfToken string
	started   time.Time
	running   atomic.Bool
}

// NewHandler creates a handler with a fresh random CSRF token. base is the
// loaded configuration each run starts from. The run timeout is taken from
// the Config passed to New.
func NewHandler(runner Runner, base config.RunConfig, elevated bool, build BuildInfo, m *metrics.Metrics) (*Handler, error) {
	token, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSRF token: %w", err)
	}
	return &Handler{
		runner:    runner,
		base:      base,
		elevated:  elevated,
		build:     build,
		metrics:   m,
		timeout:   DefaultRunTimeout,
		csrfToken: token,
		started:   time.Now(),
	}, nil
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// ─── Wire Types ──────────────────────────────────────────────────────────────

// RunRequest is the POST /api/run body.
type RunRequest struct {
	DryRun           bool `json:"dry_run"`
	Verbose          bool `json:"verbose"`
	Quiet            bool `json:"quiet"`
	ExactStats       bool `json:"exact_stats"`
	AllowSystemClean bool `json:"allow_system_clean"`
	Prefetch         bool `json:"prefetch"`
	MaxParallelism   int  `json:"max_parallelism,omitempty"`
}

// RunResponse is the POST /api/run result.
type RunResponse struct {
	OK bool `json:"ok"`
	stats.Summary
	BytesFreedHuman string `json:"bytes_freed_human"`
	Message         string `json:"message"`
	Note            string `json:"note,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// ─── Handlers ────────────────────────────────────────────────────────────────

// Health handles GET /api/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"version":    h.build.Version,
		"commit":     h.build.Commit,
		"date":       h.build.Date,
		"uptime_sec": int64(time.Since(h.started).Seconds()),
		"running":    h.running.Load(),
	})
}

// CSRF handles GET /api/csrf.
func (h *Handler) CSRF(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"token": h.csrfToken})
}

// Preview handles GET /api/preview. Query parameter allow_system=1 widens
// the preview to system-wide roots.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	ov := config.OverridesFromEnv(h.elevated)
	if config.IsTruthy(r.URL.Query().Get("allow_system")) && !config.EnvTruthy(config.EnvForceNoSystem) {
		ov.AllowSystem = true
	}
	writeJSON(w, http.StatusOK, h.runner.Preview(h.base, ov))
}

func (h *Handler) requireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(csrfHeader)
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.csrfToken)) != 1 {
			writeError(w, http.StatusForbidden, "missing or invalid CSRF token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Run handles POST /api/run. Only one run may execute at a time. If the run
// outlives the request timeout the client gets 408 and the run keeps going
// in the background; the next run is accepted once it has finished.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.MaxParallelism < 0 {
		writeError(w, http.StatusBadRequest, "max_parallelism must be >= 0")
		return
	}

	cfg, ov := h.resolve(req)

	if !h.running.CompareAndSwap(false, true) {
		writeError(w, http.StatusConflict, "a run is already in progress")
		return
	}

	done := make(chan stats.Summary, 1)
	go func() {
		finish := h.metrics.Start()
		s := h.runner.Run(cfg, ov)
		finish()
		h.metrics.Observe(s)
		// Must be cleared before the response is sent.
		h.running.Store(false)
		done <- s
	}()

	timer := time.NewTimer(h.timeout)
	defer timer.Stop()

	select {
	case s := <-done:
		writeJSON(w, http.StatusOK, newRunResponse(s))
	case <-timer.C:
		logger.Warn("Run exceeded request timeout; continuing in background", "timeout", h.timeout)
		writeError(w, http.StatusRequestTimeout, fmt.Sprintf("run timed out after %s", h.timeout))
	}
}

// resolve merges the request into the base configuration. Request flags can
// only switch behavior on, never off; the force-no-system variable still
// wins over a request for system-wide cleaning.
func (h *Handler) resolve(req RunRequest) (config.RunConfig, config.Overrides) {
	cfg := h.base
	if req.DryRun {
		cfg.DryRun = true
	}
	if req.Verbose {
		cfg.SetVerbose(true)
	}
	if req.Quiet {
		cfg.SetQuiet(true)
	}
	if req.ExactStats {
		cfg.ExactStats = true
	}

	ov := config.OverridesFromEnv(h.elevated)
	if req.AllowSystemClean && !config.EnvTruthy(config.EnvForceNoSystem) {
		ov.AllowSystem = true
	}
	if req.Prefetch {
		on := true
		ov.Prefetch = &on
	}
	if req.MaxParallelism > 0 {
		ov.MaxParallelism = req.MaxParallelism
	}
	return cfg, ov
}

func newRunResponse(s stats.Summary) RunResponse {
	resp := RunResponse{
		OK:              true,
		Summary:         s,
		BytesFreedHuman: s.HumanBytes(),
		Message:         s.String(),
	}
	if !s.DryRun && !s.ExactStats {
		resp.Note = fastModeNote
	}
	return resp
}
