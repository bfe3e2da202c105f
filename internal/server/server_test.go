package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakshaymaurya-felt/winsweep/internal/config"
	"github.com/lakshaymaurya-felt/winsweep/internal/engine"
	"github.com/lakshaymaurya-felt/winsweep/internal/metrics"
	"github.com/lakshaymaurya-felt/winsweep/internal/stats"
)

// fakeRunner returns canned results and records what it was asked to do.
type fakeRunner struct {
	mu      sync.Mutex
	cfgs    []config.RunConfig
	ovs     []config.Overrides
	block   chan struct{}
	summary stats.Summary
}

func (f *fakeRunner) Run(cfg config.RunConfig, ov config.Overrides) stats.Summary {
	f.mu.Lock()
	f.cfgs = append(f.cfgs, cfg)
	f.ovs = append(f.ovs, ov)
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	s := f.summary
	s.DryRun = cfg.DryRun
	s.ExactStats = cfg.ExactStats
	return s
}

func (f *fakeRunner) Preview(cfg config.RunConfig, ov config.Overrides) engine.Preview {
	dirs := []string{"user"}
	if ov.AllowSystem {
		dirs = append(dirs, "system")
	}
	return engine.Preview{TargetDirs: dirs, TargetFiles: []string{}}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		config.EnvAllowSystem, config.EnvForceNoSystem, config.EnvPrefetch, config.EnvMaxParallelism,
		EnvBind, EnvAllowNonLocal, EnvRunTimeout,
	} {
		t.Setenv(k, "")
	}
}

func newTestServer(t *testing.T, runner *fakeRunner, timeout time.Duration) (*httptest.Server, *Handler, *metrics.Metrics) {
	t.Helper()
	clearEnv(t)
	m := metrics.New()
	h, err := NewHandler(runner, config.Default(), false, BuildInfo{Version: "1.2.3"}, m)
	require.NoError(t, err)
	s, err := New(Config{Addr: "127.0.0.1:0", RunTimeout: timeout}, h)
	require.NoError(t, err)
	srv := httptest.NewServer(s.server.Handler)
	t.Cleanup(srv.Close)
	return srv, h, m
}

func postRun(t *testing.T, srv *httptest.Server, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/run", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(csrfHeader, token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func fetchToken(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, err := srv.Client().Get(srv.URL + "/api/csrf")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body["token"], 64)
	return body["token"]
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeRunner{}, time.Second)

	resp, err := srv.Client().Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "1.2.3", body["version"])
	assert.Equal(t, false, body["running"])
}

func TestIndexPage(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeRunner{}, time.Second)

	resp, err := srv.Client().Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))

	csp := resp.Header.Get("Content-Security-Policy")
	assert.Contains(t, csp, "default-src 'self'")
	assert.Contains(t, csp, "connect-src 'self'")
	assert.Contains(t, csp, "frame-ancestors 'none'")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	page := string(body)
	for _, want := range []string{"/api/csrf", "/api/run", "/api/health", "X-CSRF-Token", `id="dry_run"`, `id="exact_stats"`, `id="allow_system_clean"`, `id="prefetch"`, `id="maxp"`} {
		assert.Contains(t, page, want)
	}
}

func TestServerUsesConfigRunTimeout(t *testing.T) {
	clearEnv(t)
	h, err := NewHandler(&fakeRunner{}, config.Default(), false, BuildInfo{}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultRunTimeout, h.timeout)

	_, err = New(Config{Addr: "127.0.0.1:0", RunTimeout: 7 * time.Second}, h)
	require.NoError(t, err)
	assert.Equal(t, 7*time.Second, h.timeout)

	_, err = New(Config{Addr: "127.0.0.1:0"}, h)
	require.NoError(t, err)
	assert.Equal(t, DefaultRunTimeout, h.timeout)
}

func TestRunRequiresCSRFToken(t *testing.T) {
	runner := &fakeRunner{}
	srv, _, _ := newTestServer(t, runner, time.Second)

	assert.Equal(t, http.StatusForbidden, postRun(t, srv, "", `{}`).StatusCode)
	assert.Equal(t, http.StatusForbidden, postRun(t, srv, "deadbeef", `{}`).StatusCode)
	assert.Empty(t, runner.cfgs, "engine never reached")
}

func TestRunSuccess(t *testing.T) {
	runner := &fakeRunner{summary: stats.Summary{
		RunID:       "abc",
		Counters:    stats.Counters{FilesDeleted: 3, DirsDeleted: 2, BytesFreed: 60},
		CleanedDirs: []string{"x"},
	}}
	srv, h, m := newTestServer(t, runner, time.Second)
	token := fetchToken(t, srv)

	resp := postRun(t, srv, token, `{"exact_stats": true, "allow_system_clean": true, "prefetch": true, "max_parallelism": 2}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "abc", body["run_id"])
	assert.EqualValues(t, 3, body["files_deleted"])
	assert.EqualValues(t, 60, body["bytes_freed"])
	assert.Equal(t, "60 B", body["bytes_freed_human"])
	assert.NotContains(t, body, "note", "exact runs carry no approximation note")
	assert.False(t, h.running.Load())

	require.Len(t, runner.cfgs, 1)
	assert.True(t, runner.cfgs[0].ExactStats)
	assert.True(t, runner.ovs[0].AllowSystem)
	require.NotNil(t, runner.ovs[0].Prefetch)
	assert.True(t, *runner.ovs[0].Prefetch)
	assert.Equal(t, 2, runner.ovs[0].MaxParallelism)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("exact")))
	assert.Equal(t, 60.0, testutil.ToFloat64(m.BytesFreed))
}

func TestRunFastModeNote(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeRunner{}, time.Second)
	token := fetchToken(t, srv)

	var body RunResponse
	require.NoError(t, json.NewDecoder(postRun(t, srv, token, `{}`).Body).Decode(&body))
	assert.Equal(t, fastModeNote, body.Note)

	body = RunResponse{}
	require.NoError(t, json.NewDecoder(postRun(t, srv, token, `{"dry_run": true}`).Body).Decode(&body))
	assert.Empty(t, body.Note)
	assert.True(t, body.DryRun)
}

func TestRunForceNoSystemWins(t *testing.T) {
	runner := &fakeRunner{}
	srv, _, _ := newTestServer(t, runner, time.Second)
	t.Setenv(config.EnvForceNoSystem, "1")
	token := fetchToken(t, srv)

	resp := postRun(t, srv, token, `{"allow_system_clean": true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, runner.ovs, 1)
	assert.False(t, runner.ovs[0].AllowSystem)
}

func TestRunRejectsBadBodies(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeRunner{}, time.Second)
	token := fetchToken(t, srv)

	assert.Equal(t, http.StatusBadRequest, postRun(t, srv, token, `{"dry_run":`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, postRun(t, srv, token, `{"max_parallelism": -1}`).StatusCode)

	huge := `{"dry_run": true, "pad": "` + strings.Repeat("x", maxBodyBytes) + `"}`
	assert.Equal(t, http.StatusRequestEntityTooLarge, postRun(t, srv, token, huge).StatusCode)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/run", strings.NewReader(`{}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set(csrfHeader, token)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestRunTimeoutAndConflict(t *testing.T) {
	runner := &fakeRunner{block: make(chan struct{})}
	srv, h, _ := newTestServer(t, runner, 50*time.Millisecond)
	token := fetchToken(t, srv)

	assert.Equal(t, http.StatusRequestTimeout, postRun(t, srv, token, `{}`).StatusCode)
	assert.True(t, h.running.Load(), "the run keeps going after the timeout")
	assert.Equal(t, http.StatusConflict, postRun(t, srv, token, `{}`).StatusCode)

	close(runner.block)
	assert.Eventually(t, func() bool { return !h.running.Load() }, time.Second, 5*time.Millisecond)

	assert.Equal(t, http.StatusOK, postRun(t, srv, token, `{}`).StatusCode)
}

func TestPreviewAllowSystem(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeRunner{}, time.Second)

	get := func(query string) engine.Preview {
		resp, err := srv.Client().Get(srv.URL + "/api/preview" + query)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var p engine.Preview
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
		return p
	}

	assert.Equal(t, []string{"user"}, get("").TargetDirs)
	assert.Equal(t, []string{"user", "system"}, get("?allow_system=1").TargetDirs)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeRunner{}, time.Second)

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCheckBind(t *testing.T) {
	tests := []struct {
		addr     string
		nonLocal bool
		wantErr  bool
	}{
		{"127.0.0.1:7878", false, false},
		{"localhost:80", false, false},
		{"[::1]:7878", false, false},
		{"0.0.0.0:7878", false, true},
		{":7878", false, true},
		{"192.168.1.5:7878", false, true},
		{"0.0.0.0:7878", true, false},
		{"no-port", false, true},
	}
	for _, tt := range tests {
		err := CheckBind(tt.addr, tt.nonLocal)
		if tt.wantErr {
			assert.Error(t, err, tt.addr)
		} else {
			assert.NoError(t, err, tt.addr)
		}
	}
}

func TestConfigFromEnv(t *testing.T) {
	clearEnv(t)
	cfg := ConfigFromEnv()
	assert.Equal(t, DefaultAddr, cfg.Addr)
	assert.Equal(t, DefaultRunTimeout, cfg.RunTimeout)
	assert.False(t, cfg.AllowNonLocal)

	t.Setenv(EnvBind, "0.0.0.0:9000")
	t.Setenv(EnvAllowNonLocal, "true")
	t.Setenv(EnvRunTimeout, "30")
	cfg = ConfigFromEnv()
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
	assert.True(t, cfg.AllowNonLocal)
	assert.Equal(t, 30*time.Second, cfg.RunTimeout)
	assert.Equal(t, 60*time.Second, cfg.WriteTimeout)
}

func TestServerRefusesNonLocalBind(t *testing.T) {
	h, err := NewHandler(&fakeRunner{}, config.Default(), false, BuildInfo{}, nil)
	require.NoError(t, err)

	_, err = New(Config{Addr: "0.0.0.0:0"}, h)
	assert.Error(t, err)
}

func TestServerStartStop(t *testing.T) {
	clearEnv(t)
	h, err := NewHandler(&fakeRunner{}, config.Default(), false, BuildInfo{}, nil)
	require.NoError(t, err)
	s, err := New(Config{Addr: "127.0.0.1:0"}, h)
	require.NoError(t, err)
	require.NoError(t, s.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	resp, err := http.Get("http://" + s.Addr() + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
