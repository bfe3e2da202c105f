package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearOverrideEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvAllowSystem, EnvForceNoSystem, EnvPrefetch, EnvMaxParallelism} {
		t.Setenv(k, "")
	}
}

func TestIsTruthy(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", "Yes", " on "} {
		assert.True(t, IsTruthy(v), v)
	}
	for _, v := range []string{"", "0", "false", "no", "off", "enabled"} {
		assert.False(t, IsTruthy(v), v)
	}
}

func TestOverridesFromEnv(t *testing.T) {
	tests := []struct {
		name      string
		env       map[string]string
		elevated  bool
		wantSys   bool
		wantPref  bool
		wantLimit int
	}{
		{name: "nothing set"},
		{name: "elevated implies system", elevated: true, wantSys: true},
		{name: "env allows system", env: map[string]string{EnvAllowSystem: "yes"}, wantSys: true},
		{name: "force off beats elevation", elevated: true, env: map[string]string{EnvForceNoSystem: "1"}},
		{name: "prefetch", env: map[string]string{EnvPrefetch: "on"}, wantPref: true},
		{name: "parallelism", env: map[string]string{EnvMaxParallelism: "3"}, wantLimit: 3},
		{name: "bad parallelism ignored", env: map[string]string{EnvMaxParallelism: "-2"}},
		{name: "garbage parallelism ignored", env: map[string]string{EnvMaxParallelism: "many"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearOverrideEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			ov := OverridesFromEnv(tt.elevated)
			assert.Equal(t, tt.wantSys, ov.AllowSystem)
			assert.Equal(t, tt.wantLimit, ov.MaxParallelism)
			if tt.wantPref {
				require.NotNil(t, ov.Prefetch)
				assert.True(t, *ov.Prefetch)
			} else {
				assert.Nil(t, ov.Prefetch)
			}
		})
	}
}

func TestEffectiveCategories(t *testing.T) {
	cfg := Default()
	require.False(t, cfg.Categories.Prefetch)

	assert.False(t, EffectiveCategories(cfg, Overrides{}).Prefetch)
	assert.True(t, EffectiveCategories(cfg, Overrides{AllowSystem: true}).Prefetch)

	on, off := true, false
	assert.True(t, EffectiveCategories(cfg, Overrides{Prefetch: &on}).Prefetch)
	assert.False(t, EffectiveCategories(cfg, Overrides{Prefetch: &off}).Prefetch)

	// The input configuration is never modified.
	assert.False(t, cfg.Categories.Prefetch)

	// Everything except prefetch passes through untouched.
	got := EffectiveCategories(cfg, Overrides{AllowSystem: true})
	got.Prefetch = false
	assert.Equal(t, cfg.Categories, got)
}
