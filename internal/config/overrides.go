package config

import (
	"os"
	"strconv"
	"strings"
)

// Environment toggles read by OverridesFromEnv.
const (
	EnvAllowSystem    = "WINSWEEP_ALLOW_SYSTEM_CLEAN"
	EnvForceNoSystem  = "WINSWEEP_FORCE_NO_SYSTEM_CLEAN"
	EnvPrefetch       = "WINSWEEP_PREFETCH"
	EnvMaxParallelism = "WINSWEEP_MAX_PARALLELISM"
)

// Overrides are per-run switches combined with a RunConfig to produce the
// effective category set. They are never persisted.
type Overrides struct {
	// AllowSystem enables system-wide targets (WINDIR, ProgramData) and
	// forces prefetch on.
	AllowSystem bool

	// Prefetch forces the prefetch category on when non-nil and true.
	Prefetch *bool

	// MaxParallelism caps the directory worker pool. 0 means unset.
	MaxParallelism int
}

// EnvTruthy reports whether the variable is set to a truthy value.
func EnvTruthy(name string) bool {
	return IsTruthy(os.Getenv(name))
}

// IsTruthy reports whether s is 1, true, yes or on, ignoring case.
func IsTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// OverridesFromEnv derives overrides from the privilege volume and the
// WINSWEEP_* environment toggles. The caller supplies elevated; this package
// never checks privileges itself.
func OverridesFromEnv(elevated bool) Overrides {
	ov := Overrides{
		AllowSystem: EnvTruthy(EnvAllowSystem) || elevated,
	}
	if EnvTruthy(EnvForceNoSystem) {
		ov.AllowSystem = false
	}
	if EnvTruthy(EnvPrefetch) {
		on := true
		ov.Prefetch = &on
	}
	if v := strings.TrimSpace(os.Getenv(EnvMaxParallelism)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			ov.MaxParallelism = n
		}
	}
	return ov
}

// EffectiveCategories applies overrides to the configured categories.
func EffectiveCategories(cfg RunConfig, ov Overrides) Categories {
	cats := cfg.Categories
	if ov.AllowSystem {
		cats.Prefetch = true
	}
	if ov.Prefetch != nil && *ov.Prefetch {
		cats.Prefetch = true
	}
	return cats
}

// None reports whether every category is disabled.
func (c Categories) None() bool {
	return c == Categories{}
}
