package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Categories toggles each cache family independently. A run never mutates
// its Categories once the engine has started.
type Categories struct {
	WindowsTemp          bool `yaml:"windows_temp" json:"windows_temp"`
	UserTemp             bool `yaml:"user_temp" json:"user_temp"`
	BrowserCache         bool `yaml:"browser_cache" json:"browser_cache"`
	WindowsUpdate        bool `yaml:"windows_update" json:"windows_update"`
	DeliveryOptimization bool `yaml:"delivery_optimization" json:"delivery_optimization"`
	CrashDumps           bool `yaml:"crash_dumps" json:"crash_dumps"`
	ErrorReports         bool `yaml:"error_reports" json:"error_reports"`
	Thumbnails           bool `yaml:"thumbnails" json:"thumbnails"`
	DirectXCache         bool `yaml:"directx_cache" json:"directx_cache"`
	TempInternetFiles    bool `yaml:"temp_internet_files" json:"temp_internet_files"`
	Prefetch             bool `yaml:"prefetch" json:"prefetch"`
	DefenderCache        bool `yaml:"defender_cache" json:"defender_cache"`
	OfficeCache          bool `yaml:"office_cache" json:"office_cache"`
	AspNetTemp           bool `yaml:"aspnet_temp" json:"aspnet_temp"`
	TeamsCache           bool `yaml:"teams_cache" json:"teams_cache"`
	ModernAppsCache      bool `yaml:"modern_apps_cache" json:"modern_apps_cache"`
	JavaCache            bool `yaml:"java_cache" json:"java_cache"`
	AdobeCache           bool `yaml:"adobe_cache" json:"adobe_cache"`
	WMPCache             bool `yaml:"wmp_cache" json:"wmp_cache"`
	WidgetsCache         bool `yaml:"widgets_cache" json:"widgets_cache"`
}

// DefaultCategories returns the authoritative default category set: every
// family enabled except prefetch, which is restricted to elevated runs.
func DefaultCategories() Categories {
	return Categories{
		WindowsTemp:          true,
		UserTemp:             true,
		BrowserCache:         true,
		WindowsUpdate:        true,
		DeliveryOptimization: true,
		CrashDumps:           true,
		ErrorReports:         true,
		Thumbnails:           true,
		DirectXCache:         true,
		TempInternetFiles:    true,
		Prefetch:             false,
		DefenderCache:        true,
		OfficeCache:          true,
		AspNetTemp:           true,
		TeamsCache:           true,
		ModernAppsCache:      true,
		JavaCache:            true,
		AdobeCache:           true,
		WMPCache:             true,
		WidgetsCache:         true,
	}
}

// LogConfig controls the console/file logger.
type LogConfig struct {
	Level      string `yaml:"level" json:"level"`   // DEBUG, INFO, WARN, ERROR
	Format     string `yaml:"format" json:"format"` // text, json
	File       string `yaml:"file" json:"file"`     // empty = stderr
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days"`
}

// RunConfig is loaded once before the engine starts and is immutable for
// the duration of a run.
type RunConfig struct {
	DryRun     bool       `yaml:"dry_run" json:"dry_run"`
	Verbose    bool       `yaml:"verbose" json:"verbose"`
	Quiet      bool       `yaml:"quiet" json:"quiet"`
	ExactStats bool       `yaml:"exact_stats" json:"exact_stats"`
	Categories Categories `yaml:"categories" json:"categories"`

	// Exclude holds wildcard patterns; matching targets are never touched.
	Exclude []string  `yaml:"exclude" json:"exclude"`
	Log     LogConfig `yaml:"log" json:"log"`
}

// Default returns a RunConfig with default categories and nothing else set.
func Default() RunConfig {
	return RunConfig{Categories: DefaultCategories()}
}

// SetVerbose enables verbose output and clears quiet.
func (c *RunConfig) SetVerbose(v bool) {
	c.Verbose = v
	if v {
		c.Quiet = false
	}
}

// SetQuiet enables quiet output and clears verbose.
func (c *RunConfig) SetQuiet(q bool) {
	c.Quiet = q
	if q {
		c.Verbose = false
	}
}

// Validate checks the loaded configuration.
func (c *RunConfig) Validate() error {
	if c.Verbose && c.Quiet {
		return errors.New("verbose and quiet are mutually exclusive")
	}
	for _, p := range c.Exclude {
		if strings.TrimSpace(p) == "" {
			return errors.New("exclude pattern must not be empty")
		}
		if strings.Contains(p, "..") {
			return fmt.Errorf("exclude pattern contains directory traversal: %s", p)
		}
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return errors.New("log rotation limits must be >= 0")
	}
	return nil
}

// SearchPaths returns the locations Load tries, in priority order.
func SearchPaths() []string {
	var dirs []string
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, filepath.Join(cwd, ".winsweep"))
	}
	if pd := ProgramData(); pd != "" {
		dirs = append(dirs, filepath.Join(pd, "WinSweep"))
	}
	if ad := AppData(); ad != "" {
		dirs = append(dirs, filepath.Join(ad, "WinSweep"))
	}

	var paths []string
	for _, d := range dirs {
		paths = append(paths, filepath.Join(d, "config.json"), filepath.Join(d, "config.yaml"))
	}
	return paths
}

// Load reads the run configuration. An explicit path must exist and parse.
// Otherwise the first search path that parses wins; files that fail to
// parse are skipped and reported through skipped. No file at all yields
// Default().
func Load(explicit string) (cfg RunConfig, source string, skipped []error, err error) {
	if explicit != "" {
		cfg, err = loadFile(explicit)
		if err != nil {
			return RunConfig{}, "", nil, err
		}
		return cfg, explicit, nil, nil
	}

	for _, p := range SearchPaths() {
		info, statErr := os.Stat(p)
		if statErr != nil || info.IsDir() {
			continue
		}
		c, loadErr := loadFile(p)
		if loadErr != nil {
			skipped = append(skipped, loadErr)
			continue
		}
		return c, p, skipped, nil
	}
	return Default(), "", skipped, nil
}

// loadFile parses one config file. Fields absent from the file keep their
// defaults because decoding starts from Default().
func loadFile(path string) (RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RunConfig{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return RunConfig{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return RunConfig{}, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return cfg, nil
}
