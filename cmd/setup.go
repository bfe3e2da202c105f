package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lakshaymaurya-felt/winsweep/internal/config"
	"github.com/lakshaymaurya-felt/winsweep/internal/logger"
)

// loadRunConfig loads the configuration and brings up logging. Parse
// failures of auto-discovered files are reported as warnings, not errors.
func loadRunConfig() (config.RunConfig, string, error) {
	cfg, source, skipped, err := config.Load(configPath)
	if err != nil {
		return config.RunConfig{}, "", err
	}
	if err := initLogging(cfg); err != nil {
		return config.RunConfig{}, "", err
	}
	for _, e := range skipped {
		logger.Warn("Skipping unreadable config file", "error", e)
	}
	if source != "" {
		logger.Debug("Loaded configuration", "path", source)
	}
	return cfg, source, nil
}

// initLogging applies the log settings of cfg. --debug wins over
// everything else.
func initLogging(cfg config.RunConfig) error {
	level := logger.LevelFor(cfg.Verbose, cfg.Quiet, cfg.Log.Level)
	if debug {
		level = "DEBUG"
	}
	if err := logger.Init(logger.Config{
		Level:      level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	return nil
}

// freeSpacePath returns the path whose volume is reported as free space:
// the user temp directory's drive root, or the directory itself where paths
// carry no volume name.
func freeSpacePath() string {
	tmp := os.TempDir()
	if vol := filepath.VolumeName(tmp); vol != "" {
		return vol + string(filepath.Separator)
	}
	return tmp
}
