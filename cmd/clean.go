package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lakshaymaurya-felt/winsweep/internal/config"
	"github.com/lakshaymaurya-felt/winsweep/internal/engine"
	"github.com/lakshaymaurya-felt/winsweep/internal/logger"
	"github.com/lakshaymaurya-felt/winsweep/internal/stats"
	"github.com/lakshaymaurya-felt/winsweep/internal/ui"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Free up disk space",
	Long: `Remove temp and cache locations to reclaim disk space.

Per-user caches are always eligible. System-wide caches under WINDIR,
SystemRoot and ProgramData are included when running elevated, with
--allow-system or WINSWEEP_ALLOW_SYSTEM_CLEAN=1, and excluded again by
--no-system or WINSWEEP_FORCE_NO_SYSTEM_CLEAN=1.`,
	RunE: runClean,
}

var cleanFlags struct {
	verbose     bool
	quiet       bool
	exactStats  bool
	allowSystem bool
	noSystem    bool
	prefetch    bool
	parallelism int
	jsonOut     bool
}

func init() {
	f := cleanCmd.Flags()
	f.BoolVar(&dryRun, "dry-run", false, "Preview the cleanup without deleting")
	f.BoolVarP(&cleanFlags.verbose, "verbose", "v", false, "Log every removed target")
	f.BoolVarP(&cleanFlags.quiet, "quiet", "q", false, "Only print the final summary line")
	f.BoolVar(&cleanFlags.exactStats, "exact-stats", false, "Pre-count directories for exact byte totals (slower)")
	f.BoolVar(&cleanFlags.allowSystem, "allow-system", false, "Include system-wide caches")
	f.BoolVar(&cleanFlags.noSystem, "no-system", false, "Never include system-wide caches")
	f.BoolVar(&cleanFlags.prefetch, "prefetch", false, "Include the Prefetch directory (system-wide only)")
	f.IntVar(&cleanFlags.parallelism, "parallelism", 0, "Maximum concurrent directory workers (0 = auto)")
	f.BoolVar(&cleanFlags.jsonOut, "json", false, "Print the summary as JSON")
	cleanCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
	cleanCmd.MarkFlagsMutuallyExclusive("allow-system", "no-system")
}

// applyCleanFlags layers explicitly set flags over the loaded config and the
// environment overrides. Precedence is flags, then environment, then file.
func applyCleanFlags(cmd *cobra.Command, cfg *config.RunConfig, ov *config.Overrides) error {
	flags := cmd.Flags()
	if flags.Changed("dry-run") {
		cfg.DryRun = dryRun
	}
	if flags.Changed("verbose") {
		cfg.SetVerbose(cleanFlags.verbose)
	}
	if flags.Changed("quiet") {
		cfg.SetQuiet(cleanFlags.quiet)
	}
	if flags.Changed("exact-stats") {
		cfg.ExactStats = cleanFlags.exactStats
	}
	if cleanFlags.allowSystem {
		ov.AllowSystem = true
	}
	if cleanFlags.noSystem {
		ov.AllowSystem = false
	}
	if cleanFlags.prefetch {
		on := true
		ov.Prefetch = &on
	}
	if flags.Changed("parallelism") {
		if cleanFlags.parallelism < 0 {
			return fmt.Errorf("--parallelism must be >= 0, got %d", cleanFlags.parallelism)
		}
		ov.MaxParallelism = cleanFlags.parallelism
	}
	return nil
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadRunConfig()
	if err != nil {
		return err
	}
	defer logger.Close()

	eng := engine.New()
	ov := config.OverridesFromEnv(eng.Platform.IsElevated())
	if err := applyCleanFlags(cmd, &cfg, &ov); err != nil {
		return err
	}
	// Flags may have changed verbosity after logging came up.
	if err := initLogging(cfg); err != nil {
		return err
	}

	ctx := context.Background()
	volume := freeSpacePath()
	free := ui.FreeSpace{Volume: volume}
	before, beforeErr := eng.Platform.FreeSpace(ctx, volume)

	label := "Cleaning caches…"
	if cfg.DryRun {
		label = "Scanning caches…"
	}
	var summary stats.Summary
	if cleanFlags.jsonOut || cfg.Quiet || cfg.Verbose || debug {
		summary = eng.Run(cfg, ov)
	} else {
		summary = ui.RunWithSpinner(label, func() stats.Summary { return eng.Run(cfg, ov) })
	}

	if after, err := eng.Platform.FreeSpace(ctx, volume); err == nil && beforeErr == nil {
		free.Before, free.After, free.Known = before, after, true
	}

	out := cmd.OutOrStdout()
	switch {
	case cleanFlags.jsonOut:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	case cfg.Quiet:
		fmt.Fprintln(out, summary.String())
	default:
		fmt.Fprint(out, ui.RenderSummary(summary, free, cfg.Verbose, ui.IsInteractive()))
	}
	return nil
}
