package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lakshaymaurya-felt/winsweep/internal/config"
	"github.com/lakshaymaurya-felt/winsweep/internal/engine"
	"github.com/lakshaymaurya-felt/winsweep/internal/logger"
	"github.com/lakshaymaurya-felt/winsweep/internal/ui"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "List what clean would consider",
	Long:  "Build and filter the target catalog without deleting or counting anything.",
	RunE:  runPreview,
}

var previewFlags struct {
	allowSystem bool
	noSystem    bool
	prefetch    bool
	jsonOut     bool
}

func init() {
	f := previewCmd.Flags()
	f.BoolVar(&previewFlags.allowSystem, "allow-system", false, "Include system-wide caches")
	f.BoolVar(&previewFlags.noSystem, "no-system", false, "Never include system-wide caches")
	f.BoolVar(&previewFlags.prefetch, "prefetch", false, "Include the Prefetch directory")
	f.BoolVar(&previewFlags.jsonOut, "json", false, "Print targets as JSON")
	previewCmd.MarkFlagsMutuallyExclusive("allow-system", "no-system")
}

func runPreview(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadRunConfig()
	if err != nil {
		return err
	}
	defer logger.Close()

	eng := engine.New()
	ov := config.OverridesFromEnv(eng.Platform.IsElevated())
	if previewFlags.allowSystem {
		ov.AllowSystem = true
	}
	if previewFlags.noSystem {
		ov.AllowSystem = false
	}
	if previewFlags.prefetch {
		on := true
		ov.Prefetch = &on
	}

	p := eng.Preview(cfg, ov)
	out := cmd.OutOrStdout()
	if previewFlags.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}
	fmt.Fprint(out, ui.RenderTargets(p.TargetDirs, p.TargetFiles, ui.IsInteractive()))
	return nil
}
