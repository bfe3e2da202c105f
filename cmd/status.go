package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lakshaymaurya-felt/winsweep/internal/config"
	"github.com/lakshaymaurya-felt/winsweep/internal/logger"
	"github.com/lakshaymaurya-felt/winsweep/internal/platform"
	"github.com/lakshaymaurya-felt/winsweep/internal/safety"
	"github.com/lakshaymaurya-felt/winsweep/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show environment and safety roots",
	Long:  "Report the OS, elevation, effective system-clean setting, allowed roots and free disk space.",
	RunE:  runStatus,
}

var statusJSON bool

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output status as JSON")
}

type statusReport struct {
	OS              string            `json:"os"`
	Elevated        bool              `json:"elevated"`
	AllowSystem     bool              `json:"allow_system"`
	ConfigSource    string            `json:"config_source,omitempty"`
	AllowedPrefixes []string          `json:"allowed_prefixes"`
	FreeSpacePath   string            `json:"free_space_path"`
	FreeBytes       uint64            `json:"free_bytes,omitempty"`
	Volumes         []platform.Volume `json:"volumes"`
	Version         string            `json:"version"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	_, source, err := loadRunConfig()
	if err != nil {
		return err
	}
	defer logger.Close()

	ctx := context.Background()
	plat := platform.Current()
	elevated := plat.IsElevated()
	ov := config.OverridesFromEnv(elevated)

	r := statusReport{
		OS:              plat.Describe(ctx),
		Elevated:        elevated,
		AllowSystem:     ov.AllowSystem,
		ConfigSource:    source,
		AllowedPrefixes: safety.AllowedPrefixes(ov.AllowSystem),
		FreeSpacePath:   freeSpacePath(),
		Version:         appVersion,
	}
	if free, err := plat.FreeSpace(ctx, r.FreeSpacePath); err == nil {
		r.FreeBytes = free
	} else {
		logger.Debug("Free space unavailable", "path", r.FreeSpacePath, "error", err)
	}
	if vols, err := platform.Volumes(ctx); err == nil {
		r.Volumes = vols
	} else {
		logger.Debug("Volume list unavailable", "error", err)
	}

	out := cmd.OutOrStdout()
	if statusJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	var b strings.Builder
	row := func(k, v string) {
		b.WriteString(ui.LabelStyle.Render(k) + v + "\n")
	}
	b.WriteString(ui.TitleStyle.Render(ui.IconDiamond+" WinSweep "+appVersion) + "\n")
	row("OS", r.OS)
	row("Elevated", yesNo(r.Elevated))
	row("System clean", yesNo(r.AllowSystem))
	if r.ConfigSource != "" {
		row("Config", r.ConfigSource)
	} else {
		row("Config", "defaults")
	}
	if r.FreeBytes > 0 {
		row("Free space", fmt.Sprintf("%s on %s", ui.FormatSize(r.FreeBytes), r.FreeSpacePath))
	}
	b.WriteString(ui.LabelStyle.Render("Allowed roots") + "\n")
	for _, p := range r.AllowedPrefixes {
		b.WriteString("  " + ui.IconChevron + " " + p + "\n")
	}
	if len(r.Volumes) > 0 {
		b.WriteString(ui.LabelStyle.Render("Volumes") + "\n")
		for _, v := range r.Volumes {
			fmt.Fprintf(&b, "  %s %-12s %s free of %s (%.0f%% used)\n",
				ui.IconChevron, v.Mountpoint, ui.FormatSize(v.Free), ui.FormatSize(v.Total), v.UsedPct)
		}
	}
	fmt.Fprint(out, b.String())
	return nil
}

func yesNo(v bool) string {
	if v {
		return ui.OKStyle.Render("yes")
	}
	return ui.DimStyle.Render("no")
}
