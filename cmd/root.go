package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lakshaymaurya-felt/winsweep/internal/platform"
)

var (
	// Global flags
	debug      bool
	configPath string
	dryRun     bool

	// Version info populated from main
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets build-time version information.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "winsweep",
	Short: "Reclaim disk space from Windows caches",
	Long: `WinSweep - reclaim disk space from Windows caches.

Removes a fixed catalog of temp and cache locations (user temp, browser
caches, shader caches, crash dumps, error reports, update downloads and
more) while refusing anything outside the per-user and, when allowed,
system cache roots.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	pauseOnExit(platform.OwnsConsole(), os.Stdin, os.Stdout)
	return err
}

// pauseOnExit keeps a console opened by Explorer on screen until Enter is
// pressed.
func pauseOnExit(ownsConsole bool, in io.Reader, out io.Writer) {
	if !ownsConsole {
		return
	}
	fmt.Fprint(out, "\nPress Enter to exit . . . ")
	_, _ = bufio.NewReader(in).ReadString('\n')
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Show detailed operation logs")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file (JSON or YAML)")

	// Register all subcommands
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(completionCmd)
	rootCmd.AddCommand(versionCmd)
}
