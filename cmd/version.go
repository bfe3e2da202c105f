package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "winsweep %s (%s) built %s %s/%s\n",
			appVersion, appCommit, appDate, runtime.GOOS, runtime.GOARCH)
	},
}
