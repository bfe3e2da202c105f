package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lakshaymaurya-felt/winsweep/internal/engine"
	"github.com/lakshaymaurya-felt/winsweep/internal/logger"
	"github.com/lakshaymaurya-felt/winsweep/internal/metrics"
	"github.com/lakshaymaurya-felt/winsweep/internal/platform"
	"github.com/lakshaymaurya-felt/winsweep/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web API",
	Long: `Serve the cleaner over HTTP on a loopback address.

Opens a browser UI at / and binds WINSWEEP_WEB_BIND (default
127.0.0.1:7878). On Windows an unelevated process relaunches itself through
UAC and exits unless --no-elevate is given. Non-loopback addresses
are refused unless WINSWEEP_WEB_ALLOW_NON_LOCAL=1. POST /api/run requires
the token from GET /api/csrf in the X-CSRF-Token header.`,
	RunE: runServe,
}

var (
	serveAddr      string
	serveNoElevate bool
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides WINSWEEP_WEB_BIND)")
	serveCmd.Flags().BoolVar(&serveNoElevate, "no-elevate", false, "Serve without administrative rights instead of relaunching through UAC")
}

// elevate hands off to an elevated copy of the process. It reports whether
// the caller should exit instead of serving.
func elevate(elevated bool, relaunch func([]string) error, args []string) (bool, error) {
	if elevated {
		return false, nil
	}
	err := relaunch(args)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, platform.ErrUnsupported):
		return false, nil
	default:
		return true, fmt.Errorf("failed to relaunch as administrator: %w", err)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadRunConfig()
	if err != nil {
		return err
	}
	defer logger.Close()

	srvCfg := server.ConfigFromEnv()
	if serveAddr != "" {
		srvCfg.Addr = serveAddr
	}

	eng := engine.New()
	if !serveNoElevate {
		exit, err := elevate(eng.Platform.IsElevated(), platform.RelaunchElevated, os.Args[1:])
		if err != nil {
			return err
		}
		if exit {
			logger.Info("Started an elevated copy through UAC; exiting")
			return nil
		}
	}

	h, err := server.NewHandler(eng, cfg, eng.Platform.IsElevated(),
		server.BuildInfo{Version: appVersion, Commit: appCommit, Date: appDate},
		metrics.New())
	if err != nil {
		return err
	}

	srv, err := server.New(srvCfg, h)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Start(ctx)
}
