package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/reactor/internal/config"
	"github.com/vango-dev/reactor/internal/server"
)

func serveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [script.star]",
		Short: "Serve a script's store over HTTP and WebSocket",
		Long: `Serve a script's store over HTTP and WebSocket.

The store is exposed under /api, connected browsers receive updates on
/ws, and an optional HTML page with data-reactive elements is served at
/ and kept in sync. With --watch the script is reloaded when it changes.

Examples:
  reactor serve cart.star
  reactor serve cart.star --watch --page index.html
  reactor serve --config reactor.yaml --addr :9090`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				a.cfg.Script = args[0]
			}
			return runServe(cmd.Context(), a)
		},
	}

	cmd.Flags().String("script", "", "script to serve (default from config)")
	cmd.Flags().String("addr", "", "address to listen on (default "+config.DefaultAddr+")")
	cmd.Flags().Bool("watch", false, "reload the script when it changes")
	cmd.Flags().String("page", "", "HTML page to keep in sync and serve at /")
	cmd.Flags().Bool("metrics", true, "expose Prometheus metrics")
	cmd.Flags().Bool("tracing", false, "trace cascades and requests with OpenTelemetry")

	return cmd
}

func runServe(ctx context.Context, a *app) error {
	srv, err := server.New(a.cfg, server.WithLogger(a.log.Logger))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}
