package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/sweetpotato0/govassist/app"
	"github.com/sweetpotato0/govassist/config"
	"github.com/sweetpotato0/govassist/mcp"
	"github.com/sweetpotato0/govassist/pkg/logging"
	"github.com/sweetpotato0/govassist/pkg/telemetry"
	"github.com/sweetpotato0/govassist/server"
)

func newServeCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and MCP endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, *configFile)
		},
	}
}

func serve(ctx context.Context, configFile string) error {
	logger := logging.WithComponent("main")

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Disable:        !cfg.Telemetry.Enabled,
	})
	if err != nil {
		return err
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.New(a.Pipeline, cfg.Server.Addr,
		server.WithServices(a.Retriever.Services()),
		server.WithMetricsHandler(a.Metrics.Handler()),
		server.WithMCPHandler(mcp.NewHTTPHandler(mcp.NewServer(a.Pipeline, version))),
		server.WithCORSOrigins(cfg.Server.CORSOrigins),
		server.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()
	return errors.Join(err, srv.Shutdown(shutdownCtx), shutdownTracing(shutdownCtx))
}
