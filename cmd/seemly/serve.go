package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/seemly-ai/seemly/internal/auth"
	"github.com/seemly-ai/seemly/internal/config"
	"github.com/seemly-ai/seemly/internal/server"
	"github.com/seemly-ai/seemly/internal/telemetry"
	"github.com/seemly-ai/seemly/version"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Seemly moderation server",
	Long: `Start the Seemly HTTP server.

The server provides:
  - POST /v1/moderations      - moderate one image
  - GET  /v1/moderations/{id} - look up a recent verdict
  - GET  /healthz             - health check

Examples:
  seemly serve
  seemly serve --addr :9000
  seemly serve --config /etc/seemly/seemly.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}
		if err := config.Validate(cfg); err != nil {
			return err
		}

		logger := newLogger(cfg.Logging.Level)

		authz, err := auth.NewFromConfig(cfg)
		if err != nil {
			return err
		}

		orchestrator, err := buildOrchestrator(cfg, logger)
		if err != nil {
			return err
		}

		emitter, err := buildAuditEmitter(cfg, logger)
		if err != nil {
			return err
		}
		if emitter != nil {
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				emitter.Close(closeCtx)
			}()
		}

		tel, err := telemetry.NewProvider(ctx, telemetry.Config{
			Enabled:  cfg.Telemetry.Enabled,
			Endpoint: cfg.Telemetry.Endpoint,
			Protocol: cfg.Telemetry.Protocol,
			Service:  cfg.Telemetry.Service,
			Version:  version.GitRelease,
		})
		if err != nil {
			return err
		}
		defer tel.Shutdown(context.Background())

		srv := server.New(cfg, server.Options{
			Auth:      authz,
			Moderator: orchestrator,
			Audit:     emitter,
			Telemetry: tel,
			Logger:    logger,
		})

		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")

	rootCmd.AddCommand(serveCmd)
}
