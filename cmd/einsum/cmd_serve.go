package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/born-ml/einsum/internal/server"
)

var serveAddr string

// serveCmd runs the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the quiz over HTTP",
	Long: `Serves questions, answer checks and learner sessions as a JSON API.
Prometheus metrics are exposed on /metrics.

With bank.watch enabled and a bank file configured, edits to the file are
picked up without a restart.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	b, err := loadBank()
	if err != nil {
		return err
	}
	srv, err := server.New(server.Options{Bank: b, Config: cfg, Logger: logger})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx, cfg.Server.Addr)
	})
	if cfg.Bank.Watch && cfg.Bank.Path != "" {
		g.Go(func() error {
			logger.Info("Watching question bank", zap.String("path", cfg.Bank.Path))
			return srv.WatchBank(ctx, cfg.Bank.Path)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
