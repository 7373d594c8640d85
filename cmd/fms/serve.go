package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/fms-tracker/internal/server"
	appsync "github.com/nhle/fms-tracker/internal/sync"
)

const shutdownTimeout = 5 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and browser client",
	Long: `Serve the JSON API and the browser client on server.addr.

When alerts.scan_interval_sec is positive the delay scan also runs on that
interval in the background.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	svc, err := openServices(cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	srv := server.NewServer(svc.tracker, svc.scanner,
		server.WithLogger(logger),
		server.WithMaxUploadBytes(cfg.Server.MaxUploadBytes))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Start(cfg.Server.Addr)
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if interval := cfg.Alerts.ScanIntervalSec; interval > 0 {
		poller := appsync.New(svc.scanner, time.Duration(interval)*time.Second, logger)
		g.Go(func() error {
			return poller.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped", zap.Error(err))
		return err
	}
	return nil
}
