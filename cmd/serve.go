package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"dappsuite/api"
	"dappsuite/ledger"
	"dappsuite/program"
	"dappsuite/sdk"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the HTTP transaction server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	cfg, err := api.LoadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	store, err := ledger.NewBadgerStore(cfg.DataDir, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.CloseStore()

	rt := program.New(store, logger)
	if cfg.PlatformAddress != "" {
		addr, err := sdk.AddressFromString(cfg.PlatformAddress)
		if err != nil {
			return fmt.Errorf("platform address: %w", err)
		}
		if err := rt.ConfigurePlatform(addr, cfg.PlatformFeeBps); err != nil {
			return fmt.Errorf("platform fee: %w", err)
		}
	}

	srv := api.NewServer(rt, cfg, logger, prometheus.NewRegistry())
	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Listen, "datadir", cfg.DataDir)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
