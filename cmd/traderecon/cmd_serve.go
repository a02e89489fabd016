package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/savegress/traderecon/internal/api"
	"github.com/savegress/traderecon/internal/metrics"
	"github.com/savegress/traderecon/internal/reconciliation"
	"github.com/savegress/traderecon/internal/reporting"
	"github.com/savegress/traderecon/pkg/workerpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve reconciliation runs over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			pool, err := workerpool.New(workerpool.Config{
				Workers:         cfg.Server.MaxConcurrentRuns,
				QueueSize:       cfg.Server.RunQueue,
				ShutdownTimeout: 30 * time.Second,
			})
			if err != nil {
				return fmt.Errorf("run pool: %w", err)
			}

			engine := reconciliation.NewEngine(nil, a.logger)
			reports := reporting.NewGenerator(&cfg.Reporting, a.logger)
			server := api.NewServer(cfg, engine, reports, pool, metrics.New(), a.logger)

			httpServer := &http.Server{
				Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
				Handler:      server.Router(),
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 60 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("api listening", zap.Int("port", cfg.Server.Port), zap.Bool("auth", cfg.Server.JWTSecret != ""))
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				pool.Stop()
				return err
			case <-cmd.Context().Done():
			}

			a.logger.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				a.logger.Warn("http server shutdown error", zap.Error(err))
			}
			if err := pool.Stop(); err != nil {
				a.logger.Warn("run pool shutdown error", zap.Error(err))
			}

			a.logger.Info("stopped")
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port")
	return cmd
}
