package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/driftwatch/audiosync/internal/config"
	"github.com/driftwatch/audiosync/internal/httpapi"
	"github.com/driftwatch/audiosync/internal/service"
	"github.com/driftwatch/audiosync/pkg/log"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run scheduled sync checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.System.HTTPAddr
			}

			store, closeStore, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer closeStore()
			eng, err := ctx.buildEngine(store)
			if err != nil {
				return err
			}
			tool, err := ctx.tool()
			if err != nil {
				return err
			}

			settingsPath := config.RuntimeSettingsFilePath(cfg.System.DataDir)
			settingsStore, err := config.NewRuntimeSettingsStore(settingsPath, cfg.RuntimeSettings())
			if err != nil {
				return err
			}

			server := httpapi.NewServer(eng, store,
				httpapi.WithProber(tool),
				httpapi.WithRuntimeSettingsStore(settingsStore),
			)

			scheduler := cron.New()
			watcher := service.NewWatchService(*cfg, eng, scheduler)
			if err := watcher.Schedule(cmd.Context()); err != nil {
				return err
			}
			scheduler.Start()
			defer scheduler.Stop()

			serveCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				log.Info("Listening on %s", addr)
				errCh <- server.ListenAndServe(addr)
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-serveCtx.Done():
				log.Info("Shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from HTTP_ADDR)")
	return cmd
}
