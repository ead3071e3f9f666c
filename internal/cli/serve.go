package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/voxworks/whisperd/internal/config"
	"github.com/voxworks/whisperd/internal/server"
	"github.com/voxworks/whisperd/internal/version"
)

func newServeCmd(app *appState) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the worker and expose the job API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			return app.serveFn(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides WHISPERD_ADDR)")
	return cmd
}

func (a *appState) runServer(ctx context.Context, cfg config.Config) error {
	handler, profile, cache := a.buildHandler(cfg)
	a.logProfile(profile)

	router := server.New(server.Options{
		Runner:       handler,
		Profile:      profile,
		LoadedModels: cache.Loaded,
		Version:      version.Resolve(),
		Logger:       a.log(),
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: router}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()

		// A job already running on the accelerator finishes before the
		// process exits; new jobs are refused.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log().Warn("shutdown incomplete", zap.Error(err))
		}
	}()

	a.log().Info("worker ready",
		zap.String("addr", cfg.Addr),
		zap.String("model_dir", cfg.ModelDir))

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-shutdownDone
	return nil
}
