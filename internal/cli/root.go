package cli

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/voxworks/whisperd/internal/audio"
	"github.com/voxworks/whisperd/internal/config"
	"github.com/voxworks/whisperd/internal/device"
	"github.com/voxworks/whisperd/internal/logging"
	"github.com/voxworks/whisperd/internal/model"
	"github.com/voxworks/whisperd/internal/transcribe"
	"github.com/voxworks/whisperd/internal/version"
	"github.com/voxworks/whisperd/internal/worker"
)

type appState struct {
	verbose    bool
	jsonLogs   bool
	noProgress bool

	logger *zap.Logger

	serveFn      func(ctx context.Context, cfg config.Config) error
	prefetchFn   func(ctx context.Context, cfg config.Config, models []string) error
	transcribeFn func(ctx context.Context, cfg config.Config, input worker.JobInput) (*worker.Output, error)
}

func NewRootCmd() *cobra.Command {
	app := &appState{
		jsonLogs: true,
	}
	app.serveFn = app.runServer
	app.prefetchFn = app.prefetchModels
	app.transcribeFn = app.runLocalJob
	return newRootCmd(app)
}

func newRootCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "whisperd",
		Short:         "Serverless transcription worker backed by whisper.cpp",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			logger, err := logging.New(logging.Options{Verbose: app.verbose, JSON: app.jsonLogs})
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			app.logger = logger
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&app.jsonLogs, "json-logs", true, "Emit logs as JSON")
	cmd.PersistentFlags().BoolVar(&app.noProgress, "no-progress", false, "Disable progress output")

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newPrefetchCmd(app))
	cmd.AddCommand(newTranscribeCmd(app))

	return cmd
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

// buildHandler wires the worker pipeline for one process: hardware profile,
// model cache, engine and audio fetcher.
func (a *appState) buildHandler(cfg config.Config) (*worker.Handler, device.Profile, *model.Cache) {
	profile := device.Detect()

	loader := &model.Loader{
		Dir:       cfg.ModelDir,
		Profile:   profile,
		AutoFetch: cfg.AutoFetch,
		Logger:    a.log(),
	}
	cache := model.NewCache(loader.Load)
	engine := transcribe.NewEngine(cfg.Threads, a.log())
	fetcher := &audio.Fetcher{
		Client: &http.Client{Timeout: cfg.FetchTimeout},
		Logger: a.log(),
	}

	handler := worker.NewHandler(cache, engine, fetcher, cfg.Threads, a.log())
	return handler, profile, cache
}

func (a *appState) logProfile(profile device.Profile) {
	if profile.Device == device.CUDA {
		a.log().Info("accelerator detected",
			zap.String("gpu", profile.GPUName),
			zap.Int("vram_mib", profile.GPUMemoryMiB),
			zap.String("precision", string(profile.Precision)),
			zap.Bool("fast_math", profile.FastMath))
		return
	}
	a.log().Info("no accelerator detected, using CPU",
		zap.String("precision", string(profile.Precision)))
}
