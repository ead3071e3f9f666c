package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/voxworks/whisperd/internal/config"
	"github.com/voxworks/whisperd/internal/download"
	"github.com/voxworks/whisperd/internal/model"
)

func newPrefetchCmd(app *appState) *cobra.Command {
	var models []string

	cmd := &cobra.Command{
		Use:   "prefetch",
		Short: "Download model weights ahead of time (image build step)",
		Long: "Downloads the given model weights into the model directory so a\n" +
			"fresh execution slot never pays a download on its first job.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return app.prefetchFn(cmd.Context(), cfg, models)
		},
	}

	cmd.Flags().StringSliceVar(&models, "models", model.PrefetchDefaults,
		fmt.Sprintf("Models to prefetch (known: %s)", strings.Join(model.Names(), ", ")))
	return cmd
}

func (a *appState) prefetchModels(ctx context.Context, cfg config.Config, models []string) error {
	for _, name := range models {
		spec, ok := model.Lookup(name)
		if !ok {
			return fmt.Errorf("unknown model %q (known models: %s)", name, strings.Join(model.Names(), ", "))
		}

		destination := spec.PathIn(cfg.ModelDir)
		if _, err := os.Stat(destination); err == nil {
			if err := download.VerifyFile(destination, spec.SHA256); err != nil {
				return fmt.Errorf("verify existing weights for %s: %w", name, err)
			}
			a.log().Info("model already present", zap.String("model", name), zap.String("path", destination))
			continue
		}

		a.log().Info("prefetching model", zap.String("model", name), zap.String("url", spec.URL))
		if err := download.File(ctx, download.Options{
			URL:            spec.URL,
			Destination:    destination,
			ExpectedSHA256: spec.SHA256,
			NoProgress:     a.noProgress,
			Logger:         a.log(),
		}); err != nil {
			return fmt.Errorf("prefetch model %s: %w", name, err)
		}
		a.log().Info("model prefetched", zap.String("model", name), zap.String("path", destination))
	}

	return nil
}
