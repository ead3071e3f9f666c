package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/voxworks/whisperd/internal/config"
	"github.com/voxworks/whisperd/internal/worker"
)

func newTranscribeCmd(app *appState) *cobra.Command {
	var (
		modelName      string
		language       string
		temperature    float64
		beamSize       int
		wordTimestamps bool
	)

	cmd := &cobra.Command{
		Use:   "transcribe <audio-url>",
		Short: "Run one transcription job locally and print the shaped output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			input := worker.JobInput{
				Audio:          args[0],
				Model:          modelName,
				Temperature:    &temperature,
				BeamSize:       &beamSize,
				WordTimestamps: wordTimestamps,
			}
			if language != "" {
				input.Language = &language
			}

			output, err := app.transcribeFn(cmd.Context(), cfg, input)
			if err != nil {
				return err
			}

			encoded, err := json.MarshalIndent(output, "", "  ")
			if err != nil {
				return fmt.Errorf("encode output: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
			return nil
		},
	}

	cmd.Flags().StringVar(&modelName, "model", "", "Model to use (default \"base\")")
	cmd.Flags().StringVar(&language, "language", "", "ISO 639-1 language hint (default auto-detect)")
	cmd.Flags().Float64Var(&temperature, "temperature", 0.0, "Sampling temperature (0.0-1.0)")
	cmd.Flags().IntVar(&beamSize, "beam-size", 5, "Beam search width (1-10)")
	cmd.Flags().BoolVar(&wordTimestamps, "word-timestamps", false, "Include word-level timestamps")
	return cmd
}

func (a *appState) runLocalJob(ctx context.Context, cfg config.Config, input worker.JobInput) (*worker.Output, error) {
	handler, profile, _ := a.buildHandler(cfg)
	a.logProfile(profile)

	stopSpinner := startSpinner(!a.noProgress, "Transcribing")
	started := time.Now()

	output, err := handler.Handle(ctx, input)
	stopSpinner()
	if err != nil {
		a.log().Warn("transcription failed", zap.Duration("elapsed", time.Since(started)), zap.Error(err))
		return nil, err
	}

	a.log().Info("transcription finished", zap.Duration("elapsed", time.Since(started)))
	return output, nil
}
