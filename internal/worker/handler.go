package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/voxworks/whisperd/internal/audio"
	"github.com/voxworks/whisperd/internal/model"
	"github.com/voxworks/whisperd/internal/transcribe"
)

// Engine runs one inference pass. Satisfied by *transcribe.Engine.
type Engine interface {
	Transcribe(ctx context.Context, handle *model.Handle, samples []float32, p transcribe.Params) (*transcribe.Result, error)
}

// Handler is the job entry point: validate, acquire audio, acquire model,
// run inference, shape the response. One Handler serves the whole process;
// the dispatcher may invoke Handle concurrently.
type Handler struct {
	cache   *model.Cache
	engine  Engine
	threads int
	log     *zap.Logger

	fetchFn  func(ctx context.Context, url string) (string, func(), error)
	decodeFn func(ctx context.Context, path string) ([]float32, error)
}

func NewHandler(cache *model.Cache, engine Engine, fetcher *audio.Fetcher, threads int, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{
		cache:   cache,
		engine:  engine,
		threads: threads,
		log:     log,
	}
	h.fetchFn = fetcher.Fetch
	h.decodeFn = func(ctx context.Context, path string) ([]float32, error) {
		return audio.Decode(ctx, path, log)
	}
	return h
}

// Handle processes exactly one job and returns exactly one shaped output or
// one structured error. Validation failures consume no accelerator or
// network resources.
func (h *Handler) Handle(ctx context.Context, input JobInput) (*Output, error) {
	req, err := input.Validate()
	if err != nil {
		return nil, err
	}

	started := time.Now()
	h.log.Info("job accepted",
		zap.String("model", req.Model),
		zap.String("language", languageLabel(req.Language)),
		zap.Float64("temperature", req.Temperature),
		zap.Int("beam_size", req.BeamSize),
		zap.Bool("word_timestamps", req.WordTimestamps))

	audioPath, cleanup, err := h.fetchFn(ctx, req.AudioURL)
	if err != nil {
		return nil, classifyAcquisition(err)
	}
	defer cleanup()

	samples, err := h.decodeFn(ctx, audioPath)
	if err != nil {
		return nil, classifyAcquisition(err)
	}

	handle, err := h.cache.Acquire(ctx, req.Model)
	if err != nil {
		return nil, wrapError(KindModelLoad, "model initialization failed", err)
	}

	result, err := h.engine.Transcribe(ctx, handle, samples, transcribe.Params{
		Language:       req.Language,
		Temperature:    req.Temperature,
		BeamSize:       req.BeamSize,
		WordTimestamps: req.WordTimestamps,
		Threads:        h.threads,
	})
	if err != nil {
		return nil, wrapError(KindInference, "transcription failed", err)
	}

	output, err := Shape(result, req.WordTimestamps)
	if err != nil {
		return nil, err
	}

	h.log.Info("job completed",
		zap.Int("segments", len(output.Segments)),
		zap.String("detected_language", output.DetectedLanguage),
		zap.Duration("elapsed", time.Since(started)))
	return output, nil
}

func classifyAcquisition(err error) *Error {
	var retrieval *audio.RetrievalError
	if errors.As(err, &retrieval) {
		return wrapError(KindAcquisition, "audio retrieval failed", err)
	}
	var decode *audio.DecodeError
	if errors.As(err, &decode) {
		return wrapError(KindAcquisition, "audio decode failed", err)
	}
	return wrapError(KindAcquisition, "audio acquisition failed", err)
}

func languageLabel(language string) string {
	if language == "" {
		return "auto"
	}
	return language
}
