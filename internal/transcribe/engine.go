package transcribe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	whispercpp "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"go.uber.org/zap"

	"github.com/voxworks/whisperd/internal/model"
)

// Engine drives whisper.cpp over one audio buffer at a time. The accelerator
// does not time-slice safely for these workloads, so inference passes are
// serialized across all jobs in the process; cache lookups and audio work
// stay concurrent.
type Engine struct {
	log     *zap.Logger
	threads int

	accel sync.Mutex
}

func NewEngine(threads int, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{log: log, threads: threads}
}

// Transcribe runs one inference pass with the given handle and parameters.
// Once the pass has started it runs to completion; the context is only
// honored up to the accelerator boundary.
func (e *Engine) Transcribe(ctx context.Context, handle *model.Handle, samples []float32, p Params) (*Result, error) {
	if len(samples) == 0 {
		return nil, errors.New("no audio samples to transcribe")
	}

	wctx, err := handle.Model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("create inference context: %w", err)
	}

	language := p.Language
	if language == "" {
		language = "auto"
	}
	if err := wctx.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("set language %q: %w", language, err)
	}

	wctx.SetTranslate(false)
	wctx.SetTokenTimestamps(p.WordTimestamps)
	if p.BeamSize > 0 {
		wctx.SetBeamSize(p.BeamSize)
	}
	wctx.SetTemperature(float32(p.Temperature))
	threads := e.threads
	if p.Threads > 0 {
		threads = p.Threads
	}
	if threads > 0 {
		wctx.SetThreads(uint(threads))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.log.Info("starting transcription",
		zap.String("model", handle.Name),
		zap.String("device", string(handle.Device)),
		zap.String("language", language),
		zap.Int("beam_size", p.BeamSize),
		zap.Float64("temperature", p.Temperature),
		zap.Bool("word_timestamps", p.WordTimestamps),
		zap.Float64("audio_seconds", float64(len(samples))/float64(whispercpp.SampleRate)))

	var raw []rawSegment
	started := time.Now()

	e.accel.Lock()
	err = wctx.Process(samples, nil, func(segment whispercpp.Segment) {
		raw = append(raw, rawSegmentFrom(segment))
	}, nil)
	e.accel.Unlock()

	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	detected := language
	if detected == "auto" {
		detected = wctx.DetectedLanguage()
	}

	segments := assembleSegments(raw, p.Temperature)
	result := &Result{
		Segments: segments,
		Language: detected,
		Text:     joinSegmentTexts(segments),
		Device:   string(handle.Device),
		Model:    handle.Name,
	}
	if p.WordTimestamps {
		result.Words = assembleWords(raw)
	}

	e.log.Info("transcription finished",
		zap.Int("segments", len(result.Segments)),
		zap.Int("words", len(result.Words)),
		zap.String("detected_language", detected),
		zap.Duration("elapsed", time.Since(started)))

	return result, nil
}

func rawSegmentFrom(segment whispercpp.Segment) rawSegment {
	raw := rawSegment{
		start: segment.Start,
		end:   segment.End,
		text:  segment.Text,
	}
	for _, token := range segment.Tokens {
		raw.tokens = append(raw.tokens, rawToken{
			text:  token.Text,
			p:     token.P,
			start: token.Start,
			end:   token.End,
		})
	}
	return raw
}
