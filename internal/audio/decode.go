package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// SampleRate is what the inference models expect.
const SampleRate = 16000

// DecodeError means the fetched bytes could not be decoded into samples.
// It is a validation-class failure, not an inference failure.
type DecodeError struct {
	Path   string
	Detail string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("decode audio %s: %s", e.Path, e.Detail)
	}
	return fmt.Sprintf("decode audio %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode converts an audio file into 16 kHz mono float32 samples via ffmpeg.
func Decode(ctx context.Context, path string, log *zap.Logger) ([]float32, error) {
	if log == nil {
		log = zap.NewNop()
	}

	cmd := exec.CommandContext(ctx, ffmpegBinary(),
		"-nostdin", "-hide_banner", "-loglevel", "error",
		"-i", path,
		"-f", "s16le", "-acodec", "pcm_s16le",
		"-ac", "1", "-ar", fmt.Sprint(SampleRate),
		"pipe:1",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug("decoding audio", zap.String("path", path))
	if err := cmd.Run(); err != nil {
		return nil, &DecodeError{Path: path, Detail: strings.TrimSpace(stderr.String()), Err: err}
	}

	samples := SamplesFromPCM16(stdout.Bytes())
	if len(samples) == 0 {
		return nil, &DecodeError{Path: path, Detail: "no decodable audio samples"}
	}

	log.Debug("audio decoded",
		zap.Int("samples", len(samples)),
		zap.Float64("seconds", float64(len(samples))/SampleRate))
	return samples, nil
}

// SamplesFromPCM16 converts little-endian 16-bit PCM into float32 samples in
// [-1, 1]. A trailing odd byte is dropped.
func SamplesFromPCM16(pcm []byte) []float32 {
	samples := make([]float32, 0, len(pcm)/2)
	for i := 0; i+1 < len(pcm); i += 2 {
		sample := int16(pcm[i]) | int16(pcm[i+1])<<8
		samples = append(samples, float32(sample)/32768.0)
	}
	return samples
}

func ffmpegBinary() string {
	if override := strings.TrimSpace(os.Getenv("WHISPERD_FFMPEG")); override != "" {
		return override
	}
	return "ffmpeg"
}
