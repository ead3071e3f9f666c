// Package audio resolves a remote audio reference into decoded samples:
// fetch the URL into a per-job temp file, then decode it to 16 kHz mono
// float32 PCM. Retrieval failures and decode failures stay distinguishable.
package audio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"time"

	"go.uber.org/zap"
)

// RetrievalError means the audio could not be fetched from its URL.
type RetrievalError struct {
	URL string
	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieve audio from %s: %v", e.URL, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

type Fetcher struct {
	Client *http.Client
	Logger *zap.Logger
}

// Fetch downloads rawURL into a temp file owned by the calling job. The
// returned cleanup removes the file and must run on every exit path. On
// error no file is left behind and cleanup is a no-op.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, func(), error) {
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	log := f.Logger
	if log == nil {
		log = zap.NewNop()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", func() {}, &RetrievalError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", "whisperd/1")

	started := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return "", func() {}, &RetrievalError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", func() {}, &RetrievalError{URL: rawURL, Err: fmt.Errorf("unexpected status code: %d", resp.StatusCode)}
	}

	tempFile, err := os.CreateTemp("", "whisperd-audio-*"+urlExtension(rawURL))
	if err != nil {
		return "", func() {}, fmt.Errorf("create temp audio file: %w", err)
	}

	written, err := io.Copy(tempFile, resp.Body)
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tempFile.Name())
		return "", func() {}, &RetrievalError{URL: rawURL, Err: err}
	}

	log.Info("audio downloaded",
		zap.String("url", rawURL),
		zap.Int64("bytes", written),
		zap.Duration("elapsed", time.Since(started)))

	cleanup := func() { _ = os.Remove(tempFile.Name()) }
	return tempFile.Name(), cleanup, nil
}

func urlExtension(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ".mp3"
	}
	if ext := path.Ext(parsed.Path); ext != "" {
		return ext
	}
	return ".mp3"
}
