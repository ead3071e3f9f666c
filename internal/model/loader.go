package model

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	whispercpp "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"go.uber.org/zap"

	"github.com/voxworks/whisperd/internal/device"
	"github.com/voxworks/whisperd/internal/download"
)

// Loader materializes handles from weights on disk, optionally fetching
// missing weights first. Its Load method is the Cache's LoadFunc.
type Loader struct {
	Dir        string
	Profile    device.Profile
	AutoFetch  bool
	HTTPClient *http.Client
	Logger     *zap.Logger
}

func (l *Loader) Load(ctx context.Context, name string) (*Handle, error) {
	spec, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown model %q (known models: %s)", name, strings.Join(Names(), ", "))
	}

	log := l.Logger
	if log == nil {
		log = zap.NewNop()
	}

	path := spec.PathIn(l.Dir)
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat model weights: %w", err)
		}
		if !l.AutoFetch {
			return nil, fmt.Errorf("model weights missing at %s; prefetch them into the image", path)
		}

		log.Info("fetching model weights", zap.String("model", name), zap.String("url", spec.URL))
		if err := download.File(ctx, download.Options{
			URL:            spec.URL,
			Destination:    path,
			ExpectedSHA256: spec.SHA256,
			NoProgress:     true,
			HTTPClient:     l.HTTPClient,
			Logger:         log,
		}); err != nil {
			return nil, fmt.Errorf("fetch model %s: %w", name, err)
		}
	}

	started := time.Now()
	weights, err := whispercpp.New(path)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", name, err)
	}

	log.Info("model loaded",
		zap.String("model", name),
		zap.String("device", string(l.Profile.Device)),
		zap.String("precision", string(l.Profile.Precision)),
		zap.Duration("elapsed", time.Since(started)))

	return &Handle{
		Name:      name,
		Path:      path,
		Device:    l.Profile.Device,
		Precision: l.Profile.Precision,
		Model:     weights,
	}, nil
}
