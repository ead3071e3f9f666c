package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries the worker settings supplied by the serving platform
// through the environment.
type Config struct {
	// ModelDir is where prefetched model weights live.
	ModelDir string
	// Device forces the execution device: "auto", "cpu" or "cuda".
	Device string
	// Threads caps inference threads; 0 lets the engine decide.
	Threads int
	// Addr is the listen address of the local job API.
	Addr string
	// FetchTimeout bounds one audio download.
	FetchTimeout time.Duration
	// AutoFetch downloads missing model weights on first acquire. Disable
	// in images that prefetch everything at build time.
	AutoFetch bool
}

const envPrefix = "WHISPERD_"

// Load reads the worker configuration from the environment, honoring a
// local .env file when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		ModelDir:     os.Getenv(envPrefix + "MODEL_DIR"),
		Device:       getEnvDefault(envPrefix+"DEVICE", "auto"),
		Addr:         getEnvDefault(envPrefix+"ADDR", ":8000"),
		FetchTimeout: 5 * time.Minute,
		AutoFetch:    true,
	}

	if cfg.ModelDir == "" {
		cacheDir, err := os.UserCacheDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve user cache dir: %w", err)
		}
		cfg.ModelDir = filepath.Join(cacheDir, "whisperd", "models")
	}

	if raw := os.Getenv(envPrefix + "THREADS"); raw != "" {
		threads, err := strconv.Atoi(raw)
		if err != nil || threads < 0 {
			return Config{}, fmt.Errorf("invalid %sTHREADS: %q", envPrefix, raw)
		}
		cfg.Threads = threads
	}

	if raw := os.Getenv(envPrefix + "FETCH_TIMEOUT"); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil || timeout <= 0 {
			return Config{}, fmt.Errorf("invalid %sFETCH_TIMEOUT: %q", envPrefix, raw)
		}
		cfg.FetchTimeout = timeout
	}

	if raw := os.Getenv(envPrefix + "AUTO_FETCH"); raw != "" {
		autoFetch, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %sAUTO_FETCH: %q", envPrefix, raw)
		}
		cfg.AutoFetch = autoFetch
	}

	switch cfg.Device {
	case "auto", "cpu", "cuda":
	default:
		return Config{}, fmt.Errorf("invalid %sDEVICE: %q (want auto, cpu or cuda)", envPrefix, cfg.Device)
	}

	return cfg, nil
}

func getEnvDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
