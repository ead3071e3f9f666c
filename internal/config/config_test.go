package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("WHISPERD_MODEL_DIR", "/models")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "/models", cfg.ModelDir)
	require.Equal(t, "auto", cfg.Device)
	require.Equal(t, ":8000", cfg.Addr)
	require.Equal(t, 0, cfg.Threads)
	require.Equal(t, 5*time.Minute, cfg.FetchTimeout)
	require.True(t, cfg.AutoFetch)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("WHISPERD_MODEL_DIR", "/data/weights")
	t.Setenv("WHISPERD_DEVICE", "cpu")
	t.Setenv("WHISPERD_THREADS", "8")
	t.Setenv("WHISPERD_ADDR", ":9001")
	t.Setenv("WHISPERD_FETCH_TIMEOUT", "90s")
	t.Setenv("WHISPERD_AUTO_FETCH", "false")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "/data/weights", cfg.ModelDir)
	require.Equal(t, "cpu", cfg.Device)
	require.Equal(t, 8, cfg.Threads)
	require.Equal(t, ":9001", cfg.Addr)
	require.Equal(t, 90*time.Second, cfg.FetchTimeout)
	require.False(t, cfg.AutoFetch)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"bad device", "WHISPERD_DEVICE", "tpu"},
		{"bad threads", "WHISPERD_THREADS", "many"},
		{"negative threads", "WHISPERD_THREADS", "-2"},
		{"bad timeout", "WHISPERD_FETCH_TIMEOUT", "soon"},
		{"zero timeout", "WHISPERD_FETCH_TIMEOUT", "0s"},
		{"bad auto fetch", "WHISPERD_AUTO_FETCH", "yep"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("WHISPERD_MODEL_DIR", "/models")
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			require.Error(t, err)
		})
	}
}
