package model

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNamesAreSortedAndComplete(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{
		"base", "large-v1", "large-v2", "large-v3",
		"medium", "small", "tiny", "turbo",
	}, Names())
}

func TestLookup(t *testing.T) {
	t.Parallel()

	spec, ok := Lookup("turbo")
	require.True(t, ok)
	require.Equal(t, "ggml-large-v3-turbo.bin", spec.FileName)

	_, ok = Lookup("unknown-model-xyz")
	require.False(t, ok)
}

func TestDefaultModelIsRegistered(t *testing.T) {
	t.Parallel()

	_, ok := Lookup(Default)
	require.True(t, ok)
}

func TestPrefetchDefaultsAreRegistered(t *testing.T) {
	t.Parallel()

	for _, name := range PrefetchDefaults {
		_, ok := Lookup(name)
		require.Truef(t, ok, "prefetch default %s should be registered", name)
	}
}

func TestSpecPathIn(t *testing.T) {
	t.Parallel()

	spec, ok := Lookup("base")
	require.True(t, ok)
	require.Equal(t, filepath.Join("/models", "ggml-base.bin"), spec.PathIn("/models"))
}

func TestRegistrySpecsHaveDownloadURLs(t *testing.T) {
	t.Parallel()

	for _, name := range Names() {
		spec, ok := Lookup(name)
		require.True(t, ok)
		require.NotEmptyf(t, spec.URL, "model %s should have a download URL", name)
		require.NotEmptyf(t, spec.FileName, "model %s should have a weights file name", name)
	}
}
