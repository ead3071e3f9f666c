package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/voxworks/whisperd/internal/device"
	"github.com/voxworks/whisperd/internal/worker"
)

type stubRunner struct {
	output *worker.Output
	err    error

	gotInput worker.JobInput
}

func (s *stubRunner) Handle(_ context.Context, input worker.JobInput) (*worker.Output, error) {
	s.gotInput = input
	if s.err != nil {
		return nil, s.err
	}
	return s.output, nil
}

func newTestServer(runner Runner) *httptest.Server {
	router := New(Options{
		Runner:       runner,
		Profile:      device.Profile{Device: device.CPU, Precision: device.Full},
		LoadedModels: func() []string { return []string{"base"} },
		Version:      "1.0.0-test",
	})
	return httptest.NewServer(router)
}

func postJob(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()

	resp, err := http.Post(url+"/run", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestRunCompletedJob(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{output: &worker.Output{
		Segments:         []worker.SegmentOutput{{ID: 0, Text: "Hello."}},
		DetectedLanguage: "en",
		Transcription:    "Hello.",
		Device:           "cpu",
		Model:            "base",
	}}
	server := newTestServer(runner)
	defer server.Close()

	resp, body := postJob(t, server.URL, `{"id":"job-1","input":{"audio":"https://example.com/a.mp3"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "job-1", body["id"])
	require.Equal(t, "COMPLETED", body["status"])

	output, ok := body["output"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "en", output["detected_language"])
	require.NotContains(t, output, "word_timestamps")
	require.Equal(t, "https://example.com/a.mp3", runner.gotInput.Audio)
}

func TestRunMintsJobIDWhenAbsent(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{output: &worker.Output{Transcription: "x"}}
	server := newTestServer(runner)
	defer server.Close()

	_, body := postJob(t, server.URL, `{"input":{"audio":"https://example.com/a.mp3"}}`)
	id, ok := body["id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, id)
}

func TestRunFailureStatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		kind worker.Kind
		want int
	}{
		{worker.KindValidation, http.StatusBadRequest},
		{worker.KindAcquisition, http.StatusUnprocessableEntity},
		{worker.KindModelLoad, http.StatusInternalServerError},
		{worker.KindInference, http.StatusInternalServerError},
		{worker.KindPayloadTooLarge, http.StatusRequestEntityTooLarge},
	}

	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			t.Parallel()

			runner := &stubRunner{err: worker.Errorf(tc.kind, "boom")}
			server := newTestServer(runner)
			defer server.Close()

			resp, body := postJob(t, server.URL, `{"input":{"audio":"https://example.com/a.mp3"}}`)
			require.Equal(t, tc.want, resp.StatusCode)
			require.Equal(t, "FAILED", body["status"])

			errBody, ok := body["error"].(map[string]any)
			require.True(t, ok)
			require.Equal(t, string(tc.kind), errBody["kind"])
			require.Equal(t, "boom", errBody["message"])
		})
	}
}

func TestRunRejectsMalformedEnvelope(t *testing.T) {
	t.Parallel()

	server := newTestServer(&stubRunner{})
	defer server.Close()

	resp, body := postJob(t, server.URL, `{not json`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	errBody, ok := body["error"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, string(worker.KindValidation), errBody["kind"])
}

func TestHealth(t *testing.T) {
	t.Parallel()

	server := newTestServer(&stubRunner{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "healthy", body["status"])
	require.Equal(t, "cpu", body["device"])
	require.Equal(t, []any{"base"}, body["loaded_models"])
}

func TestVersion(t *testing.T) {
	t.Parallel()

	server := newTestServer(&stubRunner{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/version")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "1.0.0-test", body["version"])
}
