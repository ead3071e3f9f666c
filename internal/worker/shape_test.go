package worker

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/voxworks/whisperd/internal/transcribe"
)

func sampleResult() *transcribe.Result {
	return &transcribe.Result{
		Segments: []transcribe.Segment{
			{Index: 0, Start: 0, End: 2.4, Text: "Hello world.", AvgLogProb: -0.21, CompressionRatio: 1.1},
			{Index: 1, Seek: 240, Start: 2.4, End: 4.0, Text: "Goodbye.", AvgLogProb: -0.33, CompressionRatio: 1.0},
		},
		Words: []transcribe.Word{
			{Word: "Hello", Start: 0, End: 0.5},
			{Word: "world.", Start: 0.6, End: 1.1},
		},
		Language: "en",
		Text:     "Hello world. Goodbye.",
		Device:   "cuda",
		Model:    "base",
	}
}

func TestShapeBasicFields(t *testing.T) {
	t.Parallel()

	out, err := Shape(sampleResult(), false)
	require.NoError(t, err)
	require.Len(t, out.Segments, 2)
	require.Equal(t, 0, out.Segments[0].ID)
	require.Equal(t, 1, out.Segments[1].ID)
	require.Equal(t, "en", out.DetectedLanguage)
	require.Equal(t, "Hello world. Goodbye.", out.Transcription)
	require.Equal(t, "cuda", out.Device)
	require.Equal(t, "base", out.Model)
}

func TestShapeOmitsWordTimestampsWhenNotRequested(t *testing.T) {
	t.Parallel()

	out, err := Shape(sampleResult(), false)
	require.NoError(t, err)

	serialized, err := json.Marshal(out)
	require.NoError(t, err)
	require.NotContains(t, string(serialized), "word_timestamps")
}

func TestShapeOmitsWordTimestampsWhenEmpty(t *testing.T) {
	t.Parallel()

	result := sampleResult()
	result.Words = nil

	out, err := Shape(result, true)
	require.NoError(t, err)

	serialized, err := json.Marshal(out)
	require.NoError(t, err)
	require.NotContains(t, string(serialized), "word_timestamps")
}

func TestShapeIncludesWordTimestampsWhenRequested(t *testing.T) {
	t.Parallel()

	out, err := Shape(sampleResult(), true)
	require.NoError(t, err)
	require.Len(t, out.WordTimestamps, 2)
	require.Equal(t, "Hello", out.WordTimestamps[0].Word)
}

func TestShapeTranscriptionMatchesSegmentTexts(t *testing.T) {
	t.Parallel()

	out, err := Shape(sampleResult(), false)
	require.NoError(t, err)

	texts := make([]string, len(out.Segments))
	for i, seg := range out.Segments {
		require.Equal(t, i, seg.ID)
		texts[i] = seg.Text
	}
	require.Equal(t, strings.Join(texts, " "), out.Transcription)
}

func TestShapeNeverEmitsTokenData(t *testing.T) {
	t.Parallel()

	out, err := Shape(sampleResult(), true)
	require.NoError(t, err)

	serialized, err := json.Marshal(out)
	require.NoError(t, err)
	require.NotContains(t, string(serialized), "tokens")
}

func TestShapeEnforcesPayloadCeiling(t *testing.T) {
	t.Parallel()

	result := sampleResult()
	result.Text = strings.Repeat("a very long transcript ", 100)

	_, err := shapeWithLimit(result, false, 512)
	require.Error(t, err)
	require.Equal(t, KindPayloadTooLarge, KindOf(err))

	var structured *Error
	require.ErrorAs(t, err, &structured)
	require.Contains(t, structured.Message, "transcription succeeded")
}

func TestShapeEmptySegmentsSerializeAsEmptyList(t *testing.T) {
	t.Parallel()

	out, err := Shape(&transcribe.Result{Language: "en", Device: "cpu", Model: "base"}, false)
	require.NoError(t, err)

	serialized, err := json.Marshal(out)
	require.NoError(t, err)
	require.Contains(t, string(serialized), `"segments":[]`)
}
