package worker

import (
	"encoding/json"

	"github.com/voxworks/whisperd/internal/transcribe"
)

// MaxPayloadBytes is the serialized-output ceiling imposed by the serving
// platform. Results that cannot fit are failed, never truncated.
const MaxPayloadBytes = 10 << 20

type SegmentOutput struct {
	ID               int     `json:"id"`
	Seek             int     `json:"seek"`
	Start            float64 `json:"start"`
	End              float64 `json:"end"`
	Text             string  `json:"text"`
	Temperature      float64 `json:"temperature"`
	AvgLogProb       float64 `json:"avg_logprob"`
	CompressionRatio float64 `json:"compression_ratio"`
	NoSpeechProb     float64 `json:"no_speech_prob"`
}

type WordOutput struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Output is the externally-visible response schema. Token-level data never
// appears here: it dominates payload size and has no downstream consumer.
type Output struct {
	Segments         []SegmentOutput `json:"segments"`
	WordTimestamps   []WordOutput    `json:"word_timestamps,omitempty"`
	DetectedLanguage string          `json:"detected_language"`
	Transcription    string          `json:"transcription"`
	Device           string          `json:"device"`
	Model            string          `json:"model"`
}

// Shape converts an engine result into the wire schema, enforcing the
// payload ceiling. The word_timestamps key is present only when alignment
// was requested and produced something; an empty placeholder would mislead
// callers into thinking alignment ran.
func Shape(result *transcribe.Result, wantWords bool) (*Output, error) {
	return shapeWithLimit(result, wantWords, MaxPayloadBytes)
}

func shapeWithLimit(result *transcribe.Result, wantWords bool, limit int) (*Output, error) {
	out := &Output{
		Segments:         make([]SegmentOutput, 0, len(result.Segments)),
		DetectedLanguage: result.Language,
		Transcription:    result.Text,
		Device:           result.Device,
		Model:            result.Model,
	}

	for _, seg := range result.Segments {
		out.Segments = append(out.Segments, SegmentOutput{
			ID:               seg.Index,
			Seek:             seg.Seek,
			Start:            seg.Start,
			End:              seg.End,
			Text:             seg.Text,
			Temperature:      seg.Temperature,
			AvgLogProb:       seg.AvgLogProb,
			CompressionRatio: seg.CompressionRatio,
			NoSpeechProb:     seg.NoSpeechProb,
		})
	}

	if wantWords && len(result.Words) > 0 {
		out.WordTimestamps = make([]WordOutput, 0, len(result.Words))
		for _, word := range result.Words {
			out.WordTimestamps = append(out.WordTimestamps, WordOutput{
				Word:  word.Word,
				Start: word.Start,
				End:   word.End,
			})
		}
	}

	serialized, err := json.Marshal(out)
	if err != nil {
		return nil, Errorf(KindInference, "serialize output: %v", err)
	}
	if len(serialized) > limit {
		return nil, Errorf(KindPayloadTooLarge,
			"transcription succeeded but its serialized output (%d bytes) exceeds the %d byte platform ceiling", len(serialized), limit)
	}

	return out, nil
}
