package transcribe

import (
	"bytes"
	"compress/zlib"
	"math"
	"sort"
	"strings"
	"time"
)

// rawSegment mirrors the engine's native segment output before shaping.
type rawSegment struct {
	start  time.Duration
	end    time.Duration
	text   string
	tokens []rawToken
}

type rawToken struct {
	text  string
	p     float32
	start time.Duration
	end   time.Duration
}

// assembleSegments orders segments chronologically and assigns sequential
// indices from zero. Confidence metadata is derived from the token stream:
// avg_logprob is the mean token log-probability, compression_ratio the zlib
// ratio of the text. The bindings do not surface the model's no-speech
// probability, so it is reported as zero.
func assembleSegments(raw []rawSegment, temperature float64) []Segment {
	ordered := make([]rawSegment, len(raw))
	copy(ordered, raw)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].start < ordered[j].start
	})

	segments := make([]Segment, 0, len(ordered))
	for i, seg := range ordered {
		text := strings.TrimSpace(seg.text)
		segments = append(segments, Segment{
			Index:            i,
			Seek:             int(seg.start / (10 * time.Millisecond)),
			Start:            seg.start.Seconds(),
			End:              seg.end.Seconds(),
			Text:             text,
			Temperature:      temperature,
			AvgLogProb:       meanLogProb(seg.tokens),
			CompressionRatio: compressionRatio(text),
		})
	}
	return segments
}

// assembleWords merges token-level timestamps into word alignments. Whisper
// starts a new word with a leading space; punctuation tokens attach to the
// preceding word.
func assembleWords(raw []rawSegment) []Word {
	var words []Word
	for _, seg := range raw {
		for _, token := range seg.tokens {
			if isSpecialToken(token.text) || strings.TrimSpace(token.text) == "" {
				continue
			}

			if len(words) == 0 || strings.HasPrefix(token.text, " ") {
				words = append(words, Word{
					Word:  strings.TrimSpace(token.text),
					Start: token.start.Seconds(),
					End:   token.end.Seconds(),
				})
				continue
			}

			last := &words[len(words)-1]
			last.Word += token.text
			last.End = token.end.Seconds()
		}
	}
	return words
}

func joinSegmentTexts(segments []Segment) string {
	texts := make([]string, 0, len(segments))
	for _, seg := range segments {
		texts = append(texts, seg.Text)
	}
	return strings.Join(texts, " ")
}

func meanLogProb(tokens []rawToken) float64 {
	var sum float64
	var count int
	for _, token := range tokens {
		if isSpecialToken(token.text) || token.p <= 0 {
			continue
		}
		sum += math.Log(float64(token.p))
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func compressionRatio(text string) float64 {
	if text == "" {
		return 0
	}

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, _ = zw.Write([]byte(text))
	_ = zw.Close()

	return float64(len(text)) / float64(buf.Len())
}

func isSpecialToken(text string) bool {
	return strings.HasPrefix(text, "[_") || strings.HasPrefix(text, "<|")
}
