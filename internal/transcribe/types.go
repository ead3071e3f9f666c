// Package transcribe runs one inference pass over decoded audio samples.
package transcribe

// Params are the decoding parameters of one job, already validated.
type Params struct {
	// Language is an ISO 639-1 hint; empty or "auto" enables language
	// identification in the same pass.
	Language string
	// Temperature controls the sampling fallback when beam search
	// degenerates on low-confidence segments.
	Temperature float64
	// BeamSize is the beam search width.
	BeamSize int
	// WordTimestamps enables the token-level alignment pass.
	WordTimestamps bool
	// Threads caps decoder threads; 0 lets the engine decide.
	Threads int
}

// Segment is one contiguous unit of recognized speech.
type Segment struct {
	Index            int
	Seek             int
	Start            float64
	End              float64
	Text             string
	Temperature      float64
	AvgLogProb       float64
	CompressionRatio float64
	NoSpeechProb     float64
}

// Word is one aligned word, produced only when requested.
type Word struct {
	Word  string
	Start float64
	End   float64
}

// Result is the complete output of one inference pass.
type Result struct {
	Segments []Segment
	// Words is nil unless word timestamps were requested and produced.
	Words    []Word
	Language string
	Text     string
	Device   string
	Model    string
}
