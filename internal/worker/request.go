package worker

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/voxworks/whisperd/internal/model"
)

// JobInput is the raw job schema received from the dispatcher.
type JobInput struct {
	Audio          string   `json:"audio" validate:"required,url"`
	Model          string   `json:"model"`
	Language       *string  `json:"language"`
	Temperature    *float64 `json:"temperature" validate:"omitempty,gte=0,lte=1"`
	BeamSize       *int     `json:"beam_size" validate:"omitempty,gte=1,lte=10"`
	WordTimestamps bool     `json:"word_timestamps"`
}

// Request is a validated job with defaults applied.
type Request struct {
	AudioURL string
	Model    string
	// Language is empty for auto-detection.
	Language       string
	Temperature    float64
	BeamSize       int
	WordTimestamps bool
}

var validate = validator.New()

// Validate checks ranges and the model enumeration, applying the platform
// defaults: model "base", temperature 0.0, beam size 5.
func (in JobInput) Validate() (Request, error) {
	if err := validate.Struct(in); err != nil {
		return Request{}, wrapError(KindValidation, "invalid job input", err)
	}

	req := Request{
		AudioURL:       in.Audio,
		Model:          in.Model,
		Temperature:    0.0,
		BeamSize:       5,
		WordTimestamps: in.WordTimestamps,
	}

	if req.Model == "" {
		req.Model = model.Default
	}
	if _, ok := model.Lookup(req.Model); !ok {
		return Request{}, Errorf(KindValidation,
			"invalid model: %q (valid models: %s)", req.Model, strings.Join(model.Names(), ", "))
	}

	if in.Language != nil {
		lang, err := normalizeLanguage(*in.Language)
		if err != nil {
			return Request{}, err
		}
		req.Language = lang
	}

	if in.Temperature != nil {
		req.Temperature = *in.Temperature
	}
	if in.BeamSize != nil {
		req.BeamSize = *in.BeamSize
	}

	return req, nil
}

func normalizeLanguage(raw string) (string, error) {
	lang := strings.ToLower(strings.TrimSpace(raw))
	if lang == "" || lang == "auto" {
		return "", nil
	}
	if len(lang) != 2 || !isASCIILetters(lang) {
		return "", Errorf(KindValidation, "invalid language: %q (want an ISO 639-1 code or \"auto\")", raw)
	}
	return lang, nil
}

func isASCIILetters(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
