package engine

import "github.com/nupi-ai/plugin-translate-local/internal/ct2"

// Reserved pieces dropped from runtime output.
const (
	StartToken = "<s>"
	PadToken   = "<pad>"
	EndToken   = "</s>"
)

// DecodingParameters configures the runtime search. Values are copied into
// the engine; mutating a returned value never affects a running engine.
type DecodingParameters struct {
	MaxLength         int
	MinLength         int
	BeamSize          int
	RepetitionPenalty float32
	NoRepeatNgramSize int
	EndToken          string
	ReturnEndToken    bool
	DisableUnk        bool
}

// DefaultDecoding returns the parameters the adapter ships with.
func DefaultDecoding() DecodingParameters {
	return DecodingParameters{
		MaxLength:         100,
		MinLength:         1,
		BeamSize:          4,
		RepetitionPenalty: 1.5,
		NoRepeatNgramSize: 3,
		EndToken:          EndToken,
		ReturnEndToken:    false,
		DisableUnk:        true,
	}
}

// WithBeamSize returns a copy of p using n beams; n < 1 keeps the current value.
func (p DecodingParameters) WithBeamSize(n int) DecodingParameters {
	if n >= 1 {
		p.BeamSize = n
	}
	return p
}

func (p DecodingParameters) options() ct2.Options {
	return ct2.Options{
		BeamSize:          p.BeamSize,
		MaxDecodingLength: p.MaxLength,
		MinDecodingLength: p.MinLength,
		RepetitionPenalty: p.RepetitionPenalty,
		NoRepeatNgramSize: p.NoRepeatNgramSize,
		EndToken:          p.EndToken,
		ReturnEndToken:    p.ReturnEndToken,
		DisableUnk:        p.DisableUnk,
		NumHypotheses:     1,
	}
}
