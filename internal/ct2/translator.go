// Package ct2 is the boundary to the CTranslate2 inference runtime.
package ct2

import "errors"

// ErrNativeUnavailable indicates the binary was built without the ctranslate2 tag.
var ErrNativeUnavailable = errors.New("ct2: native runtime unavailable")

// Options mirrors ctranslate2::TranslationOptions for the fields the adapter sets.
type Options struct {
	BeamSize          int
	MaxDecodingLength int
	MinDecodingLength int
	RepetitionPenalty float32
	NoRepeatNgramSize int
	EndToken          string
	ReturnEndToken    bool
	DisableUnk        bool
	NumHypotheses     int
}

// Result holds the hypotheses produced for one input sequence.
type Result struct {
	Hypotheses [][]string
	Scores     []float32
}

// Output returns the best hypothesis, or nil when there is none.
func (r Result) Output() []string {
	if len(r.Hypotheses) == 0 {
		return nil
	}
	return r.Hypotheses[0]
}

// Translator runs a loaded sequence-to-sequence model.
type Translator interface {
	// TranslateBatch decodes each token sequence of batch.
	TranslateBatch(batch [][]string, opts Options) ([]Result, error)
	// Close releases the model.
	Close() error
}

// LoadConfig selects where and how a model is loaded.
type LoadConfig struct {
	Device      string
	ComputeType string
	Threads     int
}

// DefaultLoadConfig loads on CPU with the model's stored compute type.
func DefaultLoadConfig() LoadConfig {
	return LoadConfig{Device: "cpu", ComputeType: "default"}
}

// Loader opens a model directory.
type Loader func(modelDir string, cfg LoadConfig) (Translator, error)
