package ct2

import (
	"fmt"
	"log/slog"
	"os"
)

// StubTranslator echoes its input so the adapter can run without the native
// runtime. The end token and anything after it are dropped.
type StubTranslator struct {
	log      *slog.Logger
	modelDir string
	closed   bool
}

var _ Translator = (*StubTranslator)(nil)

// NewStubTranslator validates modelDir and returns an echoing Translator.
func NewStubTranslator(logger *slog.Logger, modelDir string) (*StubTranslator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	info, err := os.Stat(modelDir)
	if err != nil {
		return nil, fmt.Errorf("ct2: stat model dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("ct2: model path %s is not a directory", modelDir)
	}
	return &StubTranslator{
		log:      logger.With("component", "ct2.stub", "model_dir", modelDir),
		modelDir: modelDir,
	}, nil
}

// StubLoader adapts NewStubTranslator to the Loader signature.
func StubLoader(logger *slog.Logger) Loader {
	return func(modelDir string, _ LoadConfig) (Translator, error) {
		return NewStubTranslator(logger, modelDir)
	}
}

// TranslateBatch implements Translator.
func (t *StubTranslator) TranslateBatch(batch [][]string, opts Options) ([]Result, error) {
	if t.closed {
		return nil, fmt.Errorf("ct2: translator closed")
	}
	results := make([]Result, 0, len(batch))
	for _, tokens := range batch {
		out := make([]string, 0, len(tokens))
		for _, tok := range tokens {
			if tok == opts.EndToken {
				if opts.ReturnEndToken {
					out = append(out, tok)
				}
				break
			}
			out = append(out, tok)
		}
		if opts.MaxDecodingLength > 0 && len(out) > opts.MaxDecodingLength {
			out = out[:opts.MaxDecodingLength]
		}
		results = append(results, Result{Hypotheses: [][]string{out}, Scores: []float32{0}})
	}
	t.log.Debug("stub translation", "batch", len(batch))
	return results, nil
}

// Close implements Translator.
func (t *StubTranslator) Close() error {
	t.closed = true
	return nil
}
