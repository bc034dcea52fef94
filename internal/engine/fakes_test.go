package engine

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nupi-ai/plugin-translate-local/internal/ct2"
	"github.com/nupi-ai/plugin-translate-local/internal/tokenizer"
)

type fakeTranslator struct {
	output  []string
	results []ct2.Result
	err     error
	panic   any
	calls   int
	lastIn  [][]string
	lastOpt ct2.Options
	closed  int
}

func (f *fakeTranslator) TranslateBatch(batch [][]string, opts ct2.Options) ([]ct2.Result, error) {
	f.calls++
	f.lastIn = batch
	f.lastOpt = opts
	if f.panic != nil {
		panic(f.panic)
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.results != nil {
		return f.results, nil
	}
	return []ct2.Result{{Hypotheses: [][]string{f.output}}}, nil
}

func (f *fakeTranslator) Close() error {
	f.closed++
	return nil
}

// fakeTokenizer splits on spaces and prefixes each word with the boundary
// marker, the way SentencePiece does.
type fakeTokenizer struct {
	path      string
	encodeErr error
	decodeErr error
	encoded   []string
	decoded   [][]string
	closed    int
}

func (f *fakeTokenizer) EncodeAsPieces(text string) ([]string, error) {
	f.encoded = append(f.encoded, text)
	if f.encodeErr != nil {
		return nil, f.encodeErr
	}
	var pieces []string
	for _, w := range strings.Fields(text) {
		pieces = append(pieces, WordBoundary+w)
	}
	return pieces, nil
}

func (f *fakeTokenizer) DecodePieces(pieces []string) (string, error) {
	f.decoded = append(f.decoded, pieces)
	if f.decodeErr != nil {
		return "", f.decodeErr
	}
	return strings.Join(pieces, ""), nil
}

func (f *fakeTokenizer) VocabSize() int { return 8 }

func (f *fakeTokenizer) Close() error {
	f.closed++
	return nil
}

type harness struct {
	translator *fakeTranslator
	tokenizers []*fakeTokenizer
	loadErr    error
	tokErr     map[string]error
	modelLoads int
}

func newHarness() *harness {
	return &harness{
		translator: &fakeTranslator{},
		tokErr:     map[string]error{},
	}
}

func (h *harness) loaders() Loaders {
	return Loaders{
		Translator: func(string, ct2.LoadConfig) (ct2.Translator, error) {
			h.modelLoads++
			if h.loadErr != nil {
				return nil, h.loadErr
			}
			return h.translator, nil
		},
		Tokenizer: func(path string) (tokenizer.Model, error) {
			if err := h.tokErr[filepath.Base(path)]; err != nil {
				return nil, err
			}
			tok := &fakeTokenizer{path: path}
			h.tokenizers = append(h.tokenizers, tok)
			return tok, nil
		},
		Config: ct2.DefaultLoadConfig(),
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func readyEngine(t *testing.T, h *harness, opts ...Option) *Engine {
	t.Helper()
	dir := t.TempDir()
	writeFiles(t, dir, "source.spm", "target.spm")
	e := New(append([]Option{WithLogger(discardLogger()), WithLoaders(h.loaders())}, opts...)...)
	if err := e.Initialize(dir); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return e
}

var errBoom = errors.New("boom")
