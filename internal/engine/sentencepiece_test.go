package engine

import (
	"path/filepath"
	"testing"

	"github.com/nupi-ai/plugin-translate-local/internal/ct2"
	"github.com/nupi-ai/plugin-translate-local/internal/tokenizer"
	"github.com/nupi-ai/plugin-translate-local/internal/tokenizer/spmtest"
)

func TestSharedVocabularyWithRealTokenizer(t *testing.T) {
	dir := t.TempDir()
	spmtest.Write(t, dir, "vocab.spm", spmtest.HelloWorldBPE())

	logger := discardLogger()
	e := New(WithLogger(logger), WithLoaders(Loaders{
		Translator: ct2.StubLoader(logger),
		Tokenizer:  tokenizer.Load,
	}))
	if err := e.Initialize(dir); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer e.Close()

	if e.State() != StateReady {
		t.Fatalf("expected ready, got %s", e.State())
	}
	want := filepath.Join(dir, "vocab.spm")
	got := e.Vocabulary()
	if !got.Shared || got.SourcePath != want || got.TargetPath != want {
		t.Fatalf("unexpected vocabulary %+v", got)
	}

	out, err := e.Translate("Hello world!")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if out != "Hello world!" {
		t.Fatalf("Translate = %q", out)
	}

	out, err = e.Translate("")
	if err != nil || out != "" {
		t.Fatalf("Translate(\"\") = %q, %v", out, err)
	}
}

func TestUnsupportedTokenizerFailsInitialization(t *testing.T) {
	if tokenizer.NativeAvailable() {
		t.Skip("native sentencepiece runs unigram models")
	}
	dir := t.TempDir()
	spmtest.Write(t, dir, "vocab.spm", spmtest.HelloWorldUnigram())

	logger := discardLogger()
	e := New(WithLogger(logger), WithLoaders(Loaders{
		Translator: ct2.StubLoader(logger),
		Tokenizer:  tokenizer.Load,
	}))
	err := e.Initialize(dir)
	if err == nil {
		t.Fatalf("expected initialization to fail")
	}
	if e.State() != StateFailedInit {
		t.Fatalf("expected failed_init, got %s", e.State())
	}
}
