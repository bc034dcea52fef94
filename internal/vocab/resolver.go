// Package vocab decides which SentencePiece model files inside a model
// directory serve as the source and target vocabularies.
package vocab

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// File names looked up inside a model directory.
const (
	SourceFile = "source.spm"
	TargetFile = "target.spm"
)

// SharedCandidates lists shared-vocabulary file names in lookup order. The
// trailing source/target entries cover packages that ship only one side.
var SharedCandidates = []string{
	"vocab.spm",
	"sentencepiece.model",
	"spm.model",
	SourceFile,
	TargetFile,
}

// ErrNoVocabularyFound is returned when no strategy matches.
var ErrNoVocabularyFound = errors.New("vocab: no vocabulary found")

// Config describes the tokenizer models used for each side of a translation.
type Config struct {
	SourcePath string
	TargetPath string
	Shared     bool
}

// Strategy inspects a directory and reports a configuration when it applies.
type Strategy struct {
	Name  string
	Match func(dir string) (Config, bool)
}

// Strategies returns the resolution order used by Resolve.
func Strategies() []Strategy {
	return []Strategy{
		{Name: "separate", Match: separateVocabularies},
		{Name: "shared", Match: sharedVocabulary},
	}
}

// Resolve runs the default strategies against modelDir.
func Resolve(modelDir string) (Config, error) {
	return ResolveWith(modelDir, Strategies()...)
}

// ResolveWith tries strategies in order; the first match wins.
func ResolveWith(modelDir string, strategies ...Strategy) (Config, error) {
	for _, s := range strategies {
		if s.Match == nil {
			continue
		}
		if cfg, ok := s.Match(modelDir); ok {
			return cfg, nil
		}
	}
	return Config{}, fmt.Errorf("%w in %s", ErrNoVocabularyFound, modelDir)
}

func separateVocabularies(dir string) (Config, bool) {
	source := filepath.Join(dir, SourceFile)
	target := filepath.Join(dir, TargetFile)
	if !isFile(source) || !isFile(target) {
		return Config{}, false
	}
	return Config{SourcePath: source, TargetPath: target}, true
}

func sharedVocabulary(dir string) (Config, bool) {
	for _, name := range SharedCandidates {
		path := filepath.Join(dir, name)
		if isFile(path) {
			return Config{SourcePath: path, TargetPath: path, Shared: true}, true
		}
	}
	return Config{}, false
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
