// Package models locates translation model pairs stored under the adapter
// data directory and verifies them against a checksum manifest.
package models

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Model package sizes.
const (
	TypeLite = "lite"
	TypeFull = "full"
)

var (
	// ErrInvalidModelType is returned for types other than lite and full.
	ErrInvalidModelType = errors.New("models: invalid model type")
	// ErrInvalidPair is returned for malformed <src>-<tgt> names.
	ErrInvalidPair = errors.New("models: invalid language pair")
	// ErrModelNotInstalled is returned when a pair directory is missing or empty.
	ErrModelNotInstalled = errors.New("models: model not installed")
)

// Types lists the model types in lookup order.
func Types() []string { return []string{TypeLite, TypeFull} }

// Pair is a translation direction.
type Pair struct {
	Source string
	Target string
}

func (p Pair) String() string { return p.Source + "-" + p.Target }

// ParsePair parses "<src>-<tgt>".
func ParsePair(s string) (Pair, error) {
	src, tgt, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok || src == "" || tgt == "" || strings.Contains(tgt, "-") {
		return Pair{}, fmt.Errorf("%w: %q", ErrInvalidPair, s)
	}
	return Pair{Source: src, Target: tgt}, nil
}

// Installed describes a pair directory holding at least one entry.
type Installed struct {
	Pair Pair
	Type string
	Dir  string
}

// Manager resolves model directories below <dataDir>/models.
type Manager struct {
	root string
	log  *slog.Logger
}

// NewManager ensures the models directory exists.
func NewManager(dataDir string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	root := filepath.Join(dataDir, "models")
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("models: create %s: %w", root, err)
	}
	return &Manager{
		root: root,
		log:  logger.With("component", "models"),
	}, nil
}

// ModelsDir returns the root of the model library.
func (m *Manager) ModelsDir() string { return m.root }

// PairDir returns <models>/<type>/<src>-<tgt> without touching the filesystem.
func (m *Manager) PairDir(pair Pair, modelType string) (string, error) {
	if err := validateType(modelType); err != nil {
		return "", err
	}
	if pair.Source == "" || pair.Target == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidPair, pair.String())
	}
	return filepath.Join(m.root, modelType, pair.String()), nil
}

// Installed lists non-empty pair directories, lite before full, pairs sorted.
func (m *Manager) Installed() ([]Installed, error) {
	var out []Installed
	for _, modelType := range Types() {
		typeDir := filepath.Join(m.root, modelType)
		entries, err := os.ReadDir(typeDir)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("models: list %s: %w", typeDir, err)
		}
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			if entry.IsDir() {
				names = append(names, entry.Name())
			}
		}
		sort.Strings(names)
		for _, name := range names {
			pair, err := ParsePair(name)
			if err != nil {
				m.log.Debug("skipping directory", "dir", name, "error", err)
				continue
			}
			dir := filepath.Join(typeDir, name)
			if !nonEmptyDir(dir) {
				continue
			}
			out = append(out, Installed{Pair: pair, Type: modelType, Dir: dir})
		}
	}
	return out, nil
}

// IsInstalled reports whether the pair directory exists and is not empty.
func (m *Manager) IsInstalled(pair Pair, modelType string) bool {
	dir, err := m.PairDir(pair, modelType)
	if err != nil {
		return false
	}
	return nonEmptyDir(dir)
}

// Resolve returns the model directory for pair. A non-empty override is used
// as is and must be a directory.
func (m *Manager) Resolve(pair Pair, modelType, override string) (string, error) {
	if trimmed := strings.TrimSpace(override); trimmed != "" {
		info, err := os.Stat(trimmed)
		if err != nil {
			return "", fmt.Errorf("models: model override: %w", err)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("models: model override %s is not a directory", trimmed)
		}
		return trimmed, nil
	}

	dir, err := m.PairDir(pair, modelType)
	if err != nil {
		return "", err
	}
	if !nonEmptyDir(dir) {
		return "", fmt.Errorf("%w: %s %s", ErrModelNotInstalled, modelType, pair)
	}
	return dir, nil
}

func validateType(modelType string) error {
	if modelType != TypeLite && modelType != TypeFull {
		return fmt.Errorf("%w: %q", ErrInvalidModelType, modelType)
	}
	return nil
}

func nonEmptyDir(dir string) bool {
	f, err := os.Open(dir)
	if err != nil {
		return false
	}
	defer f.Close()
	names, _ := f.Readdirnames(1)
	return len(names) > 0
}
