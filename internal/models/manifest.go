package models

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed embedded_manifest.yaml
var embeddedManifest []byte

var (
	// ErrChecksumMismatch is returned when a file differs from its manifest entry.
	ErrChecksumMismatch = errors.New("models: checksum mismatch")
	// ErrUnknownPair is returned when the manifest has no entry for a pair.
	ErrUnknownPair = errors.New("models: pair not in manifest")
	// ErrUnsafePath is returned for manifest paths that leave the pair directory.
	ErrUnsafePath = errors.New("models: manifest path escapes model directory")
)

// ManifestVersion is written by Manifest.Write.
const ManifestVersion = 1

// File is one artefact of a model pair.
type File struct {
	Path      string `yaml:"path"`
	SHA256    string `yaml:"sha256"`
	SizeBytes int64  `yaml:"size_bytes"`
}

// Entry lists the artefacts of one installed pair.
type Entry struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
	Type   string `yaml:"type"`
	Files  []File `yaml:"files"`
}

// Manifest maps Key(pair, type) to its entry.
type Manifest struct {
	Version int              `yaml:"version"`
	Pairs   map[string]Entry `yaml:"pairs"`
}

// Key returns the manifest key "<type>/<src>-<tgt>".
func Key(pair Pair, modelType string) string {
	return modelType + "/" + pair.String()
}

// LoadManifest decodes a YAML manifest.
func LoadManifest(r io.Reader) (Manifest, error) {
	var m Manifest
	if err := yaml.NewDecoder(r).Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return Manifest{}, fmt.Errorf("models: decode manifest: %w", err)
	}
	if m.Pairs == nil {
		m.Pairs = map[string]Entry{}
	}
	return m, nil
}

// DefaultManifest returns the manifest compiled into the binary.
func DefaultManifest() (Manifest, error) {
	return LoadManifest(bytes.NewReader(embeddedManifest))
}

// Write encodes m as YAML.
func (m Manifest) Write(w io.Writer) error {
	if m.Version == 0 {
		m.Version = ManifestVersion
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("models: encode manifest: %w", err)
	}
	return enc.Close()
}

// Lookup returns the entry for pair.
func (m Manifest) Lookup(pair Pair, modelType string) (Entry, error) {
	entry, ok := m.Pairs[Key(pair, modelType)]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrUnknownPair, Key(pair, modelType))
	}
	return entry, nil
}

// Describe checksums every regular file below dir, sorted by relative path.
func Describe(dir string) ([]File, error) {
	var files []File
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		sum, size, err := SHA256File(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, File{Path: filepath.ToSlash(rel), SHA256: sum, SizeBytes: size})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("models: describe %s: %w", dir, err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// Verify checks every file of entry inside dir. Paths must stay inside dir.
func Verify(dir string, entry Entry) error {
	for _, f := range entry.Files {
		path, err := resolveInside(dir, f.Path)
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("models: verify %s: %w", f.Path, err)
		}
		sum, size, err := SHA256File(path)
		if err != nil {
			return err
		}
		if f.SizeBytes > 0 && size != f.SizeBytes {
			return fmt.Errorf("%w: %s: size %d, want %d", ErrChecksumMismatch, f.Path, size, f.SizeBytes)
		}
		if f.SHA256 != "" && sum != f.SHA256 {
			return fmt.Errorf("%w: %s: sha256 %s, want %s", ErrChecksumMismatch, f.Path, sum, f.SHA256)
		}
	}
	return nil
}

func resolveInside(dir, name string) (string, error) {
	local := filepath.FromSlash(name)
	if name == "" || filepath.IsAbs(local) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	path := filepath.Join(dir, local)
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return path, nil
}
