package models

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func installPair(t *testing.T, m *Manager, pair Pair, modelType string, files map[string]string) string {
	t.Helper()
	dir, err := m.PairDir(pair, modelType)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestParsePair(t *testing.T) {
	pair, err := ParsePair("en-de")
	require.NoError(t, err)
	assert.Equal(t, Pair{Source: "en", Target: "de"}, pair)
	assert.Equal(t, "en-de", pair.String())

	for _, bad := range []string{"", "en", "en-", "-de", "en-de-fr"} {
		_, err := ParsePair(bad)
		assert.ErrorIs(t, err, ErrInvalidPair, bad)
	}
}

func TestPairDir(t *testing.T) {
	m, err := NewManager(t.TempDir(), nil)
	require.NoError(t, err)

	dir, err := m.PairDir(Pair{"en", "de"}, TypeFull)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(m.ModelsDir(), "full", "en-de"), dir)

	_, err = m.PairDir(Pair{"en", "de"}, "medium")
	assert.ErrorIs(t, err, ErrInvalidModelType)
	_, err = m.PairDir(Pair{Source: "en"}, TypeLite)
	assert.ErrorIs(t, err, ErrInvalidPair)
}

func TestInstalled(t *testing.T) {
	m, err := NewManager(t.TempDir(), nil)
	require.NoError(t, err)

	installPair(t, m, Pair{"fr", "en"}, TypeLite, map[string]string{"model.bin": "x"})
	installPair(t, m, Pair{"de", "en"}, TypeLite, map[string]string{"model.bin": "x"})
	installPair(t, m, Pair{"de", "en"}, TypeFull, map[string]string{"model.bin": "x"})
	installPair(t, m, Pair{"es", "en"}, TypeFull, nil)
	require.NoError(t, os.MkdirAll(filepath.Join(m.ModelsDir(), TypeLite, "garbage"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(m.ModelsDir(), TypeLite, "garbage", "f"), []byte("x"), 0o644))

	installed, err := m.Installed()
	require.NoError(t, err)
	require.Len(t, installed, 3)
	assert.Equal(t, Installed{Pair: Pair{"de", "en"}, Type: TypeLite, Dir: filepath.Join(m.ModelsDir(), "lite", "de-en")}, installed[0])
	assert.Equal(t, Pair{"fr", "en"}, installed[1].Pair)
	assert.Equal(t, TypeFull, installed[2].Type)

	assert.True(t, m.IsInstalled(Pair{"de", "en"}, TypeFull))
	assert.False(t, m.IsInstalled(Pair{"es", "en"}, TypeFull))
}

func TestResolve(t *testing.T) {
	m, err := NewManager(t.TempDir(), nil)
	require.NoError(t, err)
	dir := installPair(t, m, Pair{"pl", "en"}, TypeLite, map[string]string{"vocab.spm": "x"})

	got, err := m.Resolve(Pair{"pl", "en"}, TypeLite, "")
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	_, err = m.Resolve(Pair{"pl", "en"}, TypeFull, "")
	assert.ErrorIs(t, err, ErrModelNotInstalled)

	override := t.TempDir()
	got, err = m.Resolve(Pair{"xx", "yy"}, TypeFull, override)
	require.NoError(t, err)
	assert.Equal(t, override, got)

	_, err = m.Resolve(Pair{"pl", "en"}, TypeLite, filepath.Join(override, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSHA256File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	sum, size, err := SHA256File(path)
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", sum)
	assert.EqualValues(t, 3, size)
}

func TestManifestRoundTripAndVerify(t *testing.T) {
	m, err := NewManager(t.TempDir(), nil)
	require.NoError(t, err)
	pair := Pair{"en", "uk"}
	dir := installPair(t, m, pair, TypeLite, map[string]string{
		"model.bin":     "weights",
		"source.spm":    "src",
		"target.spm":    "tgt",
		"shared/config": "{}",
	})

	files, err := Describe(dir)
	require.NoError(t, err)
	require.Len(t, files, 4)
	assert.Equal(t, "model.bin", files[0].Path)
	assert.Equal(t, "shared/config", files[1].Path)

	manifest := Manifest{Pairs: map[string]Entry{
		Key(pair, TypeLite): {Source: "en", Target: "uk", Type: TypeLite, Files: files},
	}}
	var buf bytes.Buffer
	require.NoError(t, manifest.Write(&buf))

	loaded, err := LoadManifest(&buf)
	require.NoError(t, err)
	assert.Equal(t, ManifestVersion, loaded.Version)
	entry, err := loaded.Lookup(pair, TypeLite)
	require.NoError(t, err)
	require.NoError(t, Verify(dir, entry))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "model.bin"), []byte("tampered"), 0o644))
	assert.ErrorIs(t, Verify(dir, entry), ErrChecksumMismatch)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "model.bin"), []byte("weights"), 0o644))

	require.NoError(t, os.Remove(filepath.Join(dir, "source.spm")))
	assert.ErrorIs(t, Verify(dir, entry), os.ErrNotExist)

	_, err = loaded.Lookup(pair, TypeFull)
	assert.ErrorIs(t, err, ErrUnknownPair)
}

func TestVerifyRejectsPathsOutsidePairDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "pair")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "outside"), []byte("secret"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "model.bin"), []byte("weights"), 0o644))

	for _, name := range []string{"../outside", "sub/../../outside", "..", "", "/etc/passwd", "."} {
		entry := Entry{Files: []File{{Path: name}}}
		assert.ErrorIs(t, Verify(dir, entry), ErrUnsafePath, name)
	}

	entry := Entry{Files: []File{{Path: "sub/../model.bin"}}}
	assert.NoError(t, Verify(dir, entry))
}

func TestDefaultManifest(t *testing.T) {
	manifest, err := DefaultManifest()
	require.NoError(t, err)
	assert.Equal(t, ManifestVersion, manifest.Version)
	assert.NotNil(t, manifest.Pairs)
}
