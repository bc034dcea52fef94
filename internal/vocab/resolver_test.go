package vocab_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nupi-ai/plugin-translate-local/internal/vocab"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("spm"), 0o644))
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		files      []string
		wantSource string
		wantTarget string
		wantShared bool
	}{
		{
			name:       "separate vocabularies",
			files:      []string{"source.spm", "target.spm"},
			wantSource: "source.spm",
			wantTarget: "target.spm",
		},
		{
			name:       "separate wins over shared candidates",
			files:      []string{"vocab.spm", "source.spm", "target.spm", "spm.model"},
			wantSource: "source.spm",
			wantTarget: "target.spm",
		},
		{
			name:       "vocab.spm only",
			files:      []string{"vocab.spm"},
			wantSource: "vocab.spm",
			wantTarget: "vocab.spm",
			wantShared: true,
		},
		{
			name:       "generic names before one-sided files",
			files:      []string{"source.spm", "sentencepiece.model"},
			wantSource: "sentencepiece.model",
			wantTarget: "sentencepiece.model",
			wantShared: true,
		},
		{
			name:       "spm.model",
			files:      []string{"spm.model"},
			wantSource: "spm.model",
			wantTarget: "spm.model",
			wantShared: true,
		},
		{
			name:       "lone source",
			files:      []string{"source.spm"},
			wantSource: "source.spm",
			wantTarget: "source.spm",
			wantShared: true,
		},
		{
			name:       "lone target",
			files:      []string{"target.spm", "model.bin"},
			wantSource: "target.spm",
			wantTarget: "target.spm",
			wantShared: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFiles(t, dir, tc.files...)

			cfg, err := vocab.Resolve(dir)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dir, tc.wantSource), cfg.SourcePath)
			assert.Equal(t, filepath.Join(dir, tc.wantTarget), cfg.TargetPath)
			assert.Equal(t, tc.wantShared, cfg.Shared)
			if cfg.Shared {
				assert.Equal(t, cfg.SourcePath, cfg.TargetPath)
			}
		})
	}
}

func TestResolveNoVocabulary(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "model.bin", "config.json")

	_, err := vocab.Resolve(dir)
	require.ErrorIs(t, err, vocab.ErrNoVocabularyFound)
}

func TestResolveIgnoresDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "vocab.spm"), 0o755))
	writeFiles(t, dir, "spm.model")

	cfg, err := vocab.Resolve(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "spm.model"), cfg.SourcePath)
}

func TestResolveMissingDirectory(t *testing.T) {
	_, err := vocab.Resolve(filepath.Join(t.TempDir(), "absent"))
	require.ErrorIs(t, err, vocab.ErrNoVocabularyFound)
}

func TestStrategiesAreIndependent(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "source.spm", "target.spm")

	strategies := vocab.Strategies()
	require.Len(t, strategies, 2)
	assert.Equal(t, "separate", strategies[0].Name)

	shared, ok := strategies[1].Match(dir)
	require.True(t, ok)
	assert.True(t, shared.Shared)
	assert.Equal(t, filepath.Join(dir, "source.spm"), shared.SourcePath)

	cfg, err := vocab.ResolveWith(dir, strategies[1])
	require.NoError(t, err)
	assert.True(t, cfg.Shared)

	_, err = vocab.ResolveWith(dir)
	require.ErrorIs(t, err, vocab.ErrNoVocabularyFound)
}
