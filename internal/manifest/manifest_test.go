package manifest

import (
	"context"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"

	"github.com/phrazzld/triggerworker/internal/platform/logger"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func digestOf(content string) string {
	sum := blake2b.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func newTestBuilder(t *testing.T) (*Builder, string) {
	t.Helper()
	src := t.TempDir()
	log, _ := logger.GetTestLogger(t)
	b, err := NewBuilder(src, filepath.Join(src, "manifest.json"), log)
	require.NoError(t, err)
	b.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	return b, src
}

func TestBuilder_Scan(t *testing.T) {
	t.Parallel()

	b, src := newTestBuilder(t)
	writeFile(t, filepath.Join(src, "b.txt"), "bravo")
	writeFile(t, filepath.Join(src, "a.txt"), "alpha")
	writeFile(t, filepath.Join(src, "nested", "c.txt"), "charlie!")
	writeFile(t, filepath.Join(src, ".hidden"), "secret")
	writeFile(t, filepath.Join(src, ".git", "HEAD"), "ref")
	writeFile(t, filepath.Join(src, "manifest.json"), "{}")

	m, err := b.Scan(context.Background())
	require.NoError(t, err)

	require.Len(t, m.Entries, 3)
	assert.Equal(t, "a.txt", m.Entries[0].Path)
	assert.Equal(t, "b.txt", m.Entries[1].Path)
	assert.Equal(t, "nested/c.txt", m.Entries[2].Path)
	assert.Equal(t, digestOf("alpha"), m.Entries[0].Digest)
	assert.Equal(t, int64(8), m.Entries[2].Size)
	assert.Equal(t, 3, m.TotalFiles)
	assert.Equal(t, int64(18), m.TotalBytes)
	assert.Equal(t, src, m.Root)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), m.GeneratedAt)
}

func TestBuilder_ScanEmptyDirectory(t *testing.T) {
	t.Parallel()

	b, _ := newTestBuilder(t)

	m, err := b.Scan(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, m.Entries)
	assert.Empty(t, m.Entries)
	assert.Zero(t, m.TotalBytes)
}

func TestBuilder_ScanErrors(t *testing.T) {
	t.Parallel()

	t.Run("missing source", func(t *testing.T) {
		t.Parallel()
		b, err := NewBuilder(filepath.Join(t.TempDir(), "missing"), filepath.Join(t.TempDir(), "m.json"), nil)
		require.NoError(t, err)

		_, err = b.Scan(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("source is a file", func(t *testing.T) {
		t.Parallel()
		file := filepath.Join(t.TempDir(), "file.txt")
		writeFile(t, file, "x")
		b, err := NewBuilder(file, filepath.Join(t.TempDir(), "m.json"), nil)
		require.NoError(t, err)

		_, err = b.Scan(context.Background())
		assert.ErrorIs(t, err, ErrSourceNotDirectory)
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()
		b, src := newTestBuilder(t)
		writeFile(t, filepath.Join(src, "a.txt"), "alpha")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := b.Scan(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestBuilder_Build(t *testing.T) {
	t.Parallel()

	b, src := newTestBuilder(t)
	writeFile(t, filepath.Join(src, "a.txt"), "alpha")

	require.NoError(t, b.Build(context.Background()))

	first, err := Read(b.OutputPath())
	require.NoError(t, err)
	require.Len(t, first.Entries, 1)
	assert.Equal(t, digestOf("alpha"), first.Entries[0].Digest)

	// Rebuilding an unchanged tree yields the same entries and ignores the manifest itself.
	require.NoError(t, b.Build(context.Background()))
	second, err := Read(b.OutputPath())
	require.NoError(t, err)
	assert.Equal(t, first.Entries, second.Entries)

	writeFile(t, filepath.Join(src, "a.txt"), "alpha v2")
	require.NoError(t, b.Build(context.Background()))
	third, err := Read(b.OutputPath())
	require.NoError(t, err)
	assert.Equal(t, digestOf("alpha v2"), third.Entries[0].Digest)

	// No temporary files are left behind.
	matches, err := filepath.Glob(filepath.Join(src, "manifest.json.tmp*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestBuilder_BuildCreatesOutputDirectory(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	out := filepath.Join(t.TempDir(), "nested", "out", "manifest.json")
	writeFile(t, filepath.Join(src, "a.txt"), "alpha")

	log, logBuf := logger.GetTestLogger(t)
	b, err := NewBuilder(src, out, log)
	require.NoError(t, err)

	require.NoError(t, b.Build(context.Background()))

	m, err := Read(out)
	require.NoError(t, err)
	assert.Equal(t, 1, m.TotalFiles)
	logger.AssertLogContains(t, logBuf, "manifest written")
	logger.AssertLogField(t, logBuf, "component", "manifest_builder")
}

func TestBuilder_Ignores(t *testing.T) {
	t.Parallel()

	b, src := newTestBuilder(t)

	assert.True(t, b.Ignores(filepath.Join(src, "manifest.json")))
	assert.True(t, b.Ignores(filepath.Join(src, "manifest.json.tmp123")))
	assert.True(t, b.Ignores(filepath.Join(src, ".swp")))
	assert.False(t, b.Ignores(filepath.Join(src, "data.csv")))
	assert.False(t, b.Ignores(filepath.Join(src, "sub", "manifest.json")))
}

func TestRead_Errors(t *testing.T) {
	t.Parallel()

	_, err := Read(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(t.TempDir(), "bad.json")
	writeFile(t, bad, "not json")
	_, err = Read(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode manifest")
}

func TestIsHidden(t *testing.T) {
	t.Parallel()

	assert.True(t, IsHidden(".git"))
	assert.True(t, IsHidden(".env"))
	assert.False(t, IsHidden("."))
	assert.False(t, IsHidden(".."))
	assert.False(t, IsHidden("file.txt"))
}
