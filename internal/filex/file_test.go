package filex

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureDir_CreatesNested(t *testing.T) {
	tmp := t.TempDir()
	want := filepath.Join(tmp, "a", "b")

	got, err := EnsureDir(want)
	require.NoError(t, err)
	require.Equal(t, want, got)

	fi, err := os.Stat(want)
	require.NoError(t, err)
	require.True(t, fi.IsDir())

	// idempotent
	_, err = EnsureDir(want)
	require.NoError(t, err)
}

func TestEnsureParentDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "data", "finny.db")
	require.NoError(t, EnsureParentDir(file))

	fi, err := os.Stat(filepath.Dir(file))
	require.NoError(t, err)
	require.True(t, fi.IsDir())
}

func TestEnsureDir_FailsUnderFile(t *testing.T) {
	tmp := t.TempDir()
	blocker := filepath.Join(tmp, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	_, err := EnsureDir(filepath.Join(blocker, "sub"))
	require.Error(t, err)
}

func TestReadAttachment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "receipt.png")
	png := []byte("\x89PNG\r\n\x1a\n0000")
	require.NoError(t, os.WriteFile(path, png, 0o600))

	a, err := ReadAttachment(path, 1024)
	require.NoError(t, err)
	require.Equal(t, "receipt.png", a.Name)
	require.Equal(t, "image/png", a.ContentType)
	require.Equal(t, png, a.Data)

	_, err = ReadAttachment(path, 4)
	require.True(t, errors.Is(err, ErrTooLarge))

	a, err = ReadAttachment(path, 0)
	require.NoError(t, err)
	require.Len(t, a.Data, len(png))

	_, err = ReadAttachment(filepath.Join(dir, "missing.png"), 0)
	require.Error(t, err)
}
