package core

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "points.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o600))

	f, err := OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, "points.csv", f.Name())
	assert.Equal(t, int64(8), f.Size())

	buf := make([]byte, 3)
	n, err := f.ReadAt(buf, 4)
	require.NoError(t, err)
	assert.Equal(t, "1,2", string(buf[:n]))
}

func TestOpenFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := OpenFile(filepath.Join(dir, "missing.csv"))
	assert.ErrorIs(t, err, ErrUnreadableFile)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = OpenFile(dir)
	assert.ErrorIs(t, err, ErrUnreadableFile)
}

func TestNewFileHandle(t *testing.T) {
	h := NewFileHandle("a.json", 2, strings.NewReader("[]"))
	assert.Equal(t, "a.json", h.Name())
	assert.Equal(t, int64(2), h.Size())

	got, err := io.ReadAll(io.NewSectionReader(h, 0, h.Size()))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))
}
