package mmap

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.strata")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestMapping_ReadAt(t *testing.T) {
	content := []byte("Hello, Mmap!")
	m, err := Open(writeFile(t, content))
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, int64(len(content)), m.Size())
	assert.Equal(t, content, m.Bytes())

	buf := make([]byte, 5)
	n, err := m.ReadAt(buf, 7)
	require.NoError(t, err)
	assert.Equal(t, "Mmap!", string(buf[:n]))

	n, err = m.ReadAt(make([]byte, 10), 100)
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)

	long := make([]byte, 10)
	n, err = m.ReadAt(long, 7)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, "Mmap!", string(long[:n]))

	_, err = m.ReadAt(buf, -1)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestMapping_Empty(t *testing.T) {
	m, err := Open(writeFile(t, nil))
	require.NoError(t, err)

	assert.Zero(t, m.Size())
	assert.Empty(t, m.Bytes())
	assert.NoError(t, m.Advise(0, 0, Random))
	assert.NoError(t, m.Close())
}

func TestMapping_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMapping_SliceAndAdvise(t *testing.T) {
	data := make([]byte, 3*os.Getpagesize()+17)
	copy(data[100:], "LAYER")
	m, err := Open(writeFile(t, data))
	require.NoError(t, err)

	b, err := m.Slice(100, 5)
	require.NoError(t, err)
	assert.Equal(t, "LAYER", string(b))
	assert.Equal(t, 5, cap(b))

	_, err = m.Slice(m.Size()-1, 2)
	assert.ErrorIs(t, err, ErrOutOfBounds)

	assert.NoError(t, m.Advise(0, m.Size(), Random))
	assert.NoError(t, m.Advise(101, 4000, Sequential))
	assert.NoError(t, m.Advise(m.Size()-3, 3, Sequential))
	assert.ErrorIs(t, m.Advise(10, m.Size(), Random), ErrOutOfBounds)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	_, err = m.Slice(0, 1)
	assert.ErrorIs(t, err, ErrClosed)
	assert.Nil(t, m.Bytes())
	assert.ErrorIs(t, m.Advise(0, 1, Random), ErrClosed)
}
