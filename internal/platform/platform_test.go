package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHintsAreSafe(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.bin")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	// Advisory calls may fail on some filesystems; they must never panic or
	// change the file's visible length.
	_ = Preallocate(f, 1<<20)
	_, err = f.Write([]byte("hello"))
	require.NoError(t, err)
	_ = DropCache(f, 5)
	_ = AdviseSequential(f)

	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size())
}

func TestMmap(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "in.bin")
	require.NoError(t, os.WriteFile(path, []byte("mapped content"), 0o600))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	b, err := Mmap(f, 14)
	if err == ErrMmapUnsupported {
		t.Skip("mmap unsupported")
	}
	require.NoError(t, err)
	defer func() { assert.NoError(t, Munmap(b)) }()
	assert.Equal(t, "mapped content", string(b))

	_, err = Mmap(f, 0)
	assert.ErrorIs(t, err, ErrMmapUnsupported)
}
