package unzip

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/unzip/internal/testutil"
)

func TestInspect(t *testing.T) {
	t.Parallel()

	src := NewBytesSource("listing.zip", testutil.BuildZip(t, "release notes",
		testutil.Dir("docs/"),
		testutil.File{Name: "docs/big.txt", Content: bytes.Repeat([]byte("a"), 4096), Method: zip.Deflate},
		testutil.Text("small.txt", "tiny"),
	))

	info, err := Inspect(src)
	require.NoError(t, err)

	assert.Equal(t, "listing.zip", info.Name())
	assert.Equal(t, "release notes", info.Comment())
	require.Len(t, info.Entries(), 3)
	assert.True(t, info.Entries()[0].IsDir)
	assert.Equal(t, "docs/big.txt", info.Entries()[1].Name)
	assert.Equal(t, 2, info.FileCount())
	assert.Equal(t, uint64(4100), info.TotalUncompressedSize())
	assert.Less(t, info.TotalCompressedSize(), uint64(4100))
	assert.Greater(t, info.CompressionRatio(), 90)
}

func TestInspectInvalid(t *testing.T) {
	t.Parallel()

	_, err := Inspect(NewBytesSource("junk.zip", []byte("junk")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "junk.zip")
}

func TestRatio(t *testing.T) {
	t.Parallel()

	tests := []struct {
		size, compressed uint64
		want             int
	}{
		{0, 0, 0},
		{100, 100, 0},
		{100, 120, 0},
		{100, 25, 75},
		{1000, 333, 67},
		{3, 1, 67},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Ratio(tt.size, tt.compressed), "Ratio(%d, %d)", tt.size, tt.compressed)
	}
}
