package archive

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/unzip/internal/testutil"
	"github.com/meigma/unzip/internal/zipcrypto"
	"github.com/meigma/unzip/internal/ziptype"
)

func openBytes(t *testing.T, data []byte) Reader {
	t.Helper()
	r, err := NewBytesSource("test.zip", data).Open()
	require.NoError(t, err)
	return r
}

func readEntry(r Reader, i int, password []byte) ([]byte, error) {
	var (
		rc  io.ReadCloser
		err error
	)
	if password == nil {
		rc, err = r.Open(i)
	} else {
		rc, err = r.OpenDecrypt(i, password)
	}
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func TestZipEntries(t *testing.T) {
	t.Parallel()

	mod := time.Date(2023, time.July, 4, 12, 30, 44, 0, time.UTC)
	data := testutil.BuildZip(t, "hello comment",
		testutil.Dir("docs/"),
		testutil.File{Name: "docs/readme.txt", Content: []byte("read me"), Modified: mod, Mode: 0o640},
		testutil.File{Name: "secret.bin", Content: []byte("x"), Encryption: testutil.ZipCrypto, Password: "pw"},
	)
	r := openBytes(t, data)

	require.Equal(t, 3, r.Len())
	assert.Equal(t, "hello comment", r.Comment())

	dir := r.Entry(0)
	assert.True(t, dir.IsDir)
	assert.Equal(t, "docs/", dir.Name)

	file := r.Entry(1)
	assert.Equal(t, 1, file.Index)
	assert.False(t, file.IsDir)
	assert.Equal(t, uint64(7), file.Size)
	assert.True(t, file.HasModified)
	assert.Equal(t, DateTime{Year: 2023, Month: 7, Day: 4, Hour: 12, Minute: 30, Second: 44}, file.Modified)
	assert.True(t, file.ModTime().Equal(mod))
	require.True(t, file.HasMode)
	assert.Equal(t, "-rw-r-----", file.Mode.String())
	assert.False(t, file.Encrypted)

	assert.True(t, r.Entry(2).Encrypted)
	assert.False(t, r.Entry(2).HasMode)
}

func TestZipOpenMethods(t *testing.T) {
	t.Parallel()

	content := bytes.Repeat([]byte("compressible content "), 500)
	data := testutil.BuildZip(t, "",
		testutil.File{Name: "store", Content: content, Method: zip.Store},
		testutil.File{Name: "deflate", Content: content, Method: zip.Deflate},
		testutil.File{Name: "zstd", Content: content, Method: testutil.MethodZstd},
	)
	r := openBytes(t, data)

	for i := range r.Len() {
		got, err := readEntry(r, i, nil)
		require.NoError(t, err, r.Entry(i).Name)
		assert.Equal(t, content, got, r.Entry(i).Name)
	}
}

func TestZipOpenEncryptedNeedsPassword(t *testing.T) {
	t.Parallel()

	data := testutil.BuildZip(t, "",
		testutil.File{Name: "a", Content: []byte("a"), Encryption: testutil.ZipCrypto, Password: "pw"},
		testutil.File{Name: "b", Content: []byte("b"), Encryption: testutil.AES, Password: "pw"},
	)
	r := openBytes(t, data)

	for i := range r.Len() {
		_, err := r.Open(i)
		assert.ErrorIs(t, err, ziptype.ErrPasswordRequired)
		_, err = r.OpenDecrypt(i, nil)
		assert.ErrorIs(t, err, ziptype.ErrPasswordRequired)
	}
}

func TestZipOpenDecrypt(t *testing.T) {
	t.Parallel()

	content := bytes.Repeat([]byte("top secret "), 300)
	tests := []struct {
		name string
		file testutil.File
	}{
		{name: "zipcrypto store", file: testutil.File{Encryption: testutil.ZipCrypto}},
		{name: "zipcrypto deflate", file: testutil.File{Encryption: testutil.ZipCrypto, Method: zip.Deflate}},
		{name: "aes256 store", file: testutil.File{Encryption: testutil.AES}},
		{name: "aes128 deflate", file: testutil.File{Encryption: testutil.AES, Strength: zipcrypto.AES128, Method: zip.Deflate}},
		{name: "aes192 zstd", file: testutil.File{Encryption: testutil.AES, Strength: zipcrypto.AES192, Method: testutil.MethodZstd}},
		{name: "aes ae-2", file: testutil.File{Encryption: testutil.AES, AEVersion: 2, Method: zip.Deflate}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := tt.file
			f.Name = "entry.txt"
			f.Content = content
			f.Password = "correct horse"
			r := openBytes(t, testutil.BuildZip(t, "", f))

			got, err := readEntry(r, 0, []byte("correct horse"))
			require.NoError(t, err)
			assert.Equal(t, content, got)

			_, err = readEntry(r, 0, []byte("battery staple"))
			assert.ErrorIs(t, err, ziptype.ErrInvalidPassword)
		})
	}
}

func TestZipOpenDecryptPlainEntry(t *testing.T) {
	t.Parallel()

	r := openBytes(t, testutil.BuildZip(t, "", testutil.Text("plain.txt", "plain")))
	got, err := readEntry(r, 0, []byte("ignored"))
	require.NoError(t, err)
	assert.Equal(t, "plain", string(got))
}

func TestZipChecksumMismatch(t *testing.T) {
	t.Parallel()

	data := testutil.BuildZip(t, "", testutil.Text("file.txt", "original payload"))
	idx := bytes.Index(data, []byte("original payload"))
	require.Positive(t, idx)
	data[idx] = 'O'

	r := openBytes(t, data)
	_, err := readEntry(r, 0, nil)
	assert.ErrorIs(t, err, ziptype.ErrChecksum)
}

func TestZipUnsupportedMethod(t *testing.T) {
	t.Parallel()

	data := testutil.BuildZip(t, "", testutil.File{Name: "bzip", Content: []byte("x"), Method: 12})
	r := openBytes(t, data)
	_, err := r.Open(0)
	assert.ErrorIs(t, err, ziptype.ErrUnsupportedMethod)
}

func TestZipValidatedPath(t *testing.T) {
	t.Parallel()

	data := testutil.BuildZip(t, "",
		testutil.Text("ok/file.txt", "1"),
		testutil.Text("../evil.txt", "2"),
	)
	r := openBytes(t, data)

	got, ok := r.ValidatedPath(0)
	assert.True(t, ok)
	assert.Equal(t, "ok/file.txt", got)

	_, ok = r.ValidatedPath(1)
	assert.False(t, ok)
}

func TestValidatePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{name: "a.txt", want: "a.txt", ok: true},
		{name: "dir/", want: "dir", ok: true},
		{name: "a/./b", want: "a/b", ok: true},
		{name: "a/../b", want: "b", ok: true},
		{name: "", ok: false},
		{name: "/", ok: false},
		{name: "./", ok: false},
		{name: "/etc/passwd", ok: false},
		{name: "../x", ok: false},
		{name: "a/../../x", ok: false},
		{name: "..", ok: false},
		{name: `dir\file`, ok: false},
		{name: "C:/windows", ok: false},
		{name: "nul\x00byte", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := validatePath(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDateTimeFromDOS(t *testing.T) {
	t.Parallel()

	_, ok := DateTimeFromDOS(0, 0)
	assert.False(t, ok)

	// 2021-02-03 04:05:06
	date := uint16(3 | 2<<5 | (2021-1980)<<9)
	tm := uint16(3 | 5<<5 | 4<<11)
	dt, ok := DateTimeFromDOS(date, tm)
	require.True(t, ok)
	assert.Equal(t, DateTime{Year: 2021, Month: 2, Day: 3, Hour: 4, Minute: 5, Second: 6}, dt)
	assert.Equal(t, time.Date(2021, 2, 3, 4, 5, 6, 0, time.UTC), dt.Time())
	assert.Equal(t, "2021-02-03 04:05:06", dt.String())

	assert.True(t, Entry{}.ModTime().IsZero())
}

func TestBytesSourceIndependentReaders(t *testing.T) {
	t.Parallel()

	src := NewBytesSource("mem.zip", testutil.BuildZip(t, "",
		testutil.Text("a", "alpha"),
		testutil.Text("b", "bravo"),
	))
	defer src.Close()

	r1, err := src.Open()
	require.NoError(t, err)
	r2, err := src.Open()
	require.NoError(t, err)

	s1, err := r1.Open(0)
	require.NoError(t, err)
	defer s1.Close()
	s2, err := r2.Open(1)
	require.NoError(t, err)
	defer s2.Close()

	// Interleave reads from both streams.
	b1 := make([]byte, 2)
	b2 := make([]byte, 2)
	_, err = io.ReadFull(s1, b1)
	require.NoError(t, err)
	_, err = io.ReadFull(s2, b2)
	require.NoError(t, err)
	rest1, err := io.ReadAll(s1)
	require.NoError(t, err)
	rest2, err := io.ReadAll(s2)
	require.NoError(t, err)

	assert.Equal(t, "alpha", string(b1)+string(rest1))
	assert.Equal(t, "bravo", string(b2)+string(rest2))
}

func TestBytesSourceInvalid(t *testing.T) {
	t.Parallel()

	src := NewBytesSource("junk.zip", []byte("not a zip file at all"))
	_, err := src.Open()
	require.Error(t, err)
	assert.ErrorIs(t, err, zip.ErrFormat)
	assert.Contains(t, err.Error(), "junk.zip")

	// The parse result is cached.
	_, err2 := src.Open()
	assert.Equal(t, err, err2)
}
