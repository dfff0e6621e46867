// Package testutil builds ZIP archives in memory for tests.
package testutil

import (
	"bytes"
	"hash/crc32"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"

	"github.com/meigma/unzip/internal/zipcrypto"
)

// Encryption selects how a fixture entry is protected.
type Encryption uint8

// Fixture encryption schemes.
const (
	NoEncryption Encryption = iota
	ZipCrypto
	AES
)

// MethodZstd is the WinZip method number for Zstandard.
const MethodZstd = zstd.ZipMethodWinZip

// DefaultModTime is used for entries that do not set Modified.
var DefaultModTime = time.Date(2024, time.March, 9, 10, 20, 30, 0, time.UTC)

// File describes one fixture entry. Names ending in "/" are directories.
type File struct {
	Name    string
	Content []byte
	// Method is zip.Store, zip.Deflate or MethodZstd; any other value is
	// recorded with the content stored verbatim.
	Method   uint16
	Modified time.Time
	// Mode, when non-zero, is recorded as Unix permissions.
	Mode fs.FileMode

	Encryption Encryption
	Password   string
	// Strength defaults to AES-256.
	Strength zipcrypto.Strength
	// AEVersion defaults to 1 (CRC present).
	AEVersion uint16
}

// Text is shorthand for a stored file with string content.
func Text(name, content string) File {
	return File{Name: name, Content: []byte(content)}
}

// Dir is shorthand for a directory entry.
func Dir(name string) File {
	return File{Name: name}
}

// BuildZip encodes files, in order, into a ZIP archive.
func BuildZip(tb testing.TB, comment string, files ...File) []byte {
	tb.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(MethodZstd, zstd.ZipCompressor())
	for _, f := range files {
		if err := addFile(zw, f); err != nil {
			tb.Fatalf("testutil: add %s: %v", f.Name, err)
		}
	}
	if comment != "" {
		if err := zw.SetComment(comment); err != nil {
			tb.Fatalf("testutil: set comment: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		tb.Fatalf("testutil: close zip: %v", err)
	}
	return buf.Bytes()
}

// WriteZip builds an archive and writes it to dir/name, returning the path.
func WriteZip(tb testing.TB, dir, name string, files ...File) string {
	tb.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, BuildZip(tb, "", files...), 0o600); err != nil {
		tb.Fatalf("testutil: write %s: %v", path, err)
	}
	return path
}

func addFile(zw *zip.Writer, f File) error {
	modified := f.Modified
	if modified.IsZero() {
		modified = DefaultModTime
	}
	fh := &zip.FileHeader{Name: f.Name, Method: f.Method}
	if f.Mode != 0 {
		fh.SetMode(f.Mode)
	}

	if f.Encryption == NoEncryption && knownMethod(f.Method) {
		fh.Modified = modified
		w, err := zw.CreateHeader(fh)
		if err != nil {
			return err
		}
		_, err = w.Write(f.Content)
		return err
	}

	compressed, err := compress(f.Method, f.Content)
	if err != nil {
		return err
	}
	crc := crc32.ChecksumIEEE(f.Content)
	fh.ModifiedDate, fh.ModifiedTime = dosDateTime(modified)
	fh.CRC32 = crc
	fh.UncompressedSize64 = uint64(len(f.Content))

	var payload bytes.Buffer
	switch f.Encryption {
	case NoEncryption:
		payload.Write(compressed)
	case ZipCrypto:
		fh.Flags = 0x1
		w, err := zipcrypto.NewWriter(&payload, []byte(f.Password), zipcrypto.CheckByte(fh.Flags, crc, fh.ModifiedTime))
		if err != nil {
			return err
		}
		if _, err := w.Write(compressed); err != nil {
			return err
		}
	case AES:
		strength := f.Strength
		if strength == 0 {
			strength = zipcrypto.AES256
		}
		version := f.AEVersion
		if version == 0 {
			version = 1
		}
		if version == 2 {
			fh.CRC32 = 0
		}
		fh.Flags = 0x1
		fh.Method = zipcrypto.MethodAES
		fh.Extra = zipcrypto.Extra{Version: version, Strength: strength, Method: f.Method}.Bytes()
		w, err := zipcrypto.NewAESWriter(&payload, []byte(f.Password), strength)
		if err != nil {
			return err
		}
		if _, err := w.Write(compressed); err != nil {
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
	}
	fh.CompressedSize64 = uint64(payload.Len())

	w, err := zw.CreateRaw(fh)
	if err != nil {
		return err
	}
	_, err = w.Write(payload.Bytes())
	return err
}

func knownMethod(method uint16) bool {
	return method == zip.Store || method == zip.Deflate || method == MethodZstd
}

// compress encodes content with method; unknown methods are stored as is.
func compress(method uint16, content []byte) ([]byte, error) {
	var buf bytes.Buffer
	var w io.WriteCloser
	switch method {
	case zip.Store:
		return content, nil
	case zip.Deflate:
		fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			return nil, err
		}
		w = fw
	case MethodZstd:
		zw, err := zstd.ZipCompressor()(&buf)
		if err != nil {
			return nil, err
		}
		w = zw
	default:
		return content, nil
	}
	if _, err := w.Write(content); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func dosDateTime(t time.Time) (date, tm uint16) {
	t = t.UTC()
	//nolint:gosec // fixture dates fit the DOS range
	date = uint16(t.Day() + int(t.Month())<<5 + (t.Year()-1980)<<9)
	//nolint:gosec // always in range
	tm = uint16(t.Second()/2 + t.Minute()<<5 + t.Hour()<<11)
	return date, tm
}
