package archive

import (
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"io/fs"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"

	"github.com/meigma/unzip/internal/zipcrypto"
	"github.com/meigma/unzip/internal/ziptype"
)

const (
	flagEncrypted       = 0x1
	flagStrongEncrypted = 0x40

	creatorUnix   = 3
	creatorDarwin = 19
)

var decompressors = map[uint16]zip.Decompressor{
	zip.Store:            io.NopCloser,
	zip.Deflate:          flate.NewReader,
	zstd.ZipMethodWinZip: zstd.ZipDecompressor(),
}

// catalog is the parsed central directory, shared read-only by every Zip
// handle opened from the same source.
type catalog struct {
	zr      *zip.Reader
	entries []Entry
}

func parse(ra io.ReaderAt, size int64) (*catalog, error) {
	zr, err := zip.NewReader(ra, size)
	// Unsafe names are handled per entry by ValidatedPath.
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, err
	}
	zr.RegisterDecompressor(zstd.ZipMethodWinZip, decompressors[zstd.ZipMethodWinZip])

	entries := make([]Entry, len(zr.File))
	for i, f := range zr.File {
		entries[i] = newEntry(i, &f.FileHeader)
	}
	return &catalog{zr: zr, entries: entries}, nil
}

func newEntry(i int, fh *zip.FileHeader) Entry {
	e := Entry{
		Index:          i,
		Name:           fh.Name,
		IsDir:          strings.HasSuffix(fh.Name, "/"),
		Size:           fh.UncompressedSize64,
		CompressedSize: fh.CompressedSize64,
		CRC32:          fh.CRC32,
		Method:         fh.Method,
		Encrypted:      fh.Flags&flagEncrypted != 0,
	}
	e.Modified, e.HasModified = DateTimeFromDOS(fh.ModifiedDate, fh.ModifiedTime)
	if creator := fh.CreatorVersion >> 8; creator == creatorUnix || creator == creatorDarwin {
		if mode := fs.FileMode(fh.ExternalAttrs>>16) & fs.ModePerm; mode != 0 {
			e.Mode, e.HasMode = mode, true
		}
	}
	return e
}

// Zip is a Reader over a ZIP container.
type Zip struct {
	cat *catalog
}

// Len returns the number of entries.
func (z *Zip) Len() int {
	return len(z.cat.entries)
}

// Entry returns the metadata of entry i.
func (z *Zip) Entry(i int) Entry {
	return z.cat.entries[i]
}

// Comment returns the archive comment.
func (z *Zip) Comment() string {
	return z.cat.zr.Comment
}

// ValidatedPath returns the cleaned name of entry i if it is safe to join to
// an extraction root.
func (z *Zip) ValidatedPath(i int) (string, bool) {
	return validatePath(z.cat.entries[i].Name)
}

// Open returns the decoded content of a plain entry. The stream verifies the
// CRC-32 at EOF.
func (z *Zip) Open(i int) (io.ReadCloser, error) {
	f := z.cat.zr.File[i]
	if f.Flags&flagEncrypted != 0 {
		return nil, ziptype.ErrPasswordRequired
	}
	rc, err := f.Open()
	if err != nil {
		return nil, mapError(err)
	}
	return &errMapper{rc: rc}, nil
}

// OpenDecrypt decrypts, decodes, and verifies an encrypted entry. Plain
// entries are opened as by Open.
func (z *Zip) OpenDecrypt(i int, password []byte) (io.ReadCloser, error) {
	f := z.cat.zr.File[i]
	if f.Flags&flagEncrypted == 0 {
		return z.Open(i)
	}
	if f.Flags&flagStrongEncrypted != 0 {
		return nil, fmt.Errorf("%w: strong encryption", ziptype.ErrUnsupportedEncryption)
	}
	if len(password) == 0 {
		return nil, ziptype.ErrPasswordRequired
	}
	raw, err := f.OpenRaw()
	if err != nil {
		return nil, mapError(err)
	}

	var (
		plain  io.Reader
		method = f.Method
		// A CRC mismatch after ZipCrypto means a wrong key that slipped past
		// the one-byte check; after an authenticated AES payload it is
		// corruption.
		crcErr   = ziptype.ErrInvalidPassword
		checkCRC = true
	)
	if f.Method == zipcrypto.MethodAES {
		extra, ok := zipcrypto.ParseExtra(f.Extra)
		if !ok {
			return nil, fmt.Errorf("%w: missing AES extra field", ziptype.ErrUnsupportedEncryption)
		}
		plain, err = zipcrypto.NewAESReader(raw, password, extra.Strength, int64(f.CompressedSize64)) //nolint:gosec // bounded by the container size
		if err != nil {
			return nil, err
		}
		method = extra.Method
		crcErr = ziptype.ErrChecksum
		checkCRC = extra.Version == 1 && f.CRC32 != 0
	} else {
		check := zipcrypto.CheckByte(f.Flags, f.CRC32, f.ModifiedTime)
		plain, err = zipcrypto.NewReader(raw, password, check)
		if err != nil {
			return nil, err
		}
	}

	dcomp, ok := decompressors[method]
	if !ok {
		return nil, fmt.Errorf("%w: method %d", ziptype.ErrUnsupportedMethod, method)
	}
	return &verifyReader{
		rc:        dcomp(plain),
		hash:      crc32.NewIEEE(),
		size:      f.UncompressedSize64,
		crc:       f.CRC32,
		checkCRC:  checkCRC,
		crcErr:    crcErr,
		keyErrors: crcErr == ziptype.ErrInvalidPassword,
	}, nil
}

// verifyReader checks the decoded size and CRC-32 of a decrypted entry.
type verifyReader struct {
	rc       io.ReadCloser
	hash     hash.Hash32
	nread    uint64
	size     uint64
	crc      uint32
	checkCRC bool
	crcErr   error
	// keyErrors reports decoder failures as a wrong password, since the key
	// was not authenticated.
	keyErrors bool
	err       error
}

func (r *verifyReader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	n, err := r.rc.Read(p)
	r.hash.Write(p[:n])
	r.nread += uint64(n) //nolint:gosec // n is never negative
	switch {
	case r.nread > r.size:
		err = r.mismatch(zip.ErrFormat)
		n = 0
	case err == io.EOF:
		if r.nread != r.size {
			err = r.mismatch(io.ErrUnexpectedEOF)
		} else if r.checkCRC && r.hash.Sum32() != r.crc {
			err = r.crcErr
		}
	case err != nil:
		err = r.decodeError(err)
	}
	r.err = err
	return n, err
}

func (r *verifyReader) mismatch(err error) error {
	if r.keyErrors {
		return ziptype.ErrInvalidPassword
	}
	return err
}

func (r *verifyReader) decodeError(err error) error {
	if !r.keyErrors {
		return err
	}
	// Garbage from a wrong key surfaces as whatever the decompressor
	// chokes on first.
	return fmt.Errorf("%w: %w", ziptype.ErrInvalidPassword, err)
}

func (r *verifyReader) Close() error {
	return r.rc.Close()
}

// errMapper translates decoder errors into the package's sentinels.
type errMapper struct {
	rc io.ReadCloser
}

func (r *errMapper) Read(p []byte) (int, error) {
	n, err := r.rc.Read(p)
	if err != nil && err != io.EOF {
		err = mapError(err)
	}
	return n, err
}

func (r *errMapper) Close() error {
	return r.rc.Close()
}

func mapError(err error) error {
	switch {
	case errors.Is(err, zip.ErrChecksum):
		return fmt.Errorf("%w: %w", ziptype.ErrChecksum, err)
	case errors.Is(err, zip.ErrAlgorithm):
		return fmt.Errorf("%w: %w", ziptype.ErrUnsupportedMethod, err)
	default:
		return err
	}
}
