package zipcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1" //nolint:gosec // mandated by the WinZip AES format
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"github.com/meigma/unzip/internal/ziptype"
)

// MethodAES is the compression method recorded for WinZip AES entries; the
// real method lives in the AES extra field.
const MethodAES = 99

// ExtraID is the header ID of the WinZip AES extra field.
const ExtraID = 0x9901

const (
	pvvSize    = 2
	macSize    = 10
	iterations = 1000
)

// Strength is the AES key length selector stored in the extra field.
type Strength uint8

// Key strengths defined by WinZip.
const (
	AES128 Strength = 1
	AES192 Strength = 2
	AES256 Strength = 3
)

// KeySize returns the AES key length in bytes, or zero for unknown values.
func (s Strength) KeySize() int {
	switch s {
	case AES128:
		return 16
	case AES192:
		return 24
	case AES256:
		return 32
	default:
		return 0
	}
}

// SaltSize returns the salt length that precedes the payload.
func (s Strength) SaltSize() int {
	return s.KeySize() / 2
}

// Overhead is the number of bytes the encryption adds around the payload.
func (s Strength) Overhead() int64 {
	return int64(s.SaltSize() + pvvSize + macSize)
}

// Extra is the decoded WinZip AES extra field.
type Extra struct {
	// Version is 1 (AE-1) or 2 (AE-2). AE-2 entries carry no CRC-32.
	Version  uint16
	Strength Strength
	// Method is the compression method applied before encryption.
	Method uint16
}

// ParseExtra finds and decodes the AES field in a raw extra block.
func ParseExtra(extra []byte) (Extra, bool) {
	for len(extra) >= 4 {
		id := binary.LittleEndian.Uint16(extra[0:2])
		size := int(binary.LittleEndian.Uint16(extra[2:4]))
		extra = extra[4:]
		if size > len(extra) {
			return Extra{}, false
		}
		field := extra[:size]
		extra = extra[size:]
		if id != ExtraID || size < 7 || field[2] != 'A' || field[3] != 'E' {
			continue
		}
		return Extra{
			Version:  binary.LittleEndian.Uint16(field[0:2]),
			Strength: Strength(field[4]),
			Method:   binary.LittleEndian.Uint16(field[5:7]),
		}, true
	}
	return Extra{}, false
}

// Bytes encodes the field, including its 4-byte header.
func (e Extra) Bytes() []byte {
	b := make([]byte, 11)
	binary.LittleEndian.PutUint16(b[0:2], ExtraID)
	binary.LittleEndian.PutUint16(b[2:4], 7)
	binary.LittleEndian.PutUint16(b[4:6], e.Version)
	b[6], b[7] = 'A', 'E'
	b[8] = byte(e.Strength)
	binary.LittleEndian.PutUint16(b[9:11], e.Method)
	return b
}

type aesKeys struct {
	enc, mac, pvv []byte
}

func deriveKeys(password, salt []byte, s Strength) aesKeys {
	n := s.KeySize()
	dk := pbkdf2.Key(password, salt, iterations, 2*n+pvvSize, sha1.New)
	return aesKeys{enc: dk[:n], mac: dk[n : 2*n], pvv: dk[2*n:]}
}

type aesReader struct {
	payload io.Reader
	src     io.Reader
	ctr     *counter
	mac     hash.Hash
	done    bool
}

// NewAESReader consumes the salt and password verifier from src and returns
// a reader of the decrypted payload. rawSize is the full stored size of the
// entry, overhead included. The authentication code is checked when the
// payload is exhausted; a mismatch is reported as ziptype.ErrInvalidPassword.
func NewAESReader(src io.Reader, password []byte, s Strength, rawSize int64) (io.Reader, error) {
	if s.KeySize() == 0 {
		return nil, fmt.Errorf("%w: aes strength %d", ziptype.ErrUnsupportedEncryption, s)
	}
	if rawSize < s.Overhead() {
		return nil, fmt.Errorf("aes payload too small: %d bytes", rawSize)
	}

	salt := make([]byte, s.SaltSize())
	if _, err := io.ReadFull(src, salt); err != nil {
		return nil, fmt.Errorf("read salt: %w", err)
	}
	var pvv [pvvSize]byte
	if _, err := io.ReadFull(src, pvv[:]); err != nil {
		return nil, fmt.Errorf("read password verifier: %w", err)
	}
	k := deriveKeys(password, salt, s)
	if subtle.ConstantTimeCompare(pvv[:], k.pvv) != 1 {
		return nil, ziptype.ErrInvalidPassword
	}
	block, err := aes.NewCipher(k.enc)
	if err != nil {
		return nil, err
	}
	return &aesReader{
		payload: io.LimitReader(src, rawSize-s.Overhead()),
		src:     src,
		ctr:     newCounter(block),
		mac:     hmac.New(sha1.New, k.mac),
	}, nil
}

func (r *aesReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, io.EOF
	}
	n, err := r.payload.Read(p)
	if n > 0 {
		r.mac.Write(p[:n])
		r.ctr.XORKeyStream(p[:n], p[:n])
	}
	if !errors.Is(err, io.EOF) {
		return n, err
	}
	r.done = true
	var want [macSize]byte
	if _, merr := io.ReadFull(r.src, want[:]); merr != nil {
		return n, fmt.Errorf("read authentication code: %w", merr)
	}
	if !hmac.Equal(r.mac.Sum(nil)[:macSize], want[:]) {
		return n, ziptype.ErrInvalidPassword
	}
	return n, io.EOF
}

type aesWriter struct {
	dst io.Writer
	ctr *counter
	mac hash.Hash
	buf []byte
}

// NewAESWriter writes a random salt and the password verifier to dst and
// returns a writer that encrypts its input. Close appends the
// authentication code; it does not close dst.
func NewAESWriter(dst io.Writer, password []byte, s Strength) (io.WriteCloser, error) {
	if s.KeySize() == 0 {
		return nil, fmt.Errorf("%w: aes strength %d", ziptype.ErrUnsupportedEncryption, s)
	}
	salt := make([]byte, s.SaltSize())
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("aes salt: %w", err)
	}
	k := deriveKeys(password, salt, s)
	block, err := aes.NewCipher(k.enc)
	if err != nil {
		return nil, err
	}
	if _, err := dst.Write(salt); err != nil {
		return nil, err
	}
	if _, err := dst.Write(k.pvv); err != nil {
		return nil, err
	}
	return &aesWriter{dst: dst, ctr: newCounter(block), mac: hmac.New(sha1.New, k.mac)}, nil
}

func (w *aesWriter) Write(p []byte) (int, error) {
	if cap(w.buf) < len(p) {
		w.buf = make([]byte, len(p))
	}
	buf := w.buf[:len(p)]
	w.ctr.XORKeyStream(buf, p)
	w.mac.Write(buf)
	return w.dst.Write(buf)
}

func (w *aesWriter) Close() error {
	_, err := w.dst.Write(w.mac.Sum(nil)[:macSize])
	return err
}

// counter is AES in CTR mode with the little-endian counter WinZip uses;
// cipher.NewCTR increments big-endian and cannot be used.
type counter struct {
	block cipher.Block
	ctr   [aes.BlockSize]byte
	ks    [aes.BlockSize]byte
	pos   int
}

func newCounter(block cipher.Block) *counter {
	c := &counter{block: block, pos: aes.BlockSize}
	c.ctr[0] = 1
	return c
}

func (c *counter) XORKeyStream(dst, src []byte) {
	for i := range src {
		if c.pos == aes.BlockSize {
			c.block.Encrypt(c.ks[:], c.ctr[:])
			for j := range c.ctr {
				c.ctr[j]++
				if c.ctr[j] != 0 {
					break
				}
			}
			c.pos = 0
		}
		dst[i] = src[i] ^ c.ks[c.pos]
		c.pos++
	}
}

// String returns the string representation of the strength.
func (s Strength) String() string {
	switch s {
	case AES128:
		return "AES-128"
	case AES192:
		return "AES-192"
	case AES256:
		return "AES-256"
	default:
		return "unknown"
	}
}
