// Package zipcrypto implements the two ZIP encryption schemes found in the
// wild: traditional PKWARE encryption ("ZipCrypto") and WinZip AES.
//
// Readers wrap the raw (still compressed) entry payload and yield the
// compressed plaintext. Password verification failures are reported as
// ziptype.ErrInvalidPassword.
package zipcrypto

import (
	"crypto/rand"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/meigma/unzip/internal/ziptype"
)

// HeaderSize is the length of the ZipCrypto encryption header that precedes
// the payload.
const HeaderSize = 12

const keyMultiplier = 134775813

// keys is the traditional PKWARE cipher state.
type keys struct {
	k0, k1, k2 uint32
}

func newKeys(password []byte) *keys {
	k := &keys{k0: 0x12345678, k1: 0x23456789, k2: 0x34567890}
	for _, b := range password {
		k.update(b)
	}
	return k
}

func (k *keys) update(b byte) {
	k.k0 = crc32.IEEETable[byte(k.k0)^b] ^ (k.k0 >> 8)
	k.k1 = (k.k1+(k.k0&0xff))*keyMultiplier + 1
	k.k2 = crc32.IEEETable[byte(k.k2)^byte(k.k1>>24)] ^ (k.k2 >> 8)
}

func (k *keys) stream() byte {
	t := k.k2 | 2
	return byte((t * (t ^ 1)) >> 8)
}

func (k *keys) decrypt(buf []byte) {
	for i, c := range buf {
		p := c ^ k.stream()
		k.update(p)
		buf[i] = p
	}
}

func (k *keys) encrypt(buf []byte) {
	for i, p := range buf {
		c := p ^ k.stream()
		k.update(p)
		buf[i] = c
	}
}

// CheckByte returns the byte the last header byte must decrypt to. Entries
// written with a data descriptor (flag bit 3) use the high byte of the DOS
// time, all others the high byte of the CRC-32.
func CheckByte(flags uint16, crc uint32, dosTime uint16) byte {
	if flags&0x8 != 0 {
		return byte(dosTime >> 8)
	}
	return byte(crc >> 24)
}

type reader struct {
	src  io.Reader
	keys *keys
}

// NewReader consumes the 12-byte encryption header from src and returns a
// reader of the decrypted payload. It returns ziptype.ErrInvalidPassword when
// the header's check byte does not match.
func NewReader(src io.Reader, password []byte, check byte) (io.Reader, error) {
	k := newKeys(password)
	var header [HeaderSize]byte
	if _, err := io.ReadFull(src, header[:]); err != nil {
		return nil, fmt.Errorf("read encryption header: %w", err)
	}
	k.decrypt(header[:])
	if header[HeaderSize-1] != check {
		return nil, ziptype.ErrInvalidPassword
	}
	return &reader{src: src, keys: k}, nil
}

func (r *reader) Read(p []byte) (int, error) {
	n, err := r.src.Read(p)
	if n > 0 {
		r.keys.decrypt(p[:n])
	}
	return n, err
}

type writer struct {
	dst  io.Writer
	keys *keys
	buf  []byte
}

// NewWriter writes a fresh encryption header to dst and returns a writer
// that encrypts everything written to it.
func NewWriter(dst io.Writer, password []byte, check byte) (io.Writer, error) {
	k := newKeys(password)
	var header [HeaderSize]byte
	if _, err := rand.Read(header[:HeaderSize-1]); err != nil {
		return nil, fmt.Errorf("encryption header: %w", err)
	}
	header[HeaderSize-1] = check
	k.encrypt(header[:])
	if _, err := dst.Write(header[:]); err != nil {
		return nil, fmt.Errorf("write encryption header: %w", err)
	}
	return &writer{dst: dst, keys: k}, nil
}

func (w *writer) Write(p []byte) (int, error) {
	w.buf = append(w.buf[:0], p...)
	w.keys.encrypt(w.buf)
	return w.dst.Write(w.buf)
}
