// Package archive exposes a ZIP container as an indexed list of entries with
// plain and decrypting readers, over any random-access source.
package archive

import (
	"fmt"
	"io/fs"
	"time"
)

// DateTime is an entry timestamp as stored in the archive: calendar fields
// without a time zone, at two-second resolution.
type DateTime struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
	Second int
}

// DateTimeFromDOS decodes MS-DOS date and time fields. It returns false for
// a zero date, which archivers use for "unknown".
func DateTimeFromDOS(date, tm uint16) (DateTime, bool) {
	dt := DateTime{
		Year:   int(date>>9) + 1980,
		Month:  int(date>>5) & 0x0f,
		Day:    int(date) & 0x1f,
		Hour:   int(tm >> 11),
		Minute: int(tm>>5) & 0x3f,
		Second: int(tm&0x1f) * 2,
	}
	if dt.Month < 1 || dt.Month > 12 || dt.Day < 1 {
		return DateTime{}, false
	}
	return dt, true
}

// Time interprets the fields as UTC.
func (d DateTime) Time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, d.Hour, d.Minute, d.Second, 0, time.UTC)
}

// String formats the timestamp the way listings show it.
func (d DateTime) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", d.Year, d.Month, d.Day, d.Hour, d.Minute, d.Second)
}

// Entry is the metadata of one item in the central directory.
type Entry struct {
	// Index is the entry's position in the central directory.
	Index int
	// Name is the raw slash-separated name; it is not validated.
	Name  string
	IsDir bool
	// Size is the uncompressed size.
	Size           uint64
	CompressedSize uint64
	CRC32          uint32
	Method         uint16

	Modified    DateTime
	HasModified bool

	// Mode holds Unix permission bits when the archive recorded them.
	Mode    fs.FileMode
	HasMode bool

	Encrypted bool
}

// ModTime returns the timestamp as UTC, or the zero time when unknown.
func (e Entry) ModTime() time.Time {
	if !e.HasModified {
		return time.Time{}
	}
	return e.Modified.Time()
}
