package unzip

import "sync"

// InspectResult is the central directory of an archive: its entries and
// comment. Nothing is decompressed.
type InspectResult struct {
	name    string
	comment string
	entries []Entry

	// Lazy computed stats
	statsOnce             sync.Once
	files                 int
	totalUncompressedSize uint64
	totalCompressedSize   uint64
}

// Name returns the source name.
func (r *InspectResult) Name() string {
	return r.name
}

// Comment returns the archive comment, which may be empty.
func (r *InspectResult) Comment() string {
	return r.comment
}

// Entries returns every entry in central directory order. The slice must
// not be modified.
func (r *InspectResult) Entries() []Entry {
	return r.entries
}

// FileCount returns the number of entries that are not directories.
func (r *InspectResult) FileCount() int {
	r.computeStats()
	return r.files
}

// TotalUncompressedSize returns the sum of all uncompressed entry sizes.
// The result is computed on first call and cached.
func (r *InspectResult) TotalUncompressedSize() uint64 {
	r.computeStats()
	return r.totalUncompressedSize
}

// TotalCompressedSize returns the sum of all stored entry sizes.
// The result is computed on first call and cached.
func (r *InspectResult) TotalCompressedSize() uint64 {
	r.computeStats()
	return r.totalCompressedSize
}

// CompressionRatio returns the space saved by compression, in whole
// percent, for the whole archive. An empty archive has ratio 0.
func (r *InspectResult) CompressionRatio() int {
	r.computeStats()
	return Ratio(r.totalUncompressedSize, r.totalCompressedSize)
}

func (r *InspectResult) computeStats() {
	r.statsOnce.Do(func() {
		for i := range r.entries {
			e := &r.entries[i]
			if !e.IsDir {
				r.files++
			}
			r.totalUncompressedSize += e.Size
			r.totalCompressedSize += e.CompressedSize
		}
	})
}

// Ratio returns the space saved by compressing size bytes into compressed
// bytes, in whole percent. It is 0 when size is 0 and never negative.
func Ratio(size, compressed uint64) int {
	if size == 0 || compressed >= size {
		return 0
	}
	return 100 - int(float64(compressed)*100/float64(size))
}

// Inspect reads the central directory of src.
func Inspect(src Source) (*InspectResult, error) {
	r, err := src.Open()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, r.Len())
	for i := range entries {
		entries[i] = r.Entry(i)
	}
	return &InspectResult{
		name:    src.Name(),
		comment: r.Comment(),
		entries: entries,
	}, nil
}
