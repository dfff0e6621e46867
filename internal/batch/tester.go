package batch

import (
	"context"
	"fmt"
	"io"

	"github.com/meigma/unzip/internal/archive"
	"github.com/meigma/unzip/internal/filter"
	"github.com/meigma/unzip/internal/ziptype"
)

// Test reads every selected file entry to completion, discarding the
// content, and relies on the decoder to verify it. Entries are tested one at
// a time in archive order.
//
// A failing entry is reported and counted; the run continues. Test returns
// ziptype.ErrIntegrity when at least one entry failed.
func (p *Processor) Test(ctx context.Context, f *filter.Filter) (TestStats, error) {
	var stats TestStats

	p.emit(ziptype.ProgressEvent{Stage: ziptype.StagePlanning})
	reader, err := p.source.Open()
	if err != nil {
		return stats, err
	}

	var total int
	for i := range reader.Len() {
		if !reader.Entry(i).IsDir {
			total++
		}
	}

	buf := make([]byte, bufferSize)
	var bytesDone uint64
	for i := range reader.Len() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		e := reader.Entry(i)
		if e.IsDir {
			continue
		}
		if !f.Match(e.Name) {
			stats.Skipped++
			continue
		}

		stats.Tested++
		n, err := p.testEntry(ctx, reader, &FileJob{Index: i, Name: e.Name, Encrypted: e.Encrypted}, buf)
		bytesDone += n
		if err != nil {
			if ctx.Err() != nil {
				return stats, err
			}
			stats.Failed++
			p.reporter.Error(e.Name, err)
		} else {
			p.reporter.TestOK(e.Name)
		}
		p.emit(ziptype.ProgressEvent{
			Stage:      ziptype.StageTesting,
			Path:       e.Name,
			BytesDone:  bytesDone,
			FilesDone:  stats.Tested + stats.Skipped,
			FilesTotal: total,
		})
	}

	p.log().Debug("test finished", "tested", stats.Tested, "failed", stats.Failed, "skipped", stats.Skipped)
	if stats.Failed > 0 {
		return stats, fmt.Errorf("%w: %d of %d entries failed", ziptype.ErrIntegrity, stats.Failed, stats.Tested)
	}
	return stats, nil
}

func (p *Processor) testEntry(ctx context.Context, reader archive.Reader, job *FileJob, buf []byte) (uint64, error) {
	rc, err := p.open(ctx, reader, job)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	var n uint64
	for {
		m, err := rc.Read(buf)
		n += uint64(m) //nolint:gosec // m is non-negative
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
	}
}
