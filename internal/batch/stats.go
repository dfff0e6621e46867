package batch

import "sync/atomic"

// Stats contains the aggregate counts of an extraction run.
type Stats struct {
	// Extracted is the number of files written to the sink.
	Extracted int

	// Skipped is the number of file entries not written: filtered out,
	// refused by the overwrite policy, or not decryptable.
	Skipped int

	// Bytes is the number of content bytes written.
	Bytes uint64
}

// TestStats contains the counts of an integrity test run.
type TestStats struct {
	// Tested is the number of file entries read to completion or failed.
	Tested int
	// Failed is the number of entries that did not decode cleanly.
	Failed int
	// Skipped counts filtered entries.
	Skipped int
}

// counters are shared by all workers of a run.
type counters struct {
	extracted atomic.Int64
	skipped   atomic.Int64
	bytes     atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Extracted: int(c.extracted.Load()),
		Skipped:   int(c.skipped.Load()),
		Bytes:     c.bytes.Load(),
	}
}
