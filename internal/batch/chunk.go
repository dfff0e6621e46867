package batch

// chunk is a contiguous run of jobs handled by one worker.
type chunk struct {
	start int // index of the first job
	end   int // index past the last job
}

// partition splits n jobs into at most workers contiguous chunks whose sizes
// differ by at most one. Earlier chunks get the extra job.
func partition(n, workers int) []chunk {
	if n <= 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	chunks := make([]chunk, 0, workers)
	size, extra := n/workers, n%workers
	start := 0
	for i := range workers {
		end := start + size
		if i < extra {
			end++
		}
		chunks = append(chunks, chunk{start: start, end: end})
		start = end
	}
	return chunks
}
