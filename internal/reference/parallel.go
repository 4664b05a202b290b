package reference

import (
	"runtime"
	"sync"
)

// FileItem is a reference file queued for parsing.
type FileItem struct {
	Seq  int
	Path string
}

// FileResult holds the observations parsed from one reference file.
type FileResult struct {
	Seq  int
	Path string
	Dist *Distributions
	Err  error
}

// ParallelParse parses queued files using a pool of workers. Every file is
// accumulated into its own Distributions, so workers share no state.
// Results arrive in completion order; use OrderedCollect for file order.
// If workers is 0, runtime.NumCPU() is used.
func (a *Aggregator) ParallelParse(items <-chan FileItem, workers int) <-chan FileResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan FileResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for item := range items {
				dist, err := a.ParseFile(item.Path)
				results <- FileResult{
					Seq:  item.Seq,
					Path: item.Path,
					Dist: dist,
					Err:  err,
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan FileResult, fn func(FileResult) error) error {
	pending := make(map[int]FileResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}
