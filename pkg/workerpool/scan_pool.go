package workerpool

import (
	"context"
	"sync"
)

// ScanTask represents a half-open row range [StartIndex, EndIndex)
type ScanTask struct {
	ID         int
	StartIndex int
	EndIndex   int
}

// ScanFunc processes one row range. Implementations must only touch rows
// inside the range so that tasks can run concurrently.
type ScanFunc func(ctx context.Context, task ScanTask) error

// ScanPool is a specialized pool for parallel range scans
type ScanPool struct {
	pool     *Pool
	scanFunc ScanFunc
}

// NewScanPool creates a new scan pool
func NewScanPool(size int, scanFunc ScanFunc) (*ScanPool, error) {
	pool, err := New(Config{Workers: size, Backlog: size})
	if err != nil {
		return nil, err
	}

	return &ScanPool{
		pool:     pool,
		scanFunc: scanFunc,
	}, nil
}

// Start starts the scan pool
func (sp *ScanPool) Start() error {
	return sp.pool.Start()
}

// Partition splits n rows into at most parts contiguous ranges of at least
// minChunk rows each. Ranges are returned in row order.
func Partition(n, parts, minChunk int) []ScanTask {
	if n <= 0 {
		return nil
	}
	if minChunk < 1 {
		minChunk = 1
	}
	if parts < 1 {
		parts = 1
	}
	if limit := (n + minChunk - 1) / minChunk; parts > limit {
		parts = limit
	}

	chunk := (n + parts - 1) / parts
	tasks := make([]ScanTask, 0, parts)
	for start, id := 0, 0; start < n; start, id = start+chunk, id+1 {
		end := start + chunk
		if end > n {
			end = n
		}
		tasks = append(tasks, ScanTask{ID: id, StartIndex: start, EndIndex: end})
	}
	return tasks
}

// ExecuteParallel runs every task on the pool and waits for all of them.
// The returned error is the failure of the lowest-numbered failing task.
func (sp *ScanPool) ExecuteParallel(ctx context.Context, tasks []ScanTask) error {
	if sp.pool.IsClosed() || !sp.pool.IsRunning() {
		return ErrPoolClosed
	}

	errs := make([]error, len(tasks))
	var wg sync.WaitGroup

	for i, task := range tasks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = sp.pool.Do(ctx, func(ctx context.Context) error {
				return sp.scanFunc(ctx, task)
			})
		}()
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	return firstError(errs)
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Close closes the scan pool
func (sp *ScanPool) Close() error {
	return sp.pool.Close()
}

// Stats returns pool statistics
func (sp *ScanPool) Stats() Stats {
	return sp.pool.Stats()
}

// RunRanges is a convenience wrapper: it partitions n rows, runs fn over the
// ranges on a temporary pool of the given size and closes the pool.
// With size <= 1 or a single range, fn runs on the calling goroutine.
func RunRanges(ctx context.Context, n, size, minChunk int, fn ScanFunc) error {
	tasks := Partition(n, size, minChunk)
	if len(tasks) == 0 {
		return nil
	}
	if size <= 1 || len(tasks) == 1 {
		for _, task := range tasks {
			if err := fn(ctx, task); err != nil {
				return err
			}
		}
		return nil
	}

	sp, err := NewScanPool(len(tasks), fn)
	if err != nil {
		return err
	}
	defer sp.Close()

	if err := sp.Start(); err != nil {
		return err
	}
	return sp.ExecuteParallel(ctx, tasks)
}
