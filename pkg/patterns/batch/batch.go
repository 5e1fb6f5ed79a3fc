package batch

import (
	"context"
	"sync"
)

// BatchItem holds the outcome of one request. Skipped is set when the
// request never started because the context was done first.
type BatchItem[TResult any] struct {
	Result  TResult
	Error   error
	Skipped bool
}

// BatchResult contains per-request outcomes in request order.
type BatchResult[TResult any] struct {
	Items []BatchItem[TResult]
}

// Failed counts items that ran and returned an error.
func (r *BatchResult[TResult]) Failed() int {
	n := 0
	for _, item := range r.Items {
		if !item.Skipped && item.Error != nil {
			n++
		}
	}
	return n
}

// BatchProcessor runs Process over a batch with at most MaxConcurrency
// requests in flight. Validate is optional.
type BatchProcessor[TRequest, TResult any] struct {
	MaxConcurrency int
	Validate       func(TRequest) error
	Process        func(context.Context, TRequest) (TResult, error)
}

// ProcessBatch processes requests and waits for all started work to finish.
// Requests not yet started when ctx is done are marked Skipped. When
// continueOnError is false the first failure stops new requests from
// starting.
func (bp *BatchProcessor[TRequest, TResult]) ProcessBatch(
	ctx context.Context,
	requests []TRequest,
	continueOnError bool,
) (*BatchResult[TResult], error) {
	limit := bp.MaxConcurrency
	if limit <= 0 {
		limit = 1
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	results := make([]BatchItem[TResult], len(requests))
	semaphore := make(chan struct{}, limit)

	var wg sync.WaitGroup
	skipRest := func(from int) {
		for j := from; j < len(requests); j++ {
			results[j] = BatchItem[TResult]{Error: runCtx.Err(), Skipped: true}
		}
	}

	for i, req := range requests {
		if runCtx.Err() != nil {
			skipRest(i)
			break
		}
		select {
		case semaphore <- struct{}{}:
		case <-runCtx.Done():
			skipRest(i)
		}
		if results[i].Skipped {
			break
		}

		wg.Add(1)
		go func(index int, request TRequest) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if bp.Validate != nil {
				if err := bp.Validate(request); err != nil {
					results[index] = BatchItem[TResult]{Error: err}
					if !continueOnError {
						stop()
					}
					return
				}
			}

			result, err := bp.Process(ctx, request)
			results[index] = BatchItem[TResult]{Result: result, Error: err}
			if err != nil && !continueOnError {
				stop()
			}
		}(i, req)
	}

	wg.Wait()
	return &BatchResult[TResult]{Items: results}, ctx.Err()
}
