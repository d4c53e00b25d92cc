// Package testutil holds helpers shared by concurrency tests.
package testutil

import (
	"sync"
	"sync/atomic"

	dErrors "abuseguard/pkg/domain-errors"
)

// ConcurrentResult tallies outcomes of a concurrent run by domain code.
type ConcurrentResult struct {
	Successes int32
	Throttled int32
	Forbidden int32
	Errors    int32
}

func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Throttled + r.Forbidden + r.Errors
}

// RunConcurrent runs fn on n goroutines released together and classifies
// each return value: nil, too_many_requests, forbidden, or anything else.
func RunConcurrent(n int, fn func(idx int) error) *ConcurrentResult {
	var wg sync.WaitGroup
	var successes, throttled, forbidden, errs atomic.Int32
	start := make(chan struct{})

	for i := range n {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			err := fn(idx)
			switch {
			case err == nil:
				successes.Add(1)
			case dErrors.HasCode(err, dErrors.CodeTooManyRequests):
				throttled.Add(1)
			case dErrors.HasCode(err, dErrors.CodeForbidden):
				forbidden.Add(1)
			default:
				errs.Add(1)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	return &ConcurrentResult{
		Successes: successes.Load(),
		Throttled: throttled.Load(),
		Forbidden: forbidden.Load(),
		Errors:    errs.Load(),
	}
}
