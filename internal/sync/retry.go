package sync

import (
	"context"
	"time"

	"github.com/quipsync/quipsync/internal/quipapi"
)

// Policy is a bounded fixed-delay retry budget for one operation class.
// The budgets are deliberately not caller-configurable: a folder or export
// failure blocks an entire subtree and gets the generous budget, a single
// document's metadata check gets the small one.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

var (
	folderFetchPolicy = Policy{MaxAttempts: 5, Delay: 2 * time.Second}
	threadFetchPolicy = Policy{MaxAttempts: 3, Delay: 1 * time.Second}
	exportPolicy      = Policy{MaxAttempts: 5, Delay: 2 * time.Second}
)

// retryDo runs op until it succeeds, a non-retryable failure surfaces, the
// attempt budget is exhausted, or ctx is done. It returns op's last value
// even on failure (a partially decoded response is still useful to the
// traversal), the number of attempts actually made, and the final error.
func retryDo[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, int, error) {
	var last T
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return last, attempt - 1, err
		}

		last, lastErr = op(ctx)
		if lastErr == nil {
			return last, attempt, nil
		}

		if !quipapi.IsRetryable(lastErr) || attempt == p.MaxAttempts {
			return last, attempt, lastErr
		}

		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return last, attempt, ctx.Err()
		}
	}

	return last, p.MaxAttempts, lastErr
}
