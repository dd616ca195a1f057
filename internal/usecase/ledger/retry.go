package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"meref-loan-engine/internal/domain/errs"
)

const retryBackoff = 2 * time.Millisecond

// Retry runs fn, which must be one complete transaction, until it commits or
// fails with anything other than a version conflict. After maxAttempts
// conflicting attempts it gives up with errs.ErrConcurrentUpdate.
func Retry(ctx context.Context, maxAttempts int, onConflict func(attempt int), fn func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	for attempt := 1; ; attempt++ {
		err := fn()
		if !errors.Is(err, errs.ErrVersionConflict) {
			return err
		}
		if attempt >= maxAttempts {
			return fmt.Errorf("%w (%d attempts)", errs.ErrConcurrentUpdate, attempt)
		}
		if onConflict != nil {
			onConflict(attempt)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}
}
