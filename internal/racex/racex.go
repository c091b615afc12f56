// Package racex races two functionally-equivalent attempts at the
// same logical resource and settles on a single outcome.
//
// The metadata service is reachable through two addresses. When we
// probe for its availability we try both concurrently, and a single
// flaky path must not abort the probe while its sibling might still
// succeed. The settlement policy is therefore:
//
// - the first attempt to succeed wins immediately;
//
// - an attempt that fails first is parked, and we wait for the
// sibling: a later success still wins, and if the sibling fails too
// we surface the sibling's error alone, never a combined error;
//
// - settlement is driven by completion order, not by start order.
//
// Once the race has settled, the losing attempt keeps running until
// its own timeout, and its outcome is discarded rather than leaked:
// the results channel is buffered so that a late completion can
// always deliver its outcome and terminate.
package racex

import (
	"context"

	"github.com/stephenplusplus/gcp-metadata/internal/erroror"
)

// Attempt is one of the two competing operations. It must honor
// cancellation of the given context.
type Attempt[Output any] func(ctx context.Context) (Output, error)

// Race runs the primary and secondary attempts concurrently and
// settles using the policy documented at the package level.
func Race[Output any](ctx context.Context, primary, secondary Attempt[Output]) (Output, error) {
	// create cancellable context to release the loser early
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// the buffer guarantees both attempts can always post their
	// outcome, even after the race has settled
	output := make(chan *erroror.Value[Output], 2)

	for _, fx := range []Attempt[Output]{primary, secondary} {
		go func(fx Attempt[Output]) {
			value, err := fx(ctx)
			output <- &erroror.Value[Output]{Err: err, Value: value}
		}(fx)
	}

	// lastErr is the single-assignment-per-settlement slot: a first
	// failure parks here while we defer to the still-pending sibling,
	// and a second failure overwrites it and becomes the outcome
	var lastErr error
	for idx := 0; idx < 2; idx++ {
		result := <-output

		if result.Err != nil {
			lastErr = result.Err
			continue
		}

		// make sure we interrupt the sibling attempt
		cancel()
		return result.Value, nil
	}

	return *new(Output), lastErr
}
