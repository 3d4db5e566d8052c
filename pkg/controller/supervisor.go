package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// Supervise waits runDelay, then calls run and restarts it resetDelay after
// every unexpected error or panic. It returns when ctx is cancelled or run
// finishes cleanly.
func Supervise(ctx context.Context, runDelay time.Duration, resetDelay time.Duration, run func(context.Context) error) error {
	// Leaves a window to attach to the device before anything else happens
	if runDelay > 0 {
		timer := time.NewTimer(runDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	operation := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()

		err = run(ctx)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}

		return err
	}

	restart := backoff.WithContext(backoff.NewConstantBackOff(resetDelay), ctx)

	return backoff.RetryNotify(operation, restart, func(err error, wait time.Duration) {
		log.Error().Err(err).Msgf("Restarting in %d seconds", int(wait/time.Second))
	})
}
