package syncer

import (
	"context"
	"time"
)

// WithSleep sets the backoff sleep function for the orchestrator.
func WithSleep(f func(ctx context.Context, d time.Duration)) Options {
	return func(o *options) {
		o.sleep = f
	}
}
