// Package syncer pushes a hashed credential to every backing store a user is
// enrolled in. The propagator handles one store with retries; the
// synchronizer fans out across stores and records the combined outcome.
package syncer

import (
	"context"
	"time"

	"github.com/credsync/credsync/internal/directory"
	credserrors "github.com/credsync/credsync/internal/errors"
	"github.com/credsync/credsync/internal/logging"
	"github.com/credsync/credsync/internal/metrics"
	"github.com/credsync/credsync/internal/store"
)

// Propagator pushes one credential update to one store, retrying transient
// failures with a linearly growing backoff.
type Propagator struct {
	maxAttempts int
	backoffBase time.Duration
	logger      *logging.Logger
	metrics     *metrics.SyncMetrics

	// sleep is swapped out in tests to avoid real waits.
	sleep func(time.Duration)
}

// NewPropagator creates a propagator with the given retry budget.
func NewPropagator(maxAttempts int, backoffBase time.Duration, logger *logging.Logger) *Propagator {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Propagator{
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
		logger:      logger,
		metrics:     metrics.NewSyncMetrics(),
		sleep:       time.Sleep,
	}
}

// Apply pushes the hashed credential to one store and reports the outcome.
// Failures are captured in the outcome rather than returned: the caller's
// fan-out must see every store's result, not stop at the first error.
func (p *Propagator) Apply(ctx context.Context, client store.Client, enrollment directory.BackingStore, username, hashedPassword string) directory.StoreOutcome {
	outcome := directory.StoreOutcome{
		StoreName: enrollment.StoreName,
		RecordID:  enrollment.ExternalRecordID,
	}

	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		outcome.Attempts = attempt

		if attempt > 1 {
			// Linear backoff: attempt 2 waits base, attempt 3 waits 2x base.
			p.sleep(time.Duration(attempt-1) * p.backoffBase)
		}

		lastErr = p.attempt(ctx, client, enrollment, username, hashedPassword)
		p.metrics.RecordStoreAttempt(enrollment.StoreName, lastErr == nil)

		if lastErr == nil {
			outcome.Success = true
			return outcome
		}

		if !credserrors.IsRetryable(lastErr) {
			p.logger.Debug("store %s: definitive failure on attempt %d: %v", enrollment.StoreName, attempt, lastErr)
			break
		}
		p.logger.Debug("store %s: transient failure on attempt %d: %v", enrollment.StoreName, attempt, lastErr)
	}

	outcome.Error = lastErr.Error()
	return outcome
}

func (p *Propagator) attempt(ctx context.Context, client store.Client, enrollment directory.BackingStore, username, hashedPassword string) error {
	if err := ctx.Err(); err != nil {
		return credserrors.StoreError{Store: enrollment.StoreName, Op: "propagate", Transient: false, Err: err}
	}

	if !client.IsAuthenticated() {
		if err := client.Authenticate(ctx); err != nil {
			return err
		}
	}

	return client.UpdateCredential(ctx, enrollment.ExternalRecordID, username, hashedPassword)
}
