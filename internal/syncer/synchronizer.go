package syncer

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/credsync/credsync/internal/directory"
	credserrors "github.com/credsync/credsync/internal/errors"
	"github.com/credsync/credsync/internal/logging"
	"github.com/credsync/credsync/internal/metrics"
	"github.com/credsync/credsync/internal/store"
)

// ClientSource resolves a store name to a protocol client.
type ClientSource interface {
	Get(name string) (store.Client, error)
}

// Synchronizer fans a hashed credential out to every store a user is
// enrolled in.
type Synchronizer struct {
	directory     directory.Store
	clients       ClientSource
	propagator    *Propagator
	maxConcurrent int
	logger        *logging.Logger
	metrics       *metrics.SyncMetrics
}

// SyncResult summarizes one fan-out across a user's backing stores.
type SyncResult struct {
	UserID       string                   `json:"userId"`
	Success      bool                     `json:"success"`
	SuccessCount int                      `json:"successCount"`
	TotalCount   int                      `json:"totalCount"`
	FailedStores []string                 `json:"failedStores,omitempty"`
	Outcomes     []directory.StoreOutcome `json:"outcomes"`
	DurationMs   int64                    `json:"durationMs"`
}

// NewSynchronizer wires the fan-out over a directory and a client source.
func NewSynchronizer(dir directory.Store, clients ClientSource, propagator *Propagator, maxConcurrent int, logger *logging.Logger) *Synchronizer {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Synchronizer{
		directory:     dir,
		clients:       clients,
		propagator:    propagator,
		maxConcurrent: maxConcurrent,
		logger:        logger,
		metrics:       metrics.NewSyncMetrics(),
	}
}

// SyncToAllStores pushes the hashed credential to every enrolled store. The
// fan-out always runs to completion: one store failing never stops the
// others. Exactly one audit entry records the whole operation, and each
// store's directory status is updated to match its outcome.
func (s *Synchronizer) SyncToAllStores(ctx context.Context, userID, username, hashedPassword string) (*SyncResult, error) {
	started := time.Now()
	s.metrics.RecordSyncStarted(string(directory.OpPasswordSync))

	entry, err := s.directory.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, credserrors.UserNotFoundError{UserID: userID}
	}
	if len(entry.BackingStores) == 0 {
		return nil, credserrors.NoBackingStoresError{UserID: userID}
	}

	outcomes := s.fanOut(ctx, entry.BackingStores, username, hashedPassword)

	result := &SyncResult{
		UserID:     userID,
		TotalCount: len(outcomes),
		Outcomes:   outcomes,
		DurationMs: time.Since(started).Milliseconds(),
	}
	for _, outcome := range outcomes {
		if outcome.Success {
			result.SuccessCount++
		} else {
			result.FailedStores = append(result.FailedStores, outcome.StoreName)
		}
	}
	result.Success = result.SuccessCount == result.TotalCount

	s.recordStatuses(userID, outcomes)
	s.audit(userID, result)
	s.metrics.RecordSyncCompleted(string(directory.OpPasswordSync), string(auditStatus(result)), time.Since(started).Seconds())

	if result.Success {
		s.logger.Info("synchronized credential for %s across %d stores", userID, result.TotalCount)
	} else {
		s.logger.Warn("synchronized credential for %s: %d/%d stores succeeded", userID, result.SuccessCount, result.TotalCount)
	}

	return result, nil
}

// fanOut runs one propagation per store under a concurrency bound.
func (s *Synchronizer) fanOut(ctx context.Context, enrollments []directory.BackingStore, username, hashedPassword string) []directory.StoreOutcome {
	var wg sync.WaitGroup
	var outcomeMutex sync.Mutex
	outcomes := make([]directory.StoreOutcome, 0, len(enrollments))

	// A semaphore bounds concurrent store calls so a wide enrollment does
	// not overwhelm the backing systems.
	semaphore := make(chan struct{}, s.maxConcurrent)

	for _, enrollment := range enrollments {
		wg.Add(1)
		go func(enrollment directory.BackingStore) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			outcome := s.propagate(ctx, enrollment, username, hashedPassword)

			outcomeMutex.Lock()
			outcomes = append(outcomes, outcome)
			outcomeMutex.Unlock()
		}(enrollment)
	}

	wg.Wait()

	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].StoreName < outcomes[j].StoreName
	})
	return outcomes
}

func (s *Synchronizer) propagate(ctx context.Context, enrollment directory.BackingStore, username, hashedPassword string) directory.StoreOutcome {
	client, err := s.clients.Get(enrollment.StoreName)
	if err != nil {
		return directory.StoreOutcome{
			StoreName: enrollment.StoreName,
			RecordID:  enrollment.ExternalRecordID,
			Attempts:  0,
			Error:     err.Error(),
		}
	}
	return s.propagator.Apply(ctx, client, enrollment, username, hashedPassword)
}

// recordStatuses mirrors each outcome into the user's directory entry.
func (s *Synchronizer) recordStatuses(userID string, outcomes []directory.StoreOutcome) {
	for _, outcome := range outcomes {
		status := directory.StoreStatusSynced
		if !outcome.Success {
			status = directory.StoreStatusFailed
		}
		if err := s.directory.SetStoreStatus(userID, outcome.StoreName, status); err != nil {
			s.logger.Warn("failed to record %s status for store %s: %v", status, outcome.StoreName, err)
		}
	}
}

// audit writes the single audit entry for the fan-out. Best effort: a
// persistence failure is logged, never surfaced to the caller.
func (s *Synchronizer) audit(userID string, result *SyncResult) {
	_, err := s.directory.AppendAudit(directory.AuditEntry{
		UserID:           userID,
		Operation:        directory.OpPasswordSync,
		Status:           auditStatus(result),
		PerStoreOutcomes: result.Outcomes,
		DurationMs:       result.DurationMs,
	})
	if err != nil {
		s.logger.Error("failed to record audit entry for %s: %v", userID, err)
	}
}

func auditStatus(result *SyncResult) directory.AuditStatus {
	switch {
	case result.SuccessCount == result.TotalCount:
		return directory.AuditSuccess
	case result.SuccessCount > 0:
		return directory.AuditPartialFailure
	default:
		return directory.AuditFailed
	}
}
