package services

import (
	"context"
	"fmt"
	"time"

	"debatehub/models"
)

// SweepResult summarizes one sweep run for the trigger surface
type SweepResult struct {
	Accepted  int      `json:"accepted"`
	Advanced  int      `json:"advanced"`
	Completed int      `json:"completed"`
	Cancelled int      `json:"cancelled"`
	Errors    []string `json:"errors"`
}

// SweepService scans for elapsed round deadlines and stale challenges and
// drives the state machine for each
type SweepService struct {
	store      Store
	lifecycle  *LifecycleService
	waitingTTL time.Duration
}

// NewSweepService wires the sweep to the state machine
func NewSweepService(store Store, lifecycle *LifecycleService, waitingTTL time.Duration) *SweepService {
	return &SweepService{store: store, lifecycle: lifecycle, waitingTTL: waitingTTL}
}

// SweepOnce runs one full sweep against the given clock. Safe to run
// concurrently with itself and with user actions: every transition re-checks
// its precondition inside the write, so a duplicate trigger lands as a no-op.
// Per-debate failures are collected, never allowed to abort the batch.
func (s *SweepService) SweepOnce(ctx context.Context, now time.Time) SweepResult {
	result := SweepResult{Errors: []string{}}

	stale, err := s.store.StaleWaitingDebates(ctx, now.Add(-s.waitingTTL))
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("list stale debates: %v", err))
	}
	for _, debate := range stale {
		ok, err := s.store.CancelDebate(ctx, debate.ID, models.DebateStatusWaiting)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("debate %s: cancel: %v", debate.ID.Hex(), err))
			continue
		}
		if ok {
			result.Cancelled++
		}
	}

	expired, err := s.store.ExpiredActiveDebates(ctx, now)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("list expired debates: %v", err))
		return result
	}
	for _, debate := range expired {
		transition, err := s.lifecycle.HandleExpiry(ctx, debate.ID, now)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("debate %s: %v", debate.ID.Hex(), err))
		}
		switch transition {
		case TransitionAdvanced:
			result.Advanced++
		case TransitionCompleted:
			result.Completed++
		case TransitionCancelled:
			result.Cancelled++
		}
	}
	return result
}
