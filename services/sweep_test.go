package services

import (
	"context"
	"testing"
	"time"

	"debatehub/models"
)

func TestSweepCancelsStaleWaitingDebates(t *testing.T) {
	f := newFixture(t, "CHALLENGER")
	now := time.Now()

	stale := f.store.addDebate(models.Debate{
		ChallengerID:  f.challengerID,
		Status:        models.DebateStatusWaiting,
		TotalRounds:   3,
		RoundDuration: time.Hour,
		CreatedAt:     now.Add(-200 * time.Hour),
	})
	fresh := f.store.addDebate(models.Debate{
		ChallengerID:  f.challengerID,
		Status:        models.DebateStatusWaiting,
		TotalRounds:   3,
		RoundDuration: time.Hour,
		CreatedAt:     now.Add(-time.Hour),
	})

	result := f.sweep.SweepOnce(context.Background(), now)
	if result.Cancelled != 1 {
		t.Fatalf("cancelled = %d, want 1 (errors: %v)", result.Cancelled, result.Errors)
	}
	if got := f.mustGetDebate(t, stale).Status; got != models.DebateStatusCancelled {
		t.Errorf("stale debate status = %s, want CANCELLED", got)
	}
	if got := f.mustGetDebate(t, fresh).Status; got != models.DebateStatusWaiting {
		t.Errorf("fresh debate status = %s, want WAITING", got)
	}
}

func TestSweepCancelsInconsistentWaitingDebates(t *testing.T) {
	f := newFixture(t, "CHALLENGER")
	now := time.Now()

	// An opponent on a still-WAITING debate means a crashed half-finished
	// acceptance; the sweep cleans it up regardless of age
	id := f.store.addDebate(models.Debate{
		ChallengerID:  f.challengerID,
		OpponentID:    f.opponentID,
		Status:        models.DebateStatusWaiting,
		TotalRounds:   3,
		RoundDuration: time.Hour,
		CreatedAt:     now.Add(-time.Minute),
	})

	result := f.sweep.SweepOnce(context.Background(), now)
	if result.Cancelled != 1 {
		t.Fatalf("cancelled = %d, want 1", result.Cancelled)
	}
	if got := f.mustGetDebate(t, id).Status; got != models.DebateStatusCancelled {
		t.Errorf("status = %s, want CANCELLED", got)
	}
}

func TestSweepDrivesExpiredDebates(t *testing.T) {
	f := newFixture(t, "CHALLENGER")
	now := time.Now()

	// Round 1 of 5 with one side in: advances. Round 3 of 3 with both in:
	// completes and adjudicates. Round 1 no-show: cancels.
	advancing := f.activeDebate(1, 5, now.Add(-time.Minute))
	f.submit(t, advancing, f.challengerID, 1, now.Add(-time.Hour))

	completing := f.activeDebate(3, 3, now.Add(-time.Minute))
	for round := 1; round <= 3; round++ {
		f.submit(t, completing, f.challengerID, round, now.Add(-time.Hour))
		f.submit(t, completing, f.opponentID, round, now.Add(-time.Hour))
	}

	noShow := f.activeDebate(1, 3, now.Add(-time.Minute))

	result := f.sweep.SweepOnce(context.Background(), now)
	if result.Advanced != 1 || result.Completed != 1 || result.Cancelled != 1 {
		t.Fatalf("result = %+v, want 1 advanced, 1 completed, 1 cancelled", result)
	}
	if got := f.mustGetDebate(t, completing).Status; got != models.DebateStatusVerdictReady {
		t.Errorf("completed debate status = %s, want VERDICT_READY", got)
	}
	if got := f.mustGetDebate(t, noShow).Status; got != models.DebateStatusCancelled {
		t.Errorf("no-show debate status = %s, want CANCELLED", got)
	}
}

func TestSweepTwiceIsIdempotent(t *testing.T) {
	f := newFixture(t, "CHALLENGER")
	now := time.Now()
	id := f.activeDebate(1, 5, now.Add(-time.Minute))
	f.submit(t, id, f.challengerID, 1, now.Add(-time.Hour))

	first := f.sweep.SweepOnce(context.Background(), now)
	if first.Advanced != 1 {
		t.Fatalf("first sweep = %+v, want one advance", first)
	}

	second := f.sweep.SweepOnce(context.Background(), now)
	if second.Advanced != 0 || second.Completed != 0 || second.Cancelled != 0 {
		t.Errorf("second sweep = %+v, want no transitions", second)
	}
}
