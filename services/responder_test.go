package services

import (
	"context"
	"testing"
	"time"

	"debatehub/internal/notify"
	"debatehub/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func aiFixture(t *testing.T) (*fixture, primitive.ObjectID) {
	t.Helper()
	f := newFixture(t, "CHALLENGER")
	aiID := f.store.addUser(models.User{DisplayName: "House AI", EloRating: 1200, IsAI: true})
	return f, aiID
}

func TestResponderChallengerOpensTheRound(t *testing.T) {
	f, aiID := aiFixture(t)
	now := time.Now()
	deadline := now.Add(time.Hour)
	id := f.store.addDebate(models.Debate{
		Topic:         "topic",
		ChallengerID:  aiID,
		OpponentID:    f.opponentID,
		Status:        models.DebateStatusActive,
		CurrentRound:  1,
		TotalRounds:   3,
		RoundDuration: time.Hour,
		RoundDeadline: &deadline,
		CreatedAt:     now.Add(-time.Minute),
	})

	result := f.responder.RespondOnce(context.Background(), now)
	if result.Accepted != 1 {
		t.Fatalf("accepted = %d, want 1 (errors: %v)", result.Accepted, result.Errors)
	}

	statements, _ := f.store.StatementsForRound(context.Background(), id, 1)
	if len(statements) != 1 || statements[0].AuthorID != aiID {
		t.Fatalf("round 1 statements = %v, want one from the AI", statements)
	}
	if !f.notifier.received(f.opponentID, notify.KindYourTurn) {
		t.Error("the human side should be nudged after the AI opens")
	}
}

func TestResponderWaitsWhenNotItsTurn(t *testing.T) {
	f, aiID := aiFixture(t)
	now := time.Now()
	deadline := now.Add(time.Hour)
	f.store.addDebate(models.Debate{
		Topic:         "topic",
		ChallengerID:  f.challengerID,
		OpponentID:    aiID,
		Status:        models.DebateStatusActive,
		CurrentRound:  1,
		TotalRounds:   3,
		RoundDuration: time.Hour,
		RoundDeadline: &deadline,
		CreatedAt:     now.Add(-time.Minute),
	})

	// Fresh round, challenger has not opened yet, so the AI opponent waits
	result := f.responder.RespondOnce(context.Background(), now)
	if result.Accepted != 0 || result.Skipped != 1 {
		t.Errorf("result = %+v, want one skip and no submission", result)
	}
}

func TestResponderHonorsMinimumDelay(t *testing.T) {
	f, aiID := aiFixture(t)
	now := time.Now()
	deadline := now.Add(time.Hour)
	id := f.store.addDebate(models.Debate{
		Topic:         "topic",
		ChallengerID:  f.challengerID,
		OpponentID:    aiID,
		Status:        models.DebateStatusActive,
		CurrentRound:  1,
		TotalRounds:   3,
		RoundDuration: time.Hour,
		RoundDeadline: &deadline,
		CreatedAt:     now.Add(-time.Minute),
	})
	f.submit(t, id, f.challengerID, 1, now.Add(-10*time.Second))

	result := f.responder.RespondOnce(context.Background(), now)
	if result.Accepted != 0 || result.Skipped != 1 {
		t.Fatalf("result = %+v, want a skip inside the delay window", result)
	}

	// The same pass succeeds once the human statement has aged past the gate
	result = f.responder.RespondOnce(context.Background(), now.Add(2*time.Minute))
	if result.Accepted != 1 {
		t.Fatalf("result = %+v, want an accepted reply after the gate", result)
	}
	if result.Advanced != 1 {
		t.Errorf("advanced = %d, want the completed round to open round 2", result.Advanced)
	}
	if got := f.mustGetDebate(t, id).CurrentRound; got != 2 {
		t.Errorf("currentRound = %d, want 2", got)
	}
}

func TestResponderDelaySpansRoundBoundary(t *testing.T) {
	f, aiID := aiFixture(t)
	now := time.Now()
	deadline := now.Add(time.Hour)
	id := f.store.addDebate(models.Debate{
		Topic:         "topic",
		ChallengerID:  aiID,
		OpponentID:    f.opponentID,
		Status:        models.DebateStatusActive,
		CurrentRound:  2,
		TotalRounds:   3,
		RoundDuration: time.Hour,
		RoundDeadline: &deadline,
		CreatedAt:     now.Add(-2 * time.Hour),
	})
	f.submit(t, id, aiID, 1, now.Add(-time.Hour))
	f.submit(t, id, f.opponentID, 1, now.Add(-10*time.Second))

	// Round 2 is fresh and the AI challenger opens it, but the human reply
	// that closed round 1 landed seconds ago, so the gate still holds
	result := f.responder.RespondOnce(context.Background(), now)
	if result.Accepted != 0 || result.Skipped != 1 {
		t.Fatalf("result = %+v, want a skip across the round boundary", result)
	}

	result = f.responder.RespondOnce(context.Background(), now.Add(2*time.Minute))
	if result.Accepted != 1 {
		t.Fatalf("result = %+v, want an accepted opener after the gate", result)
	}
	statements, _ := f.store.StatementsForRound(context.Background(), id, 2)
	if len(statements) != 1 || statements[0].AuthorID != aiID {
		t.Errorf("round 2 statements = %v, want one from the AI", statements)
	}
}

func TestResponderCompletesFinalRound(t *testing.T) {
	f, aiID := aiFixture(t)
	now := time.Now()
	deadline := now.Add(time.Hour)
	id := f.store.addDebate(models.Debate{
		Topic:         "topic",
		ChallengerID:  f.challengerID,
		OpponentID:    aiID,
		Status:        models.DebateStatusActive,
		CurrentRound:  3,
		TotalRounds:   3,
		RoundDuration: time.Hour,
		RoundDeadline: &deadline,
		CreatedAt:     now.Add(-3 * time.Hour),
	})
	for round := 1; round <= 2; round++ {
		f.submit(t, id, f.challengerID, round, now.Add(-2*time.Hour))
		f.submit(t, id, aiID, round, now.Add(-2*time.Hour))
	}
	f.submit(t, id, f.challengerID, 3, now.Add(-10*time.Minute))

	result := f.responder.RespondOnce(context.Background(), now)
	if result.Accepted != 1 || result.Completed != 1 {
		t.Fatalf("result = %+v, want the final reply to complete the debate", result)
	}
	if got := f.mustGetDebate(t, id).Status; got != models.DebateStatusVerdictReady {
		t.Errorf("status = %s, want VERDICT_READY", got)
	}
}

func TestResponderSkipsPausedUsers(t *testing.T) {
	f, aiID := aiFixture(t)
	f.store.mu.Lock()
	f.store.users[aiID].Paused = true
	f.store.mu.Unlock()

	now := time.Now()
	deadline := now.Add(time.Hour)
	f.store.addDebate(models.Debate{
		Topic:         "topic",
		ChallengerID:  aiID,
		OpponentID:    f.opponentID,
		Status:        models.DebateStatusActive,
		CurrentRound:  1,
		TotalRounds:   3,
		RoundDuration: time.Hour,
		RoundDeadline: &deadline,
		CreatedAt:     now,
	})

	result := f.responder.RespondOnce(context.Background(), now)
	if result.Accepted != 0 || result.Skipped != 0 {
		t.Errorf("result = %+v, want a paused user to be ignored entirely", result)
	}
}

func TestResponderRecordsGenerationFailure(t *testing.T) {
	f, aiID := aiFixture(t)
	f.statements.text = "" // force generation failure
	now := time.Now()
	deadline := now.Add(time.Hour)
	id := f.store.addDebate(models.Debate{
		Topic:         "topic",
		ChallengerID:  aiID,
		OpponentID:    f.opponentID,
		Status:        models.DebateStatusActive,
		CurrentRound:  1,
		TotalRounds:   3,
		RoundDuration: time.Hour,
		RoundDeadline: &deadline,
		CreatedAt:     now,
	})

	result := f.responder.RespondOnce(context.Background(), now)
	if result.Accepted != 0 || len(result.Errors) != 1 {
		t.Fatalf("result = %+v, want no submission and one error", result)
	}
	statements, _ := f.store.StatementsForRound(context.Background(), id, 1)
	if len(statements) != 0 {
		t.Error("a failed generation must not leave a statement behind")
	}
}
