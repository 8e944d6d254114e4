package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"debatehub/internal/notify"
	"debatehub/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ResponderResult summarizes one AI-turn run for the trigger surface
type ResponderResult struct {
	Accepted  int      `json:"accepted"`
	Advanced  int      `json:"advanced"`
	Completed int      `json:"completed"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors"`
}

// ResponderService takes turns on behalf of automated participants. Generated
// statements go through the same submission path as human ones, so the
// one-per-author-per-round invariant and round transitions apply identically.
type ResponderService struct {
	store     Store
	lifecycle *LifecycleService
	generator StatementGenerator
	notifier  Notifier
	minDelay  time.Duration
}

// NewResponderService wires the responder to the state machine
func NewResponderService(store Store, lifecycle *LifecycleService, generator StatementGenerator, notifier Notifier, minDelay time.Duration) *ResponderService {
	return &ResponderService{
		store:     store,
		lifecycle: lifecycle,
		generator: generator,
		notifier:  notifier,
		minDelay:  minDelay,
	}
}

// RespondOnce processes every unpaused AI participant's pending debates.
// A failed text generation skips the turn; the next run retries it.
func (s *ResponderService) RespondOnce(ctx context.Context, now time.Time) ResponderResult {
	result := ResponderResult{Errors: []string{}}

	users, err := s.store.AIUsers(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("list ai users: %v", err))
		return result
	}

	for _, user := range users {
		if user.Paused {
			continue
		}
		debates, err := s.store.ActiveDebatesForUser(ctx, user.ID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("user %s: list debates: %v", user.ID.Hex(), err))
			continue
		}
		for _, debate := range debates {
			s.respond(ctx, &debate, &user, now, &result)
		}
	}
	return result
}

func (s *ResponderService) respond(ctx context.Context, debate *models.Debate, user *models.User, now time.Time, result *ResponderResult) {
	statements, err := s.store.StatementsForRound(ctx, debate.ID, debate.CurrentRound)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("debate %s: load round: %v", debate.ID.Hex(), err))
		return
	}
	if hasRealStatement(statements, user.ID) {
		return // already argued this round
	}

	other := debate.OtherParty(user.ID)
	last := latestRealStatement(statements)

	myTurn := false
	if last == nil {
		// Challenger moves first in a fresh round
		myTurn = debate.ChallengerID == user.ID
	} else {
		myTurn = last.AuthorID == other
	}
	if !myTurn {
		result.Skipped++
		return
	}

	transcript, err := s.store.Statements(ctx, debate.ID)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("debate %s: load transcript: %v", debate.ID.Hex(), err))
		return
	}
	// Thinking-time gate, measured from the opponent's latest statement in any
	// round so a reply that closed the previous round still delays the next
	if lastOther := latestRealStatementBy(transcript, other); lastOther != nil && now.Sub(lastOther.CreatedAt) < s.minDelay {
		result.Skipped++
		return
	}
	role := "challenger"
	if user.ID == debate.OpponentID {
		role = "opponent"
	}
	text, err := s.generator.GenerateStatement(ctx, DebateContext{
		Topic:       debate.Topic,
		Round:       debate.CurrentRound,
		TotalRounds: debate.TotalRounds,
		Role:        role,
		Transcript:  formatTranscript(debate, transcript),
	})
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("debate %s: generate statement: %v", debate.ID.Hex(), err))
		return
	}

	_, err = s.lifecycle.SubmitStatement(ctx, debate.ID, user.ID, text, now)
	if errors.Is(err, ErrDuplicateStatement) || errors.Is(err, ErrDebateNotActive) {
		return // raced with another actor, already handled
	}
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("debate %s: submit: %v", debate.ID.Hex(), err))
		return
	}
	result.Accepted++

	if !hasRealStatement(statements, other) {
		// The other side still owes this round; nudge them
		s.notifier.Notify(other, notify.KindYourTurn, map[string]string{
			"debateId": debate.ID.Hex(),
			"round":    fmt.Sprintf("%d", debate.CurrentRound),
		})
		return
	}

	transition, err := s.lifecycle.AdvanceIfRoundComplete(ctx, debate.ID, now)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("debate %s: %v", debate.ID.Hex(), err))
	}
	switch transition {
	case TransitionAdvanced:
		result.Advanced++
	case TransitionCompleted:
		result.Completed++
	}
}

func latestRealStatement(statements []models.Statement) *models.Statement {
	var last *models.Statement
	for i := range statements {
		st := &statements[i]
		if st.Forfeit {
			continue
		}
		if last == nil || st.CreatedAt.After(last.CreatedAt) {
			last = st
		}
	}
	return last
}

func latestRealStatementBy(statements []models.Statement, authorID primitive.ObjectID) *models.Statement {
	var last *models.Statement
	for i := range statements {
		st := &statements[i]
		if st.Forfeit || st.AuthorID != authorID {
			continue
		}
		if last == nil || st.CreatedAt.After(last.CreatedAt) {
			last = st
		}
	}
	return last
}
