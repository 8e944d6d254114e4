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

var (
	ErrDebateNotWaiting   = errors.New("debate is not awaiting acceptance")
	ErrDebateNotActive    = errors.New("debate is not accepting statements")
	ErrNotParticipant     = errors.New("user is not a participant in this debate")
	ErrDuplicateStatement = errors.New("statement already submitted for this round")
	ErrSelfAccept         = errors.New("challenger cannot accept their own challenge")
)

// Transition reports what an expiry handler did to a debate
type Transition int

const (
	TransitionNone Transition = iota
	TransitionAdvanced
	TransitionCompleted
	TransitionCancelled
)

// LifecycleService is the sole authority over debate status, round and
// deadline mutations. Every transition re-validates its precondition inside
// the store write, so a duplicate trigger lands as a no-op.
type LifecycleService struct {
	store       Store
	notifier    Notifier
	adjudicator *AdjudicatorService
}

// NewLifecycleService wires the state machine to its collaborators
func NewLifecycleService(store Store, notifier Notifier, adjudicator *AdjudicatorService) *LifecycleService {
	return &LifecycleService{store: store, notifier: notifier, adjudicator: adjudicator}
}

// Accept moves a WAITING debate to ACTIVE with round 1 open
func (s *LifecycleService) Accept(ctx context.Context, debateID, opponentID primitive.ObjectID, now time.Time) (*models.Debate, error) {
	debate, err := s.store.GetDebate(ctx, debateID)
	if err != nil {
		return nil, err
	}
	if debate.Status != models.DebateStatusWaiting {
		return nil, ErrDebateNotWaiting
	}
	if debate.ChallengerID == opponentID {
		return nil, ErrSelfAccept
	}

	deadline := now.Add(debate.RoundDuration)
	ok, err := s.store.ActivateDebate(ctx, debateID, opponentID, deadline)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDebateNotWaiting
	}

	// Challenger moves first in every round
	s.notifier.Notify(debate.ChallengerID, notify.KindYourTurn, map[string]string{
		"debateId": debateID.Hex(),
		"round":    "1",
	})
	return s.store.GetDebate(ctx, debateID)
}

// SubmitStatement records one participant's argument for the current round.
// At most one real statement per (debate, author, round) is allowed; a
// forfeit placeholder does not satisfy the author's slot but does not block
// rejection checks either.
func (s *LifecycleService) SubmitStatement(ctx context.Context, debateID, authorID primitive.ObjectID, content string, now time.Time) (*models.Statement, error) {
	debate, err := s.store.GetDebate(ctx, debateID)
	if err != nil {
		return nil, err
	}
	if debate.Status != models.DebateStatusActive {
		return nil, ErrDebateNotActive
	}
	if !debate.IsParticipant(authorID) {
		return nil, ErrNotParticipant
	}

	statements, err := s.store.StatementsForRound(ctx, debateID, debate.CurrentRound)
	if err != nil {
		return nil, err
	}
	for _, st := range statements {
		if st.AuthorID == authorID && !st.Forfeit {
			return nil, ErrDuplicateStatement
		}
	}

	statement := &models.Statement{
		DebateID:  debateID,
		AuthorID:  authorID,
		Round:     debate.CurrentRound,
		Content:   content,
		CreatedAt: now,
	}
	if err := s.store.InsertStatement(ctx, statement); err != nil {
		return nil, err
	}
	return statement, nil
}

// HandleExpiry drives a debate whose round deadline has elapsed. The fresh
// read plus conditional store writes make concurrent sweeps converge on a
// single transition.
func (s *LifecycleService) HandleExpiry(ctx context.Context, debateID primitive.ObjectID, now time.Time) (Transition, error) {
	debate, err := s.store.GetDebate(ctx, debateID)
	if err != nil {
		return TransitionNone, err
	}
	if debate.Status != models.DebateStatusActive ||
		debate.RoundDeadline == nil || debate.RoundDeadline.After(now) {
		// Someone else already handled it
		return TransitionNone, nil
	}

	statements, err := s.store.StatementsForRound(ctx, debate.ID, debate.CurrentRound)
	if err != nil {
		return TransitionNone, err
	}
	challengerIn := hasRealStatement(statements, debate.ChallengerID)
	opponentIn := hasRealStatement(statements, debate.OpponentID)

	switch {
	case challengerIn && opponentIn:
		return s.completeOrAdvance(ctx, debate, false, now)

	case !challengerIn && !opponentIn && debate.CurrentRound == 1:
		// No-show cancellation: nobody argued, nothing to adjudicate
		ok, err := s.store.CancelDebate(ctx, debate.ID, models.DebateStatusActive)
		if err != nil {
			return TransitionNone, err
		}
		if !ok {
			return TransitionNone, nil
		}
		s.notifyBoth(debate, notify.KindDebateCancelled, map[string]string{
			"debateId": debate.ID.Hex(),
			"reason":   "no statements were submitted in round 1",
		})
		return TransitionCancelled, nil

	case !challengerIn && !opponentIn:
		if err := s.insertForfeit(ctx, debate, debate.ChallengerID, statements, now); err != nil {
			return TransitionNone, err
		}
		if err := s.insertForfeit(ctx, debate, debate.OpponentID, statements, now); err != nil {
			return TransitionNone, err
		}
		s.notifyBoth(debate, notify.KindRoundTied, map[string]string{
			"debateId": debate.ID.Hex(),
			"round":    fmt.Sprintf("%d", debate.CurrentRound),
		})
		return s.completeOrAdvance(ctx, debate, true, now)

	default:
		missing := debate.ChallengerID
		if challengerIn {
			missing = debate.OpponentID
		}
		if err := s.insertForfeit(ctx, debate, missing, statements, now); err != nil {
			return TransitionNone, err
		}
		s.notifyBoth(debate, notify.KindDeadlineMissed, map[string]string{
			"debateId":     debate.ID.Hex(),
			"round":        fmt.Sprintf("%d", debate.CurrentRound),
			"missedUserId": missing.Hex(),
		})
		return s.completeOrAdvance(ctx, debate, true, now)
	}
}

// AdvanceIfRoundComplete applies the completion-vs-advance rule early when
// both sides have submitted before the deadline. Used by the AI responder so
// its submissions drive rounds exactly as deadline expiry would.
func (s *LifecycleService) AdvanceIfRoundComplete(ctx context.Context, debateID primitive.ObjectID, now time.Time) (Transition, error) {
	debate, err := s.store.GetDebate(ctx, debateID)
	if err != nil {
		return TransitionNone, err
	}
	if debate.Status != models.DebateStatusActive {
		return TransitionNone, nil
	}
	statements, err := s.store.StatementsForRound(ctx, debate.ID, debate.CurrentRound)
	if err != nil {
		return TransitionNone, err
	}
	if !hasRealStatement(statements, debate.ChallengerID) ||
		!hasRealStatement(statements, debate.OpponentID) {
		return TransitionNone, nil
	}
	return s.completeOrAdvance(ctx, debate, false, now)
}

// completeOrAdvance finishes the debate or opens the next round. A missed
// deadline forces completion from the halfway round on, so one side cannot
// keep a debate alive by perpetually no-showing.
func (s *LifecycleService) completeOrAdvance(ctx context.Context, debate *models.Debate, missed bool, now time.Time) (Transition, error) {
	round, total := debate.CurrentRound, debate.TotalRounds
	finished := round >= total || (missed && round >= halfwayRound(total))

	if finished {
		ok, err := s.store.CompleteDebate(ctx, debate.ID, round)
		if err != nil {
			return TransitionNone, err
		}
		if !ok {
			return TransitionNone, nil
		}
		// A judge-side failure leaves the debate COMPLETED for a later retry;
		// the transition itself already happened.
		if err := s.adjudicator.Adjudicate(ctx, debate.ID); err != nil {
			return TransitionCompleted, err
		}
		return TransitionCompleted, nil
	}

	deadline := now.Add(debate.RoundDuration)
	ok, err := s.store.AdvanceRound(ctx, debate.ID, round, deadline)
	if err != nil {
		return TransitionNone, err
	}
	if !ok {
		return TransitionNone, nil
	}
	s.notifyBoth(debate, notify.KindRoundAdvanced, map[string]string{
		"debateId": debate.ID.Hex(),
		"round":    fmt.Sprintf("%d", round+1),
	})
	return TransitionAdvanced, nil
}

func (s *LifecycleService) insertForfeit(ctx context.Context, debate *models.Debate, authorID primitive.ObjectID, existing []models.Statement, now time.Time) error {
	for _, st := range existing {
		if st.AuthorID == authorID && st.Forfeit {
			return nil // already placed by an earlier partial run
		}
	}
	return s.store.InsertStatement(ctx, &models.Statement{
		DebateID:  debate.ID,
		AuthorID:  authorID,
		Round:     debate.CurrentRound,
		Content:   models.ForfeitContent,
		Forfeit:   true,
		CreatedAt: now,
	})
}

func (s *LifecycleService) notifyBoth(debate *models.Debate, kind notify.Kind, payload map[string]string) {
	s.notifier.Notify(debate.ChallengerID, kind, payload)
	if !debate.OpponentID.IsZero() {
		s.notifier.Notify(debate.OpponentID, kind, payload)
	}
}

// halfwayRound returns ceil(total/2), the earliest round at which a missed
// deadline forces completion
func halfwayRound(total int) int {
	return (total + 1) / 2
}

func hasRealStatement(statements []models.Statement, authorID primitive.ObjectID) bool {
	for _, st := range statements {
		if st.AuthorID == authorID && !st.Forfeit {
			return true
		}
	}
	return false
}
