package services

import (
	"context"
	"errors"
	"time"

	"debatehub/internal/notify"
	"debatehub/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotFound is returned by store lookups when no document matches
var ErrNotFound = errors.New("document not found")

// UserAdjustment is one user's share of a verdict or appeal settlement. The
// store applies it atomically with the debate write it belongs to.
type UserAdjustment struct {
	UserID      primitive.ObjectID
	RatingDelta int
	WonDelta    int
	LostDelta   int
	TiedDelta   int
	TotalDelta  int
}

// AppealResolution describes how an appeal concluded. When Flipped is false
// only the status fields and rejection reason are written; the original
// winner and deltas stay untouched.
type AppealResolution struct {
	WinnerID            *primitive.ObjectID
	ChallengerEloChange int
	OpponentEloChange   int
	RejectionReason     string
	Flipped             bool
}

// Store is the persistence boundary for the lifecycle and adjudication
// services. Transition methods are conditional writes: they re-validate the
// precondition inside the same operation and report (false, nil) when another
// actor already moved the debate on, which callers treat as a no-op.
type Store interface {
	// Debates
	CreateDebate(ctx context.Context, debate *models.Debate) error
	GetDebate(ctx context.Context, id primitive.ObjectID) (*models.Debate, error)
	ExpiredActiveDebates(ctx context.Context, now time.Time) ([]models.Debate, error)
	StaleWaitingDebates(ctx context.Context, cutoff time.Time) ([]models.Debate, error)
	ActiveDebatesForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Debate, error)
	AppealedDebates(ctx context.Context) ([]models.Debate, error)

	// Conditional transitions
	ActivateDebate(ctx context.Context, id, opponentID primitive.ObjectID, deadline time.Time) (bool, error)
	AdvanceRound(ctx context.Context, id primitive.ObjectID, fromRound int, deadline time.Time) (bool, error)
	CompleteDebate(ctx context.Context, id primitive.ObjectID, fromRound int) (bool, error)
	CancelDebate(ctx context.Context, id primitive.ObjectID, from models.DebateStatus) (bool, error)
	MarkAppealed(ctx context.Context, id primitive.ObjectID, now time.Time) (bool, error)
	MarkAppealProcessing(ctx context.Context, id primitive.ObjectID) (bool, error)

	// Settlements, transactional with the user adjustments
	ApplyVerdict(ctx context.Context, id primitive.ObjectID, winnerID *primitive.ObjectID,
		challengerDelta, opponentDelta int, adjustments []UserAdjustment) (bool, error)
	FinalizeAppeal(ctx context.Context, id primitive.ObjectID, resolution AppealResolution,
		adjustments []UserAdjustment) (bool, error)
	DenyAppeal(ctx context.Context, id primitive.ObjectID, reason string) (bool, error)

	// Statements
	InsertStatement(ctx context.Context, statement *models.Statement) error
	StatementsForRound(ctx context.Context, debateID primitive.ObjectID, round int) ([]models.Statement, error)
	Statements(ctx context.Context, debateID primitive.ObjectID) ([]models.Statement, error)

	// Judges and verdicts
	AllJudges(ctx context.Context) ([]models.Judge, error)
	IncrementDebatesJudged(ctx context.Context, judgeID primitive.ObjectID) error
	InsertVerdict(ctx context.Context, verdict *models.Verdict) error
	VerdictsForDebate(ctx context.Context, debateID primitive.ObjectID) ([]models.Verdict, error)

	// Users
	GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	AIUsers(ctx context.Context) ([]models.User, error)
}

// Notifier is the fire-and-forget notification hand-off. Implementations must
// never block core logic and never surface delivery errors to the caller.
type Notifier interface {
	Notify(userID primitive.ObjectID, kind notify.Kind, payload map[string]string)
}
