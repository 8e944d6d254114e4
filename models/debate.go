package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DebateStatus string

const (
	DebateStatusWaiting      DebateStatus = "WAITING"
	DebateStatusActive       DebateStatus = "ACTIVE"
	DebateStatusCompleted    DebateStatus = "COMPLETED"
	DebateStatusVerdictReady DebateStatus = "VERDICT_READY"
	DebateStatusAppealed     DebateStatus = "APPEALED"
	DebateStatusCancelled    DebateStatus = "CANCELLED"
)

type AppealStatus string

const (
	AppealStatusNone       AppealStatus = ""
	AppealStatusPending    AppealStatus = "PENDING"
	AppealStatusProcessing AppealStatus = "PROCESSING"
	AppealStatusResolved   AppealStatus = "RESOLVED"
	AppealStatusDenied     AppealStatus = "DENIED"
)

// Debate defines a single debate record. RoundDeadline is set only while the
// debate is ACTIVE; ChallengerEloChange/OpponentEloChange keep the applied
// rating deltas so an appeal can reverse them.
type Debate struct {
	ID                    primitive.ObjectID   `bson:"_id,omitempty" json:"id,omitempty"`
	Topic                 string               `bson:"topic" json:"topic"`
	ChallengerID          primitive.ObjectID   `bson:"challengerId" json:"challengerId"`
	OpponentID            primitive.ObjectID   `bson:"opponentId,omitempty" json:"opponentId,omitempty"`
	ParticipantIDs        []primitive.ObjectID `bson:"participantIds,omitempty" json:"participantIds,omitempty"`
	Status                DebateStatus         `bson:"status" json:"status"`
	CurrentRound          int                  `bson:"currentRound" json:"currentRound"`
	TotalRounds           int                  `bson:"totalRounds" json:"totalRounds"`
	RoundDuration         time.Duration        `bson:"roundDuration" json:"roundDuration"`
	RoundDeadline         *time.Time           `bson:"roundDeadline,omitempty" json:"roundDeadline,omitempty"`
	WinnerID              *primitive.ObjectID  `bson:"winnerId,omitempty" json:"winnerId,omitempty"`
	AppealStatus          AppealStatus         `bson:"appealStatus,omitempty" json:"appealStatus,omitempty"`
	AppealCount           int                  `bson:"appealCount" json:"appealCount"`
	AppealedAt            *time.Time           `bson:"appealedAt,omitempty" json:"appealedAt,omitempty"`
	OriginalWinnerID      *primitive.ObjectID  `bson:"originalWinnerId,omitempty" json:"originalWinnerId,omitempty"`
	AppealRejectionReason string               `bson:"appealRejectionReason,omitempty" json:"appealRejectionReason,omitempty"`
	ChallengerEloChange   int                  `bson:"challengerEloChange" json:"challengerEloChange"`
	OpponentEloChange     int                  `bson:"opponentEloChange" json:"opponentEloChange"`
	CreatedAt             time.Time            `bson:"createdAt" json:"createdAt"`
}

// IsParticipant reports whether the given user is one of the two seated
// debaters. Invitees listed in ParticipantIDs do not argue until they accept.
func (d *Debate) IsParticipant(userID primitive.ObjectID) bool {
	return d.ChallengerID == userID || d.OpponentID == userID
}

// OtherParty returns the opposing participant for a two-sided debate
func (d *Debate) OtherParty(userID primitive.ObjectID) primitive.ObjectID {
	if d.ChallengerID == userID {
		return d.OpponentID
	}
	return d.ChallengerID
}

// ForfeitContent is the sentinel inserted when a participant misses a deadline
const ForfeitContent = "No statement was submitted before the round deadline."

// Statement holds one participant's argument for one round
type Statement struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	DebateID  primitive.ObjectID `bson:"debateId" json:"debateId"`
	AuthorID  primitive.ObjectID `bson:"authorId" json:"authorId"`
	Round     int                `bson:"round" json:"round"`
	Content   string             `bson:"content" json:"content"`
	Forfeit   bool               `bson:"forfeit,omitempty" json:"forfeit,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
