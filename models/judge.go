package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Judge is a named adjudication persona backed by a system prompt
type Judge struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name          string             `bson:"name" json:"name"`
	SystemPrompt  string             `bson:"systemPrompt" json:"systemPrompt"`
	DebatesJudged int                `bson:"debatesJudged" json:"debatesJudged"`
}

type VerdictDecision string

const (
	DecisionChallengerWins VerdictDecision = "CHALLENGER_WINS"
	DecisionOpponentWins   VerdictDecision = "OPPONENT_WINS"
	DecisionTie            VerdictDecision = "TIE"
)

// Verdict is one judge's opinion on a completed debate. Verdicts are immutable;
// an appeal inserts new rows, and CreatedAt vs Debate.AppealedAt tells the two
// generations apart.
type Verdict struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	DebateID        primitive.ObjectID  `bson:"debateId" json:"debateId"`
	JudgeID         primitive.ObjectID  `bson:"judgeId" json:"judgeId"`
	Decision        VerdictDecision     `bson:"decision" json:"decision"`
	WinnerID        *primitive.ObjectID `bson:"winnerId,omitempty" json:"winnerId,omitempty"`
	ChallengerScore int                 `bson:"challengerScore" json:"challengerScore"`
	OpponentScore   int                 `bson:"opponentScore" json:"opponentScore"`
	Reasoning       string              `bson:"reasoning" json:"reasoning"`
	CreatedAt       time.Time           `bson:"createdAt" json:"createdAt"`
}
