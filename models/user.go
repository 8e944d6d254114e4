package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User defines a rating-bearing participant. AI users are regular participants
// driven by the turn responder instead of a human.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Email        string             `bson:"email" json:"email"`
	DisplayName  string             `bson:"displayName" json:"displayName"`
	EloRating    int                `bson:"eloRating" json:"eloRating"`
	DebatesWon   int                `bson:"debatesWon" json:"debatesWon"`
	DebatesLost  int                `bson:"debatesLost" json:"debatesLost"`
	DebatesTied  int                `bson:"debatesTied" json:"debatesTied"`
	TotalDebates int                `bson:"totalDebates" json:"totalDebates"`
	IsAI         bool               `bson:"isAi,omitempty" json:"isAi,omitempty"`
	Paused       bool               `bson:"paused,omitempty" json:"paused,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}
