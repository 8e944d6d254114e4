package controllers

import (
	"errors"
	"net/http"
	"time"

	"debatehub/models"
	"debatehub/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CreateDebateHandler records a new challenge in WAITING state. Matchmaking
// itself lives upstream; this is the hand-off point into the lifecycle.
func CreateDebateHandler(c *gin.Context) {
	var request struct {
		Topic                string               `json:"topic"`
		ChallengerID         primitive.ObjectID   `json:"challengerId"`
		InvitedUserIDs       []primitive.ObjectID `json:"invitedUserIds"`
		TotalRounds          int                  `json:"totalRounds"`
		RoundDurationMinutes int                  `json:"roundDurationMinutes"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}
	if request.Topic == "" || request.ChallengerID.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "topic and challengerId are required"})
		return
	}

	totalRounds, roundDuration := services.DebateDefaults()
	if request.TotalRounds > 0 {
		totalRounds = request.TotalRounds
	}
	if request.RoundDurationMinutes > 0 {
		roundDuration = time.Duration(request.RoundDurationMinutes) * time.Minute
	}

	debate := &models.Debate{
		Topic:          request.Topic,
		ChallengerID:   request.ChallengerID,
		ParticipantIDs: request.InvitedUserIDs,
		Status:         models.DebateStatusWaiting,
		TotalRounds:    totalRounds,
		RoundDuration:  roundDuration,
		CreatedAt:      time.Now(),
	}
	if err := services.GetStore().CreateDebate(c.Request.Context(), debate); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create debate"})
		return
	}
	c.JSON(http.StatusCreated, debate)
}

// AcceptDebateHandler moves a WAITING debate to ACTIVE
func AcceptDebateHandler(c *gin.Context) {
	debateID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid debate id"})
		return
	}
	var request struct {
		OpponentID primitive.ObjectID `json:"opponentId"`
	}
	if err := c.ShouldBindJSON(&request); err != nil || request.OpponentID.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "opponentId is required"})
		return
	}

	debate, err := services.Lifecycle().Accept(c.Request.Context(), debateID, request.OpponentID, time.Now())
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Debate not found"})
	case errors.Is(err, services.ErrDebateNotWaiting):
		c.JSON(http.StatusConflict, gin.H{"error": "Debate is not awaiting acceptance"})
	case errors.Is(err, services.ErrSelfAccept):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Challenger cannot accept their own challenge"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to accept debate"})
	default:
		c.JSON(http.StatusOK, debate)
	}
}

// SubmitStatementHandler records a participant's argument for the current round
func SubmitStatementHandler(c *gin.Context) {
	debateID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid debate id"})
		return
	}
	var request struct {
		AuthorID primitive.ObjectID `json:"authorId"`
		Content  string             `json:"content"`
	}
	if err := c.ShouldBindJSON(&request); err != nil || request.AuthorID.IsZero() || request.Content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authorId and content are required"})
		return
	}

	statement, err := services.Lifecycle().SubmitStatement(c.Request.Context(), debateID, request.AuthorID, request.Content, time.Now())
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Debate not found"})
	case errors.Is(err, services.ErrDebateNotActive):
		c.JSON(http.StatusConflict, gin.H{"error": "Debate is not accepting statements"})
	case errors.Is(err, services.ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a participant in this debate"})
	case errors.Is(err, services.ErrDuplicateStatement):
		c.JSON(http.StatusConflict, gin.H{"error": "Statement already submitted for this round"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit statement"})
	default:
		c.JSON(http.StatusCreated, statement)
	}
}

// GetDebateHandler returns a debate with its transcript and verdicts
func GetDebateHandler(c *gin.Context) {
	debateID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid debate id"})
		return
	}

	ctx := c.Request.Context()
	debate, err := services.GetStore().GetDebate(ctx, debateID)
	if errors.Is(err, services.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Debate not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load debate"})
		return
	}

	statements, err := services.GetStore().Statements(ctx, debateID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load transcript"})
		return
	}
	verdicts, err := services.GetStore().VerdictsForDebate(ctx, debateID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load verdicts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"debate":     debate,
		"statements": statements,
		"verdicts":   verdicts,
	})
}

// RequestAppealHandler flags a VERDICT_READY debate for re-adjudication. The
// appeal itself is resolved asynchronously by the appeals run.
func RequestAppealHandler(c *gin.Context) {
	debateID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid debate id"})
		return
	}

	ok, err := services.GetStore().MarkAppealed(c.Request.Context(), debateID, time.Now())
	if errors.Is(err, services.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Debate not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to request appeal"})
		return
	}
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "Debate cannot be appealed in its current state"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Appeal requested"})
}
