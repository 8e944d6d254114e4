package db

import (
	"context"
	"fmt"
	"time"

	"debatehub/models"
	"debatehub/services"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// CreateDebate inserts a new debate document
func (s *MongoStore) CreateDebate(ctx context.Context, debate *models.Debate) error {
	if debate.ID.IsZero() {
		debate.ID = primitive.NewObjectID()
	}
	if debate.CreatedAt.IsZero() {
		debate.CreatedAt = time.Now()
	}
	_, err := s.debates().InsertOne(ctx, debate)
	if err != nil {
		return fmt.Errorf("failed to insert debate: %w", err)
	}
	return nil
}

// GetDebate loads a debate by id
func (s *MongoStore) GetDebate(ctx context.Context, id primitive.ObjectID) (*models.Debate, error) {
	var debate models.Debate
	err := s.debates().FindOne(ctx, bson.M{"_id": id}).Decode(&debate)
	if err == mongo.ErrNoDocuments {
		return nil, services.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &debate, nil
}

// ExpiredActiveDebates returns ACTIVE debates whose round deadline has elapsed
func (s *MongoStore) ExpiredActiveDebates(ctx context.Context, now time.Time) ([]models.Debate, error) {
	filter := bson.M{
		"status":        models.DebateStatusActive,
		"roundDeadline": bson.M{"$lte": now},
	}
	return s.findDebates(ctx, filter)
}

// StaleWaitingDebates returns WAITING debates past the TTL cutoff, plus
// inconsistent ones that have an opponent assigned but never started
func (s *MongoStore) StaleWaitingDebates(ctx context.Context, cutoff time.Time) ([]models.Debate, error) {
	filter := bson.M{
		"status": models.DebateStatusWaiting,
		"$or": []bson.M{
			{"createdAt": bson.M{"$lte": cutoff}},
			{"opponentId": bson.M{"$exists": true, "$ne": primitive.NilObjectID}},
		},
	}
	return s.findDebates(ctx, filter)
}

// ActiveDebatesForUser returns ACTIVE debates the user argues in. Invitees who
// never accepted are not seated parties and do not match.
func (s *MongoStore) ActiveDebatesForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Debate, error) {
	filter := bson.M{
		"status": models.DebateStatusActive,
		"$or": []bson.M{
			{"challengerId": userID},
			{"opponentId": userID},
		},
	}
	return s.findDebates(ctx, filter)
}

// AppealedDebates returns debates with an unresolved appeal
func (s *MongoStore) AppealedDebates(ctx context.Context) ([]models.Debate, error) {
	filter := bson.M{
		"status": models.DebateStatusAppealed,
		"appealStatus": bson.M{"$in": []models.AppealStatus{
			models.AppealStatusPending, models.AppealStatusProcessing,
		}},
	}
	return s.findDebates(ctx, filter)
}

func (s *MongoStore) findDebates(ctx context.Context, filter bson.M) ([]models.Debate, error) {
	cursor, err := s.debates().Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var debates []models.Debate
	if err := cursor.All(ctx, &debates); err != nil {
		return nil, err
	}
	return debates, nil
}

// ActivateDebate moves WAITING -> ACTIVE, setting round 1 and its deadline.
// Returns false when the debate is no longer WAITING.
func (s *MongoStore) ActivateDebate(ctx context.Context, id, opponentID primitive.ObjectID, deadline time.Time) (bool, error) {
	res, err := s.debates().UpdateOne(ctx,
		bson.M{"_id": id, "status": models.DebateStatusWaiting},
		bson.M{"$set": bson.M{
			"status":        models.DebateStatusActive,
			"opponentId":    opponentID,
			"currentRound":  1,
			"roundDeadline": deadline,
		}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// AdvanceRound increments the round and resets the deadline, conditional on
// the debate still being ACTIVE on the expected round
func (s *MongoStore) AdvanceRound(ctx context.Context, id primitive.ObjectID, fromRound int, deadline time.Time) (bool, error) {
	res, err := s.debates().UpdateOne(ctx,
		bson.M{"_id": id, "status": models.DebateStatusActive, "currentRound": fromRound},
		bson.M{
			"$inc": bson.M{"currentRound": 1},
			"$set": bson.M{"roundDeadline": deadline},
		},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// CompleteDebate moves ACTIVE -> COMPLETED and clears the deadline
func (s *MongoStore) CompleteDebate(ctx context.Context, id primitive.ObjectID, fromRound int) (bool, error) {
	res, err := s.debates().UpdateOne(ctx,
		bson.M{"_id": id, "status": models.DebateStatusActive, "currentRound": fromRound},
		bson.M{
			"$set":   bson.M{"status": models.DebateStatusCompleted},
			"$unset": bson.M{"roundDeadline": ""},
		},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// CancelDebate moves a debate to CANCELLED from the expected prior status
func (s *MongoStore) CancelDebate(ctx context.Context, id primitive.ObjectID, from models.DebateStatus) (bool, error) {
	res, err := s.debates().UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{
			"$set":   bson.M{"status": models.DebateStatusCancelled},
			"$unset": bson.M{"roundDeadline": ""},
		},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// MarkAppealed moves VERDICT_READY -> APPEALED with a PENDING appeal. The
// original winner is snapshotted only on the very first appeal and never
// rewritten afterwards.
func (s *MongoStore) MarkAppealed(ctx context.Context, id primitive.ObjectID, now time.Time) (bool, error) {
	debate, err := s.GetDebate(ctx, id)
	if err != nil {
		return false, err
	}

	set := bson.M{
		"status":       models.DebateStatusAppealed,
		"appealStatus": models.AppealStatusPending,
		"appealedAt":   now,
	}
	if debate.AppealCount == 0 && debate.WinnerID != nil {
		set["originalWinnerId"] = *debate.WinnerID
	}

	// appealCount in the filter guards against a racing appeal request
	res, err := s.debates().UpdateOne(ctx,
		bson.M{"_id": id, "status": models.DebateStatusVerdictReady, "appealCount": debate.AppealCount},
		bson.M{"$set": set, "$inc": bson.M{"appealCount": 1}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// MarkAppealProcessing claims an appeal for resolution. PROCESSING also
// matches so a prior partial run can be resumed.
func (s *MongoStore) MarkAppealProcessing(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := s.debates().UpdateOne(ctx,
		bson.M{
			"_id":    id,
			"status": models.DebateStatusAppealed,
			"appealStatus": bson.M{"$in": []models.AppealStatus{
				models.AppealStatusPending, models.AppealStatusProcessing,
			}},
		},
		bson.M{"$set": bson.M{"appealStatus": models.AppealStatusProcessing}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// ApplyVerdict finalizes a COMPLETED debate and settles both users inside one
// transaction, so rating and status can never diverge on a crash
func (s *MongoStore) ApplyVerdict(ctx context.Context, id primitive.ObjectID, winnerID *primitive.ObjectID,
	challengerDelta, opponentDelta int, adjustments []services.UserAdjustment) (bool, error) {

	session, err := s.client.StartSession()
	if err != nil {
		return false, fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	matched := false
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		set := bson.M{
			"status":              models.DebateStatusVerdictReady,
			"challengerEloChange": challengerDelta,
			"opponentEloChange":   opponentDelta,
		}
		if winnerID != nil {
			set["winnerId"] = *winnerID
		}
		res, err := s.debates().UpdateOne(sc,
			bson.M{"_id": id, "status": models.DebateStatusCompleted},
			bson.M{"$set": set},
		)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			// Someone else already settled this debate
			return nil, nil
		}
		matched = true
		return nil, s.applyAdjustments(sc, adjustments)
	})
	if err != nil {
		return false, err
	}
	return matched, nil
}

// FinalizeAppeal resolves an appeal. For a flipped outcome the user reversal
// and re-application arrive as single combined adjustments, applied in the
// same transaction as the debate update.
func (s *MongoStore) FinalizeAppeal(ctx context.Context, id primitive.ObjectID,
	resolution services.AppealResolution, adjustments []services.UserAdjustment) (bool, error) {

	session, err := s.client.StartSession()
	if err != nil {
		return false, fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	matched := false
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		set := bson.M{
			"status":       models.DebateStatusVerdictReady,
			"appealStatus": models.AppealStatusResolved,
		}
		unset := bson.M{}
		if resolution.Flipped {
			if resolution.WinnerID != nil {
				set["winnerId"] = *resolution.WinnerID
			} else {
				unset["winnerId"] = ""
			}
			set["challengerEloChange"] = resolution.ChallengerEloChange
			set["opponentEloChange"] = resolution.OpponentEloChange
		}
		if resolution.RejectionReason != "" {
			set["appealRejectionReason"] = resolution.RejectionReason
		}

		update := bson.M{"$set": set}
		if len(unset) > 0 {
			update["$unset"] = unset
		}
		res, err := s.debates().UpdateOne(sc,
			bson.M{"_id": id, "status": models.DebateStatusAppealed, "appealStatus": models.AppealStatusProcessing},
			update,
		)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			return nil, nil
		}
		matched = true
		return nil, s.applyAdjustments(sc, adjustments)
	})
	if err != nil {
		return false, err
	}
	return matched, nil
}

// DenyAppeal marks an appeal DENIED without touching verdicts or ratings
func (s *MongoStore) DenyAppeal(ctx context.Context, id primitive.ObjectID, reason string) (bool, error) {
	res, err := s.debates().UpdateOne(ctx,
		bson.M{"_id": id, "status": models.DebateStatusAppealed, "appealStatus": models.AppealStatusProcessing},
		bson.M{"$set": bson.M{
			"status":                models.DebateStatusVerdictReady,
			"appealStatus":          models.AppealStatusDenied,
			"appealRejectionReason": reason,
		}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (s *MongoStore) applyAdjustments(ctx context.Context, adjustments []services.UserAdjustment) error {
	for _, adj := range adjustments {
		_, err := s.users().UpdateByID(ctx, adj.UserID, bson.M{"$inc": bson.M{
			"eloRating":    adj.RatingDelta,
			"debatesWon":   adj.WonDelta,
			"debatesLost":  adj.LostDelta,
			"debatesTied":  adj.TiedDelta,
			"totalDebates": adj.TotalDelta,
		}})
		if err != nil {
			return fmt.Errorf("failed to adjust user %s: %w", adj.UserID.Hex(), err)
		}
	}
	return nil
}

// InsertStatement saves one statement
func (s *MongoStore) InsertStatement(ctx context.Context, statement *models.Statement) error {
	if statement.ID.IsZero() {
		statement.ID = primitive.NewObjectID()
	}
	if statement.CreatedAt.IsZero() {
		statement.CreatedAt = time.Now()
	}
	_, err := s.statements().InsertOne(ctx, statement)
	if err != nil {
		return fmt.Errorf("failed to insert statement: %w", err)
	}
	return nil
}

// StatementsForRound returns all statements for one round of a debate
func (s *MongoStore) StatementsForRound(ctx context.Context, debateID primitive.ObjectID, round int) ([]models.Statement, error) {
	cursor, err := s.statements().Find(ctx, bson.M{"debateId": debateID, "round": round})
	if err != nil {
		return nil, err
	}
	var statements []models.Statement
	if err := cursor.All(ctx, &statements); err != nil {
		return nil, err
	}
	return statements, nil
}

// Statements returns the full transcript ordered by round, then time
func (s *MongoStore) Statements(ctx context.Context, debateID primitive.ObjectID) ([]models.Statement, error) {
	opts := optionsFindSort(bson.D{{Key: "round", Value: 1}, {Key: "createdAt", Value: 1}})
	cursor, err := s.statements().Find(ctx, bson.M{"debateId": debateID}, opts)
	if err != nil {
		return nil, err
	}
	var statements []models.Statement
	if err := cursor.All(ctx, &statements); err != nil {
		return nil, err
	}
	return statements, nil
}

// AllJudges returns the whole judge pool
func (s *MongoStore) AllJudges(ctx context.Context) ([]models.Judge, error) {
	cursor, err := s.judges().Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	var judges []models.Judge
	if err := cursor.All(ctx, &judges); err != nil {
		return nil, err
	}
	return judges, nil
}

// IncrementDebatesJudged bumps a judge's counter
func (s *MongoStore) IncrementDebatesJudged(ctx context.Context, judgeID primitive.ObjectID) error {
	_, err := s.judges().UpdateByID(ctx, judgeID, bson.M{"$inc": bson.M{"debatesJudged": 1}})
	return err
}

// InsertVerdict saves one judge's verdict
func (s *MongoStore) InsertVerdict(ctx context.Context, verdict *models.Verdict) error {
	if verdict.ID.IsZero() {
		verdict.ID = primitive.NewObjectID()
	}
	if verdict.CreatedAt.IsZero() {
		verdict.CreatedAt = time.Now()
	}
	_, err := s.verdicts().InsertOne(ctx, verdict)
	if err != nil {
		return fmt.Errorf("failed to insert verdict: %w", err)
	}
	return nil
}

// VerdictsForDebate returns every verdict for a debate, oldest first
func (s *MongoStore) VerdictsForDebate(ctx context.Context, debateID primitive.ObjectID) ([]models.Verdict, error) {
	opts := optionsFindSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := s.verdicts().Find(ctx, bson.M{"debateId": debateID}, opts)
	if err != nil {
		return nil, err
	}
	var verdicts []models.Verdict
	if err := cursor.All(ctx, &verdicts); err != nil {
		return nil, err
	}
	return verdicts, nil
}

// GetUser loads a user by id
func (s *MongoStore) GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := s.users().FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, services.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// AIUsers returns all automated participants
func (s *MongoStore) AIUsers(ctx context.Context) ([]models.User, error) {
	cursor, err := s.users().Find(ctx, bson.M{"isAi": true})
	if err != nil {
		return nil, err
	}
	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// CountJudges reports the judge pool size, used by startup seeding
func (s *MongoStore) CountJudges(ctx context.Context) (int64, error) {
	return s.judges().CountDocuments(ctx, bson.M{})
}

// InsertJudge adds a judge persona to the pool
func (s *MongoStore) InsertJudge(ctx context.Context, judge *models.Judge) error {
	if judge.ID.IsZero() {
		judge.ID = primitive.NewObjectID()
	}
	_, err := s.judges().InsertOne(ctx, judge)
	return err
}

// InsertUser adds a user, used by startup seeding
func (s *MongoStore) InsertUser(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	_, err := s.users().InsertOne(ctx, user)
	return err
}

// CountUsers reports how many users exist, used by startup seeding
func (s *MongoStore) CountUsers(ctx context.Context) (int64, error) {
	return s.users().CountDocuments(ctx, bson.M{})
}
