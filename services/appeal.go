package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"debatehub/internal/notify"
	"debatehub/models"
	"debatehub/rating"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AppealDisposition reports how one appeal resolution ended
type AppealDisposition int

const (
	AppealNone AppealDisposition = iota
	AppealUpheld
	AppealFlipped
	AppealDenied
)

// AppealResult summarizes one appeal-processing run for the trigger surface
type AppealResult struct {
	Resolved int      `json:"resolved"`
	Flipped  int      `json:"flipped"`
	Denied   int      `json:"denied"`
	Errors   []string `json:"errors"`
}

// AppealService re-adjudicates appealed debates with a replacement judge
// panel disjoint from the original, reversing and re-applying ratings when
// the outcome flips.
type AppealService struct {
	store     Store
	verdicts  VerdictGenerator
	notifier  Notifier
	panelSize int
}

// NewAppealService wires the appeal adjudicator to its collaborators
func NewAppealService(store Store, verdicts VerdictGenerator, notifier Notifier, panelSize int) *AppealService {
	return &AppealService{store: store, verdicts: verdicts, notifier: notifier, panelSize: panelSize}
}

// ProcessOnce resolves every debate with an unresolved appeal
func (s *AppealService) ProcessOnce(ctx context.Context, now time.Time) AppealResult {
	result := AppealResult{Errors: []string{}}

	debates, err := s.store.AppealedDebates(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("list appealed debates: %v", err))
		return result
	}
	for _, debate := range debates {
		disposition, err := s.Resolve(ctx, debate.ID, now)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("debate %s: %v", debate.ID.Hex(), err))
			continue
		}
		switch disposition {
		case AppealUpheld:
			result.Resolved++
		case AppealFlipped:
			result.Resolved++
			result.Flipped++
		case AppealDenied:
			result.Denied++
		}
	}
	return result
}

// Resolve runs one appeal to completion. The operation is resumable: a prior
// partial run's verdicts are reused and its judges never picked again.
func (s *AppealService) Resolve(ctx context.Context, debateID primitive.ObjectID, now time.Time) (AppealDisposition, error) {
	debate, err := s.store.GetDebate(ctx, debateID)
	if err != nil {
		return AppealNone, err
	}
	if debate.Status != models.DebateStatusAppealed {
		return AppealNone, nil
	}
	if debate.AppealStatus != models.AppealStatusPending && debate.AppealStatus != models.AppealStatusProcessing {
		return AppealNone, nil
	}
	if debate.AppealedAt == nil {
		return AppealNone, fmt.Errorf("appealed debate has no appealedAt timestamp")
	}

	ok, err := s.store.MarkAppealProcessing(ctx, debateID)
	if err != nil {
		return AppealNone, err
	}
	if !ok {
		return AppealNone, nil
	}

	// Verdict generations are told apart by timestamp: rows created before the
	// appeal belong to the original panel, the rest to this appeal.
	all, err := s.store.VerdictsForDebate(ctx, debateID)
	if err != nil {
		return AppealNone, err
	}
	usedJudges := make(map[primitive.ObjectID]bool)
	var appealVerdicts []models.Verdict
	for _, v := range all {
		usedJudges[v.JudgeID] = true
		if !v.CreatedAt.Before(*debate.AppealedAt) {
			appealVerdicts = append(appealVerdicts, v)
		}
	}

	if len(appealVerdicts) < s.panelSize {
		generated, err := s.generateShortfall(ctx, debate, usedJudges, s.panelSize-len(appealVerdicts))
		if err != nil {
			return AppealNone, err
		}
		appealVerdicts = append(appealVerdicts, generated...)
	}

	if len(appealVerdicts) == 0 {
		// No second opinion obtainable; the original verdict and ratings stand
		ok, err := s.store.DenyAppeal(ctx, debateID, "no appeal verdicts could be obtained")
		if err != nil {
			return AppealNone, err
		}
		if ok {
			s.notifyBoth(debate, notify.KindAppealDenied, map[string]string{"debateId": debateID.Hex()})
		}
		return AppealDenied, nil
	}

	decisions := make([]models.VerdictDecision, 0, len(appealVerdicts))
	for _, v := range appealVerdicts {
		decisions = append(decisions, v.Decision)
	}
	outcome := AggregateDecisions(decisions)
	newWinnerID, newResult := outcomeForChallenger(debate, outcome)

	// Compared against the winner snapshotted at the very first appeal, never
	// re-snapshotted by later appeals.
	if sameWinner(newWinnerID, debate.OriginalWinnerID) {
		resolution := AppealResolution{
			RejectionReason: "appeal rejected: the replacement panel reached the same outcome",
		}
		ok, err := s.store.FinalizeAppeal(ctx, debateID, resolution, nil)
		if err != nil {
			return AppealNone, err
		}
		if ok {
			s.notifyBoth(debate, notify.KindAppealResolved, map[string]string{
				"debateId": debateID.Hex(),
				"flipped":  "false",
			})
		}
		return AppealUpheld, nil
	}

	challenger, err := s.store.GetUser(ctx, debate.ChallengerID)
	if err != nil {
		return AppealNone, err
	}
	opponent, err := s.store.GetUser(ctx, debate.OpponentID)
	if err != nil {
		return AppealNone, err
	}

	// New deltas are computed against each rating as it stands after the
	// reversal; reversal and re-application land as one increment per user.
	challengerReversed := challenger.EloRating - debate.ChallengerEloChange
	opponentReversed := opponent.EloRating - debate.OpponentEloChange
	newChallengerDelta := rating.Delta(challengerReversed, opponentReversed, newResult)
	newOpponentDelta := -newChallengerDelta

	adjustments := flipAdjustments(debate, newWinnerID, newChallengerDelta, newOpponentDelta)
	resolution := AppealResolution{
		WinnerID:            newWinnerID,
		ChallengerEloChange: newChallengerDelta,
		OpponentEloChange:   newOpponentDelta,
		Flipped:             true,
	}
	ok, err = s.store.FinalizeAppeal(ctx, debateID, resolution, adjustments)
	if err != nil {
		return AppealNone, err
	}
	if ok {
		payload := map[string]string{"debateId": debateID.Hex(), "flipped": "true"}
		if newWinnerID != nil {
			payload["winnerId"] = newWinnerID.Hex()
		}
		s.notifyBoth(debate, notify.KindAppealResolved, payload)
	}
	return AppealFlipped, nil
}

// generateShortfall collects replacement verdicts from judges that served in
// neither the original panel nor a partial appeal run. Individual judge
// failures shrink the panel instead of failing the appeal.
func (s *AppealService) generateShortfall(ctx context.Context, debate *models.Debate, usedJudges map[primitive.ObjectID]bool, needed int) ([]models.Verdict, error) {
	judges, err := s.store.AllJudges(ctx)
	if err != nil {
		return nil, err
	}
	candidates := make([]models.Judge, 0, len(judges))
	for _, j := range judges {
		if !usedJudges[j.ID] {
			candidates = append(candidates, j)
		}
	}

	statements, err := s.store.Statements(ctx, debate.ID)
	if err != nil {
		return nil, err
	}
	transcript := formatTranscript(debate, statements)

	var generated []models.Verdict
	for _, judge := range selectPanel(candidates, needed) {
		opinion, err := s.verdicts.GenerateVerdict(ctx, judge.SystemPrompt, transcript)
		if err != nil {
			log.Printf("appeal: judge %s failed for debate %s: %v", judge.Name, debate.ID.Hex(), err)
			continue
		}
		decision, winnerID := decisionFromOpinion(debate, opinion)
		verdict := models.Verdict{
			DebateID:        debate.ID,
			JudgeID:         judge.ID,
			Decision:        decision,
			WinnerID:        winnerID,
			ChallengerScore: opinion.ChallengerScore,
			OpponentScore:   opinion.OpponentScore,
			Reasoning:       opinion.Reasoning,
			CreatedAt:       time.Now(),
		}
		if err := s.store.InsertVerdict(ctx, &verdict); err != nil {
			return nil, err
		}
		if err := s.store.IncrementDebatesJudged(ctx, judge.ID); err != nil {
			log.Printf("appeal: failed to bump counter for judge %s: %v", judge.ID.Hex(), err)
		}
		generated = append(generated, verdict)
	}
	return generated, nil
}

// flipAdjustments combines the reversal of the previously applied settlement
// with the fresh one, yielding a single atomic increment per user. The debate
// still counts once, so totals stay put.
func flipAdjustments(debate *models.Debate, newWinnerID *primitive.ObjectID, newChallengerDelta, newOpponentDelta int) []UserAdjustment {
	cAdj := UserAdjustment{
		UserID:      debate.ChallengerID,
		RatingDelta: -debate.ChallengerEloChange + newChallengerDelta,
	}
	oAdj := UserAdjustment{
		UserID:      debate.OpponentID,
		RatingDelta: -debate.OpponentEloChange + newOpponentDelta,
	}
	applyCounterDelta(&cAdj, &oAdj, debate.ChallengerID, debate.WinnerID, -1)
	applyCounterDelta(&cAdj, &oAdj, debate.ChallengerID, newWinnerID, +1)
	return []UserAdjustment{cAdj, oAdj}
}

func applyCounterDelta(cAdj, oAdj *UserAdjustment, challengerID primitive.ObjectID, winnerID *primitive.ObjectID, sign int) {
	switch {
	case winnerID == nil:
		cAdj.TiedDelta += sign
		oAdj.TiedDelta += sign
	case *winnerID == challengerID:
		cAdj.WonDelta += sign
		oAdj.LostDelta += sign
	default:
		cAdj.LostDelta += sign
		oAdj.WonDelta += sign
	}
}

func sameWinner(a, b *primitive.ObjectID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (s *AppealService) notifyBoth(debate *models.Debate, kind notify.Kind, payload map[string]string) {
	s.notifier.Notify(debate.ChallengerID, kind, payload)
	if !debate.OpponentID.IsZero() {
		s.notifier.Notify(debate.OpponentID, kind, payload)
	}
}
