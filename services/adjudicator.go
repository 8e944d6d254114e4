package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"debatehub/internal/notify"
	"debatehub/models"
	"debatehub/rating"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNoJudges indicates an empty judge pool, a configuration defect that must
// be surfaced rather than silently retried
var ErrNoJudges = errors.New("no judges available for adjudication")

// AdjudicatorService turns a completed debate into a settled verdict: a panel
// of independent judge opinions, a plurality outcome, and a zero-sum rating
// exchange applied atomically with the status flip.
type AdjudicatorService struct {
	store     Store
	verdicts  VerdictGenerator
	notifier  Notifier
	panelSize int
}

// NewAdjudicatorService wires the adjudicator to its collaborators
func NewAdjudicatorService(store Store, verdicts VerdictGenerator, notifier Notifier, panelSize int) *AdjudicatorService {
	return &AdjudicatorService{store: store, verdicts: verdicts, notifier: notifier, panelSize: panelSize}
}

// Adjudicate generates and settles the verdict for a COMPLETED debate. A
// debate that is no longer COMPLETED was already settled elsewhere and is a
// no-op.
func (s *AdjudicatorService) Adjudicate(ctx context.Context, debateID primitive.ObjectID) error {
	debate, err := s.store.GetDebate(ctx, debateID)
	if err != nil {
		return err
	}
	if debate.Status != models.DebateStatusCompleted {
		return nil
	}

	judges, err := s.store.AllJudges(ctx)
	if err != nil {
		return err
	}
	if len(judges) == 0 {
		return fmt.Errorf("debate %s: %w", debateID.Hex(), ErrNoJudges)
	}

	statements, err := s.store.Statements(ctx, debateID)
	if err != nil {
		return err
	}
	transcript := formatTranscript(debate, statements)

	panel := selectPanel(judges, s.panelSize)
	decisions := make([]models.VerdictDecision, 0, len(panel))
	for _, judge := range panel {
		verdict := s.collectVerdict(ctx, debate, judge, transcript)
		if err := s.store.InsertVerdict(ctx, verdict); err != nil {
			return err
		}
		if err := s.store.IncrementDebatesJudged(ctx, judge.ID); err != nil {
			log.Printf("adjudicator: failed to bump counter for judge %s: %v", judge.ID.Hex(), err)
		}
		decisions = append(decisions, verdict.Decision)
	}

	outcome := AggregateDecisions(decisions)
	winnerID, resultForChallenger := outcomeForChallenger(debate, outcome)

	challenger, err := s.store.GetUser(ctx, debate.ChallengerID)
	if err != nil {
		return err
	}
	opponent, err := s.store.GetUser(ctx, debate.OpponentID)
	if err != nil {
		return err
	}

	challengerDelta := rating.Delta(challenger.EloRating, opponent.EloRating, resultForChallenger)
	opponentDelta := -challengerDelta

	adjustments := settlementAdjustments(debate, winnerID, challengerDelta, opponentDelta)
	ok, err := s.store.ApplyVerdict(ctx, debateID, winnerID, challengerDelta, opponentDelta, adjustments)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	payload := map[string]string{"debateId": debateID.Hex()}
	if winnerID != nil {
		payload["winnerId"] = winnerID.Hex()
	}
	s.notifier.Notify(debate.ChallengerID, notify.KindVerdictReady, payload)
	s.notifier.Notify(debate.OpponentID, notify.KindVerdictReady, payload)
	return nil
}

// collectVerdict invokes one judge. A failed invocation degrades to a 50/50
// TIE vote so the ensemble keeps its full vote count.
func (s *AdjudicatorService) collectVerdict(ctx context.Context, debate *models.Debate, judge models.Judge, transcript string) *models.Verdict {
	opinion, err := s.verdicts.GenerateVerdict(ctx, judge.SystemPrompt, transcript)
	if err != nil {
		log.Printf("adjudicator: judge %s failed for debate %s: %v", judge.Name, debate.ID.Hex(), err)
		return &models.Verdict{
			DebateID:        debate.ID,
			JudgeID:         judge.ID,
			Decision:        models.DecisionTie,
			ChallengerScore: 50,
			OpponentScore:   50,
			Reasoning:       fmt.Sprintf("Verdict unavailable: judge invocation failed (%v). Recorded as a tie.", err),
			CreatedAt:       time.Now(),
		}
	}

	decision, winnerID := decisionFromOpinion(debate, opinion)
	return &models.Verdict{
		DebateID:        debate.ID,
		JudgeID:         judge.ID,
		Decision:        decision,
		WinnerID:        winnerID,
		ChallengerScore: opinion.ChallengerScore,
		OpponentScore:   opinion.OpponentScore,
		Reasoning:       opinion.Reasoning,
		CreatedAt:       time.Now(),
	}
}

// AggregateDecisions turns independent verdicts into one outcome by
// plurality. Any tie among the leading categories yields TIE and no winner.
func AggregateDecisions(decisions []models.VerdictDecision) models.VerdictDecision {
	counts := make(map[models.VerdictDecision]int, 3)
	for _, d := range decisions {
		counts[d]++
	}

	best := models.DecisionTie
	bestCount := 0
	contested := false
	for _, d := range []models.VerdictDecision{
		models.DecisionChallengerWins, models.DecisionOpponentWins, models.DecisionTie,
	} {
		c := counts[d]
		if c > bestCount {
			best, bestCount, contested = d, c, false
		} else if c == bestCount && c > 0 && d != best {
			contested = true
		}
	}
	if contested {
		return models.DecisionTie
	}
	return best
}

// selectPanel picks up to size judges at random without replacement
func selectPanel(judges []models.Judge, size int) []models.Judge {
	shuffled := make([]models.Judge, len(judges))
	copy(shuffled, judges)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if len(shuffled) > size {
		shuffled = shuffled[:size]
	}
	return shuffled
}

func decisionFromOpinion(debate *models.Debate, opinion *JudgeOpinion) (models.VerdictDecision, *primitive.ObjectID) {
	switch opinion.Winner {
	case "CHALLENGER":
		id := debate.ChallengerID
		return models.DecisionChallengerWins, &id
	case "OPPONENT":
		id := debate.OpponentID
		return models.DecisionOpponentWins, &id
	default:
		return models.DecisionTie, nil
	}
}

// outcomeForChallenger maps the aggregated decision to the final winner and
// the challenger's {1, 0.5, 0} match result
func outcomeForChallenger(debate *models.Debate, decision models.VerdictDecision) (*primitive.ObjectID, float64) {
	switch decision {
	case models.DecisionChallengerWins:
		id := debate.ChallengerID
		return &id, rating.Win
	case models.DecisionOpponentWins:
		id := debate.OpponentID
		return &id, rating.Loss
	default:
		return nil, rating.Draw
	}
}

// settlementAdjustments builds both users' rating and record updates for a
// fresh verdict
func settlementAdjustments(debate *models.Debate, winnerID *primitive.ObjectID, challengerDelta, opponentDelta int) []UserAdjustment {
	cAdj := UserAdjustment{UserID: debate.ChallengerID, RatingDelta: challengerDelta, TotalDelta: 1}
	oAdj := UserAdjustment{UserID: debate.OpponentID, RatingDelta: opponentDelta, TotalDelta: 1}
	switch {
	case winnerID == nil:
		cAdj.TiedDelta, oAdj.TiedDelta = 1, 1
	case *winnerID == debate.ChallengerID:
		cAdj.WonDelta, oAdj.LostDelta = 1, 1
	default:
		cAdj.LostDelta, oAdj.WonDelta = 1, 1
	}
	return []UserAdjustment{cAdj, oAdj}
}

// formatTranscript renders the statement history for judge and generator
// prompts, one line per statement
func formatTranscript(debate *models.Debate, statements []models.Statement) string {
	var sb strings.Builder
	for _, st := range statements {
		role := "Challenger"
		if st.AuthorID == debate.OpponentID {
			role = "Opponent"
		}
		content := st.Content
		if st.Forfeit {
			content = "[forfeited this round]"
		}
		sb.WriteString(fmt.Sprintf("%s (round %d): %s\n", role, st.Round, content))
	}
	return sb.String()
}
