package services

import (
	"context"
	"sync"
	"time"

	"debatehub/internal/notify"
	"debatehub/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memStore is an in-memory Store with the same conditional-write semantics as
// the MongoDB implementation, so service tests exercise the real race handling.
type memStore struct {
	mu         sync.Mutex
	debates    map[primitive.ObjectID]*models.Debate
	statements []models.Statement
	judges     []models.Judge
	verdicts   []models.Verdict
	users      map[primitive.ObjectID]*models.User
}

func newMemStore() *memStore {
	return &memStore{
		debates: make(map[primitive.ObjectID]*models.Debate),
		users:   make(map[primitive.ObjectID]*models.User),
	}
}

func (m *memStore) addDebate(d models.Debate) primitive.ObjectID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID.IsZero() {
		d.ID = primitive.NewObjectID()
	}
	m.debates[d.ID] = &d
	return d.ID
}

func (m *memStore) addUser(u models.User) primitive.ObjectID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	m.users[u.ID] = &u
	return u.ID
}

func (m *memStore) addJudge(name, prompt string) models.Judge {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := models.Judge{ID: primitive.NewObjectID(), Name: name, SystemPrompt: prompt}
	m.judges = append(m.judges, j)
	return j
}

func (m *memStore) CreateDebate(_ context.Context, debate *models.Debate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if debate.ID.IsZero() {
		debate.ID = primitive.NewObjectID()
	}
	copied := *debate
	m.debates[debate.ID] = &copied
	return nil
}

func (m *memStore) GetDebate(_ context.Context, id primitive.ObjectID) (*models.Debate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.debates[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *d
	return &copied, nil
}

func (m *memStore) ExpiredActiveDebates(_ context.Context, now time.Time) ([]models.Debate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Debate
	for _, d := range m.debates {
		if d.Status == models.DebateStatusActive && d.RoundDeadline != nil && !d.RoundDeadline.After(now) {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memStore) StaleWaitingDebates(_ context.Context, cutoff time.Time) ([]models.Debate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Debate
	for _, d := range m.debates {
		if d.Status != models.DebateStatusWaiting {
			continue
		}
		if !d.CreatedAt.After(cutoff) || !d.OpponentID.IsZero() {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memStore) ActiveDebatesForUser(_ context.Context, userID primitive.ObjectID) ([]models.Debate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Debate
	for _, d := range m.debates {
		if d.Status == models.DebateStatusActive && (d.ChallengerID == userID || d.OpponentID == userID) {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memStore) AppealedDebates(_ context.Context) ([]models.Debate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Debate
	for _, d := range m.debates {
		if d.Status == models.DebateStatusAppealed &&
			(d.AppealStatus == models.AppealStatusPending || d.AppealStatus == models.AppealStatusProcessing) {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memStore) ActivateDebate(_ context.Context, id, opponentID primitive.ObjectID, deadline time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.debates[id]
	if !ok || d.Status != models.DebateStatusWaiting {
		return false, nil
	}
	d.Status = models.DebateStatusActive
	d.OpponentID = opponentID
	d.CurrentRound = 1
	dl := deadline
	d.RoundDeadline = &dl
	return true, nil
}

func (m *memStore) AdvanceRound(_ context.Context, id primitive.ObjectID, fromRound int, deadline time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.debates[id]
	if !ok || d.Status != models.DebateStatusActive || d.CurrentRound != fromRound {
		return false, nil
	}
	d.CurrentRound++
	dl := deadline
	d.RoundDeadline = &dl
	return true, nil
}

func (m *memStore) CompleteDebate(_ context.Context, id primitive.ObjectID, fromRound int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.debates[id]
	if !ok || d.Status != models.DebateStatusActive || d.CurrentRound != fromRound {
		return false, nil
	}
	d.Status = models.DebateStatusCompleted
	d.RoundDeadline = nil
	return true, nil
}

func (m *memStore) CancelDebate(_ context.Context, id primitive.ObjectID, from models.DebateStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.debates[id]
	if !ok || d.Status != from {
		return false, nil
	}
	d.Status = models.DebateStatusCancelled
	d.RoundDeadline = nil
	return true, nil
}

func (m *memStore) MarkAppealed(_ context.Context, id primitive.ObjectID, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.debates[id]
	if !ok {
		return false, ErrNotFound
	}
	if d.Status != models.DebateStatusVerdictReady {
		return false, nil
	}
	if d.AppealCount == 0 && d.WinnerID != nil {
		w := *d.WinnerID
		d.OriginalWinnerID = &w
	}
	d.Status = models.DebateStatusAppealed
	d.AppealStatus = models.AppealStatusPending
	at := now
	d.AppealedAt = &at
	d.AppealCount++
	return true, nil
}

func (m *memStore) MarkAppealProcessing(_ context.Context, id primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.debates[id]
	if !ok || d.Status != models.DebateStatusAppealed {
		return false, nil
	}
	if d.AppealStatus != models.AppealStatusPending && d.AppealStatus != models.AppealStatusProcessing {
		return false, nil
	}
	d.AppealStatus = models.AppealStatusProcessing
	return true, nil
}

func (m *memStore) ApplyVerdict(_ context.Context, id primitive.ObjectID, winnerID *primitive.ObjectID,
	challengerDelta, opponentDelta int, adjustments []UserAdjustment) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.debates[id]
	if !ok || d.Status != models.DebateStatusCompleted {
		return false, nil
	}
	d.Status = models.DebateStatusVerdictReady
	d.WinnerID = winnerID
	d.ChallengerEloChange = challengerDelta
	d.OpponentEloChange = opponentDelta
	m.applyAdjustments(adjustments)
	return true, nil
}

func (m *memStore) FinalizeAppeal(_ context.Context, id primitive.ObjectID,
	resolution AppealResolution, adjustments []UserAdjustment) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.debates[id]
	if !ok || d.Status != models.DebateStatusAppealed || d.AppealStatus != models.AppealStatusProcessing {
		return false, nil
	}
	d.Status = models.DebateStatusVerdictReady
	d.AppealStatus = models.AppealStatusResolved
	if resolution.Flipped {
		d.WinnerID = resolution.WinnerID
		d.ChallengerEloChange = resolution.ChallengerEloChange
		d.OpponentEloChange = resolution.OpponentEloChange
	}
	if resolution.RejectionReason != "" {
		d.AppealRejectionReason = resolution.RejectionReason
	}
	m.applyAdjustments(adjustments)
	return true, nil
}

func (m *memStore) DenyAppeal(_ context.Context, id primitive.ObjectID, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.debates[id]
	if !ok || d.Status != models.DebateStatusAppealed || d.AppealStatus != models.AppealStatusProcessing {
		return false, nil
	}
	d.Status = models.DebateStatusVerdictReady
	d.AppealStatus = models.AppealStatusDenied
	d.AppealRejectionReason = reason
	return true, nil
}

func (m *memStore) applyAdjustments(adjustments []UserAdjustment) {
	for _, adj := range adjustments {
		u, ok := m.users[adj.UserID]
		if !ok {
			continue
		}
		u.EloRating += adj.RatingDelta
		u.DebatesWon += adj.WonDelta
		u.DebatesLost += adj.LostDelta
		u.DebatesTied += adj.TiedDelta
		u.TotalDebates += adj.TotalDelta
	}
}

func (m *memStore) InsertStatement(_ context.Context, statement *models.Statement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if statement.ID.IsZero() {
		statement.ID = primitive.NewObjectID()
	}
	m.statements = append(m.statements, *statement)
	return nil
}

func (m *memStore) StatementsForRound(_ context.Context, debateID primitive.ObjectID, round int) ([]models.Statement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Statement
	for _, st := range m.statements {
		if st.DebateID == debateID && st.Round == round {
			out = append(out, st)
		}
	}
	return out, nil
}

func (m *memStore) Statements(_ context.Context, debateID primitive.ObjectID) ([]models.Statement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Statement
	for _, st := range m.statements {
		if st.DebateID == debateID {
			out = append(out, st)
		}
	}
	return out, nil
}

func (m *memStore) AllJudges(_ context.Context) ([]models.Judge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Judge, len(m.judges))
	copy(out, m.judges)
	return out, nil
}

func (m *memStore) IncrementDebatesJudged(_ context.Context, judgeID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.judges {
		if m.judges[i].ID == judgeID {
			m.judges[i].DebatesJudged++
		}
	}
	return nil
}

func (m *memStore) InsertVerdict(_ context.Context, verdict *models.Verdict) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if verdict.ID.IsZero() {
		verdict.ID = primitive.NewObjectID()
	}
	m.verdicts = append(m.verdicts, *verdict)
	return nil
}

func (m *memStore) VerdictsForDebate(_ context.Context, debateID primitive.ObjectID) ([]models.Verdict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Verdict
	for _, v := range m.verdicts {
		if v.DebateID == debateID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *memStore) GetUser(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *memStore) AIUsers(_ context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.User
	for _, u := range m.users {
		if u.IsAI {
			out = append(out, *u)
		}
	}
	return out, nil
}

// fakeNotifier records every notification for assertions
type fakeNotifier struct {
	mu     sync.Mutex
	events []fakeNotification
}

type fakeNotification struct {
	UserID  primitive.ObjectID
	Kind    notify.Kind
	Payload map[string]string
}

func (n *fakeNotifier) Notify(userID primitive.ObjectID, kind notify.Kind, payload map[string]string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, fakeNotification{UserID: userID, Kind: kind, Payload: payload})
}

func (n *fakeNotifier) countKind(kind notify.Kind) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, ev := range n.events {
		if ev.Kind == kind {
			count++
		}
	}
	return count
}

func (n *fakeNotifier) received(userID primitive.ObjectID, kind notify.Kind) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ev := range n.events {
		if ev.UserID == userID && ev.Kind == kind {
			return true
		}
	}
	return false
}

// scriptedVerdicts maps a judge's system prompt to a fixed opinion or error.
// Unscripted judges fall back to the default opinion.
type scriptedVerdicts struct {
	byPolicy       map[string]JudgeOpinion
	failing        map[string]bool
	defaultOpinion JudgeOpinion
}

func newScriptedVerdicts(defaultWinner string) *scriptedVerdicts {
	return &scriptedVerdicts{
		byPolicy: make(map[string]JudgeOpinion),
		failing:  make(map[string]bool),
		defaultOpinion: JudgeOpinion{
			Winner: defaultWinner, ChallengerScore: 60, OpponentScore: 40, Reasoning: "scripted",
		},
	}
}

func (s *scriptedVerdicts) GenerateVerdict(_ context.Context, judgePolicy, _ string) (*JudgeOpinion, error) {
	if s.failing[judgePolicy] {
		return nil, context.DeadlineExceeded
	}
	if op, ok := s.byPolicy[judgePolicy]; ok {
		return &op, nil
	}
	op := s.defaultOpinion
	return &op, nil
}

// scriptedStatements returns a fixed text, or an error when text is empty
type scriptedStatements struct {
	text string
}

func (s *scriptedStatements) GenerateStatement(_ context.Context, _ DebateContext) (string, error) {
	if s.text == "" {
		return "", context.DeadlineExceeded
	}
	return s.text, nil
}
