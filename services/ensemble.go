package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// JudgeOpinion is one judge's structured opinion on a debate transcript
type JudgeOpinion struct {
	Winner          string `json:"winner"` // "CHALLENGER", "OPPONENT" or "TIE"
	ChallengerScore int    `json:"challengerScore"`
	OpponentScore   int    `json:"opponentScore"`
	Reasoning       string `json:"reasoning"`
}

// VerdictGenerator asks an external reasoning service for a verdict on a
// full debate transcript under a given judging policy
type VerdictGenerator interface {
	GenerateVerdict(ctx context.Context, judgePolicy, transcript string) (*JudgeOpinion, error)
}

// DebateContext carries everything the text generator needs to argue a turn
type DebateContext struct {
	Topic       string
	Round       int
	TotalRounds int
	Role        string // "challenger" or "opponent"
	Transcript  string
}

// StatementGenerator produces an argument for an AI participant's turn
type StatementGenerator interface {
	GenerateStatement(ctx context.Context, debate DebateContext) (string, error)
}

// GeminiEnsemble implements both generator interfaces on the Gemini API
type GeminiEnsemble struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiEnsemble initializes the Gemini client
func NewGeminiEnsemble(ctx context.Context, apiKey string, timeout time.Duration) (*GeminiEnsemble, error) {
	config := &genai.ClientConfig{}
	if apiKey != "" {
		config.APIKey = apiKey
	}
	client, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	return &GeminiEnsemble{client: client, model: defaultGeminiModel, timeout: timeout}, nil
}

// GenerateVerdict invokes the model under a per-call timeout and parses its
// strict-JSON opinion. A timeout or parse failure is this judge's failure
// only; the caller degrades it without failing the whole adjudication.
func (g *GeminiEnsemble) GenerateVerdict(ctx context.Context, judgePolicy, transcript string) (*JudgeOpinion, error) {
	prompt := fmt.Sprintf(
		`%s

Below is the full transcript of a structured debate between a Challenger and an Opponent.
A forfeited turn means that side missed its deadline; weigh that against them.

Score each side from 0 to 100 and decide the winner.

Required output format, STRICT JSON only, no additional text:
{
  "winner": "CHALLENGER" | "OPPONENT" | "TIE",
  "challengerScore": 0-100,
  "opponentScore": 0-100,
  "reasoning": "text"
}

Debate Transcript:
%s`, judgePolicy, transcript)

	text, err := g.generateText(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var opinion JudgeOpinion
	if err := json.Unmarshal([]byte(text), &opinion); err != nil {
		return nil, fmt.Errorf("failed to parse judge response: %w", err)
	}

	opinion.Winner = strings.ToUpper(strings.TrimSpace(opinion.Winner))
	switch opinion.Winner {
	case "CHALLENGER", "OPPONENT", "TIE":
	default:
		return nil, fmt.Errorf("unexpected winner value %q", opinion.Winner)
	}
	opinion.ChallengerScore = clampScore(opinion.ChallengerScore)
	opinion.OpponentScore = clampScore(opinion.OpponentScore)
	return &opinion, nil
}

// GenerateStatement produces the next argument for an AI participant
func (g *GeminiEnsemble) GenerateStatement(ctx context.Context, debate DebateContext) (string, error) {
	stance := "for"
	side := "Challenger"
	if debate.Role == "opponent" {
		stance = "against"
		side = "Opponent"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `You are the %s in a structured debate, arguing %s the topic "%s".
This is round %d of %d. Provide only your own argument for this round, without
simulating the other side. Keep it under 250 words.`,
		side, stance, debate.Topic, debate.Round, debate.TotalRounds)
	if debate.Transcript != "" {
		fmt.Fprintf(&sb, "\n\nTranscript so far:\n%s", debate.Transcript)
	}

	text, err := g.generateText(ctx, sb.String())
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}

func (g *GeminiEnsemble) generateText(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	return cleanModelOutput(resp.Text()), nil
}

// cleanModelOutput strips markdown fences models like to wrap JSON in
func cleanModelOutput(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```JSON")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
