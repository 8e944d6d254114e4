package utils

import (
	"context"
	"fmt"
	"time"

	"debatehub/db"
	"debatehub/models"
)

// Judge personas seeded on first boot. Each system prompt shapes how that
// judge weighs the transcript, so the panel disagrees in useful ways.
var defaultJudges = []models.Judge{
	{
		Name:         "Justice Sterling",
		SystemPrompt: "You are a strict formal-logic judge. Reward valid argument structure, penalize fallacies and unsupported claims. Rhetorical flourish earns nothing without substance.",
	},
	{
		Name:         "Professor Okafor",
		SystemPrompt: "You are an evidence-focused academic judge. Weigh cited facts, concrete examples, and how directly each side engages the opposing case.",
	},
	{
		Name:         "Coach Ramirez",
		SystemPrompt: "You are a persuasion-oriented judge from competitive debate. Score clarity, framing, and how convincingly each side tells its story to a lay audience.",
	},
	{
		Name:         "Dr. Lindqvist",
		SystemPrompt: "You are a devil's advocate judge. Probe each argument for the strongest counter it failed to address and reward the side that pre-empted objections.",
	},
	{
		Name:         "Arbiter Chen",
		SystemPrompt: "You are a balance-minded judge. Compare the two cases head to head on relevance, consistency across rounds, and responsiveness to the motion as stated.",
	},
}

// SeedJudges populates the judge pool if the collection is empty
func SeedJudges(ctx context.Context, store *db.MongoStore) error {
	count, err := store.CountJudges(ctx)
	if err != nil {
		return fmt.Errorf("counting judges: %w", err)
	}
	if count > 0 {
		return nil
	}
	for i := range defaultJudges {
		judge := defaultJudges[i]
		if err := store.InsertJudge(ctx, &judge); err != nil {
			return fmt.Errorf("seeding judge %q: %w", judge.Name, err)
		}
	}
	return nil
}

// SeedAIUsers creates the house AI debaters if no users exist yet
func SeedAIUsers(ctx context.Context, store *db.MongoStore) error {
	count, err := store.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("counting users: %w", err)
	}
	if count > 0 {
		return nil
	}
	aiUsers := []models.User{
		{
			Email:       "sparring.partner@debatehub.internal",
			DisplayName: "Sparring Partner",
			EloRating:   1200,
			IsAI:        true,
			CreatedAt:   time.Now(),
		},
		{
			Email:       "house.contrarian@debatehub.internal",
			DisplayName: "House Contrarian",
			EloRating:   1400,
			IsAI:        true,
			CreatedAt:   time.Now(),
		},
	}
	for i := range aiUsers {
		if err := store.InsertUser(ctx, &aiUsers[i]); err != nil {
			return fmt.Errorf("seeding AI user %q: %w", aiUsers[i].DisplayName, err)
		}
	}
	return nil
}
