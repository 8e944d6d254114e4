package rating

import "math"

// KFactor is the fixed ELO K used for all debates
const KFactor = 32

// Result values for the challenger side of a debate
const (
	Win  = 1.0
	Draw = 0.5
	Loss = 0.0
)

// ExpectedScore returns the logistic win expectancy for player A against B
func ExpectedScore(ratingA, ratingB int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(ratingB-ratingA)/400.0))
}

// Delta computes the rating change for player A given the match result.
// resultForA must be Win, Draw or Loss. The opponent's delta is the exact
// negation, keeping every exchange zero-sum.
func Delta(ratingA, ratingB int, resultForA float64) int {
	expected := ExpectedScore(ratingA, ratingB)
	return int(math.Round(KFactor * (resultForA - expected)))
}
