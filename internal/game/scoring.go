package game

import "math"

// CalculateScore returns the points for a correct answer given how much time
// was left on the question clock, the question's total time, and the player's
// streak after this answer. Fast answers earn a flat bonus, long streaks a
// multiplier. Incorrect answers never reach this function.
func CalculateScore(timeLeft, totalTime, streak int) int {
	base := 1000
	elapsed := totalTime - timeLeft

	switch {
	case elapsed <= 3:
		base += 500
	case elapsed <= 7:
		base += 300
	case elapsed <= 12:
		base += 100
	}

	multiplier := 1.0
	switch {
	case streak >= 5:
		multiplier = 2.0
	case streak >= 4:
		multiplier = 1.8
	case streak >= 3:
		multiplier = 1.5
	case streak >= 2:
		multiplier = 1.2
	}

	return int(math.Round(float64(base) * multiplier))
}
