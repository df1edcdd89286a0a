// Package scoring holds the point, experience, and level formulas.
package scoring

const (
	// CorrectBase is awarded for every correct answer.
	CorrectBase = 100
	// TimeBonusMax is the extra awarded for an instant correct answer.
	TimeBonusMax = 50
	// TimeLimitMs is the elapsed time at which the bonus reaches zero.
	TimeLimitMs = 10000
	// XPMultiplier converts a session score to experience.
	XPMultiplier = 1.5
)

// Score returns the points for one answer. Incorrect answers earn nothing; correct answers
// earn CorrectBase plus a bonus that decays linearly over TimeLimitMs.
func Score(correct bool, elapsedMs int64) int {
	if !correct {
		return 0
	}
	return CorrectBase + timeBonus(elapsedMs)
}

// timeBonus is floor(TimeBonusMax * (1 - elapsed/limit)) bounded to [0, TimeBonusMax].
// Integer arithmetic keeps the floor exact.
func timeBonus(elapsedMs int64) int {
	if elapsedMs <= 0 {
		return TimeBonusMax
	}
	if elapsedMs >= TimeLimitMs {
		return 0
	}
	return int(TimeBonusMax * (TimeLimitMs - elapsedMs) / TimeLimitMs)
}

// XPForSession converts a session score to experience: floor(score * 1.5).
func XPForSession(score int) int {
	if score <= 0 {
		return 0
	}
	return score * 3 / 2
}

// MaxSessionScore is the best possible score for a session of n questions.
func MaxSessionScore(n int) int {
	if n <= 0 {
		return 0
	}
	return n * (CorrectBase + TimeBonusMax)
}
