package scoring

const (
	// LevelBase is the experience needed to go from level 1 to level 2.
	LevelBase = 100
)

// LevelProgress describes where a total experience value sits on the level curve.
type LevelProgress struct {
	Level          int     `json:"level"`
	CurrentLevelXP int     `json:"currentLevelXp"`
	XPForNextLevel int     `json:"xpForNextLevel"`
	Progress       float64 `json:"progress"`
}

// nextThreshold is floor(needed * 1.5).
func nextThreshold(needed int) int {
	return needed * 3 / 2
}

// Level walks the geometric threshold curve. The requirement for the next level is the
// one the walk stopped on, so Progress is always in [0, 100).
// Negative input is treated as zero.
func Level(totalXP int) LevelProgress {
	if totalXP < 0 {
		totalXP = 0
	}
	level := 1
	needed := LevelBase
	remaining := totalXP
	for remaining >= needed {
		remaining -= needed
		level++
		needed = nextThreshold(needed)
	}
	return LevelProgress{
		Level:          level,
		CurrentLevelXP: remaining,
		XPForNextLevel: needed,
		Progress:       float64(remaining) / float64(needed) * 100,
	}
}

// Threshold returns the experience needed to advance from level to level+1.
func Threshold(level int) int {
	needed := LevelBase
	for i := 1; i < level; i++ {
		needed = nextThreshold(needed)
	}
	return needed
}

// XPForLevel returns the total experience at which level is first reached.
func XPForLevel(level int) int {
	total := 0
	needed := LevelBase
	for i := 1; i < level; i++ {
		total += needed
		needed = nextThreshold(needed)
	}
	return total
}
