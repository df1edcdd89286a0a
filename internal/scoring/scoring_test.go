package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name      string
		correct   bool
		elapsedMs int64
		want      int
	}{
		{name: "instant correct", correct: true, elapsedMs: 0, want: 150},
		{name: "negative elapsed", correct: true, elapsedMs: -5000, want: 150},
		{name: "two seconds", correct: true, elapsedMs: 2000, want: 140},
		{name: "floors partial bonus", correct: true, elapsedMs: 2500, want: 137},
		{name: "one millisecond", correct: true, elapsedMs: 1, want: 149},
		{name: "at limit", correct: true, elapsedMs: 10000, want: 100},
		{name: "past limit", correct: true, elapsedMs: 60000, want: 100},
		{name: "wrong fast", correct: false, elapsedMs: 0, want: 0},
		{name: "wrong negative", correct: false, elapsedMs: -1, want: 0},
		{name: "wrong slow", correct: false, elapsedMs: 99999, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.correct, tt.elapsedMs))
		})
	}
}

func TestScoreBonusIsMonotonic(t *testing.T) {
	prev := Score(true, 0)
	for elapsed := int64(0); elapsed <= 12000; elapsed += 137 {
		got := Score(true, elapsed)
		if got > prev {
			t.Fatalf("score increased at %dms: %d > %d", elapsed, got, prev)
		}
		if got < CorrectBase || got > CorrectBase+TimeBonusMax {
			t.Fatalf("score out of range at %dms: %d", elapsed, got)
		}
		prev = got
	}
}

func TestXPForSession(t *testing.T) {
	assert.Equal(t, 0, XPForSession(0))
	assert.Equal(t, 150, XPForSession(100))
	assert.Equal(t, 211, XPForSession(141))
	assert.Equal(t, 1575, XPForSession(1050))
}

func TestMaxSessionScore(t *testing.T) {
	assert.Equal(t, 1050, MaxSessionScore(7))
	assert.Equal(t, 0, MaxSessionScore(0))
}

func TestLevel(t *testing.T) {
	assert.Equal(t, LevelProgress{Level: 1, CurrentLevelXP: 0, XPForNextLevel: 100, Progress: 0}, Level(0))

	got := Level(100)
	assert.Equal(t, 2, got.Level)
	assert.Equal(t, 0, got.CurrentLevelXP)
	assert.Equal(t, 150, got.XPForNextLevel)

	got = Level(175)
	assert.Equal(t, 2, got.Level)
	assert.Equal(t, 75, got.CurrentLevelXP)
	assert.InDelta(t, 50.0, got.Progress, 1e-9)

	got = Level(99)
	assert.Equal(t, 1, got.Level)
	assert.Equal(t, 99, got.CurrentLevelXP)

	assert.Equal(t, Level(0), Level(-10))
}

func TestLevelReachedExactly(t *testing.T) {
	for n := 1; n <= 30; n++ {
		got := Level(XPForLevel(n))
		if got.Level != n || got.CurrentLevelXP != 0 {
			t.Fatalf("level(%d) = %+v, want level %d with 0 xp", XPForLevel(n), got, n)
		}
		if got.XPForNextLevel != Threshold(n) {
			t.Fatalf("level %d next threshold %d, want %d", n, got.XPForNextLevel, Threshold(n))
		}
		// one short of the next level stays on this level
		below := Level(XPForLevel(n+1) - 1)
		if below.Level != n {
			t.Fatalf("level just below %d = %d", n+1, below.Level)
		}
		if below.Progress >= 100 {
			t.Fatalf("progress must stay below 100, got %v", below.Progress)
		}
	}
}

func TestThresholds(t *testing.T) {
	assert.Equal(t, 100, Threshold(1))
	assert.Equal(t, 150, Threshold(2))
	assert.Equal(t, 225, Threshold(3))
	assert.Equal(t, 337, Threshold(4))
	assert.Equal(t, 0, XPForLevel(1))
	assert.Equal(t, 250, XPForLevel(3))
}
