package trending

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func TestCompute_Scenarios(t *testing.T) {
	tests := []struct {
		name                   string
		likes, comments, forks int64
		age                    time.Duration
		want                   float64
	}{
		{"two hours old", 5, 3, 1, 2 * time.Hour, 4.95},
		{"three minutes old hits the floor", 10, 0, 0, 3 * time.Minute, 316.23},
		{"no engagement", 0, 0, 0, time.Hour, 0},
		{"one hour old", 4, 1, 0, time.Hour, 6},
		{"exact half rounds down to even", 1, 0, 0, 4 * time.Hour, 0.12},
		{"exact half with five likes", 5, 0, 0, 4 * time.Hour, 0.62},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.likes, tt.comments, tt.forks, now.Add(-tt.age), now)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompute_Deterministic(t *testing.T) {
	createdAt := now.Add(-37 * time.Minute)
	first := Compute(12, 7, 2, createdAt, now)
	for range 100 {
		assert.Equal(t, first, Compute(12, 7, 2, createdAt, now))
	}
}

func TestCompute_FloorBelowSixMinutes(t *testing.T) {
	floor := Compute(10, 0, 0, now.Add(-6*time.Minute), now)
	for _, age := range []time.Duration{0, time.Second, time.Minute, 3 * time.Minute, 5*time.Minute + 59*time.Second} {
		assert.Equal(t, floor, Compute(10, 0, 0, now.Add(-age), now), "age %s", age)
	}
	assert.Equal(t, MinAgeHours, AgeHours(now.Add(-time.Minute), now))
}

func TestCompute_FutureCreatedAtClampsToFloor(t *testing.T) {
	skewed := Compute(10, 0, 0, now.Add(time.Hour), now)
	assert.Equal(t, 316.23, skewed)
}

func TestCompute_NegativeCountsTreatedAsZero(t *testing.T) {
	createdAt := now.Add(-time.Hour)
	assert.Equal(t, Compute(0, 0, 0, createdAt, now), Compute(-5, -1, -2, createdAt, now))
	assert.Equal(t, Compute(3, 0, 0, createdAt, now), Compute(3, -4, 0, createdAt, now))
	assert.Equal(t, int64(0), Engagement(-1, -1, -1))
}

func TestCompute_MonotonicDecay(t *testing.T) {
	createdAt := now.Add(-7 * time.Minute)
	prev := Compute(1_000_000, 0, 0, createdAt, now)
	for step := 1; step <= 96; step++ {
		at := now.Add(time.Duration(step) * 30 * time.Minute)
		score := Compute(1_000_000, 0, 0, createdAt, at)
		assert.Less(t, score, prev, "score must fall as the post ages (step %d)", step)
		prev = score
	}
}

func TestCompute_WeightOrdering(t *testing.T) {
	createdAt := now.Add(-time.Hour)
	like := Compute(1, 0, 0, createdAt, now)
	comment := Compute(0, 1, 0, createdAt, now)
	fork := Compute(0, 0, 1, createdAt, now)

	assert.Equal(t, 1.0, like)
	assert.Equal(t, 2.0, comment)
	assert.Equal(t, 3.0, fork)
	assert.Greater(t, fork, comment)
	assert.Greater(t, comment, like)
}

func TestComputeStats_UsesSnapshot(t *testing.T) {
	stats := PostStats{ID: 1, Likes: 5, Comments: 3, Forks: 1, CreatedAt: now.Add(-2 * time.Hour), TrendingScore: 99}
	assert.Equal(t, 4.95, ComputeStats(stats, now))
}

func TestRound2(t *testing.T) {
	tests := map[float64]float64{
		0.125:    0.12,
		0.625:    0.62,
		0.375:    0.38,
		4.949747: 4.95,
		316.2277: 316.23,
		2.675:    2.67,
		0:        0,
	}
	for in, want := range tests {
		assert.Equal(t, want, round2(in), "round2(%v)", in)
	}
}
