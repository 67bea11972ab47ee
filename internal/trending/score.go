// Package trending ranks forum posts by engagement velocity and keeps the
// stored trending_score of every post fresh.
package trending

import (
	"math"
	"strconv"
	"time"
)

// Engagement weights relative to a single like.
const (
	LikeWeight    = 1
	CommentWeight = 2
	ForkWeight    = 3
)

// MinAgeHours is the age floor used by Compute (6 minutes).
const MinAgeHours = 0.1

const decayExponent = 1.5

// Engagement returns the weighted sum of likes, comments and forks.
// Negative counts are treated as zero.
func Engagement(likes, comments, forks int64) int64 {
	return LikeWeight*max(likes, 0) + CommentWeight*max(comments, 0) + ForkWeight*max(forks, 0)
}

// AgeHours returns the age of a post in hours, never less than MinAgeHours.
// A createdAt in the future counts as zero age.
func AgeHours(createdAt, now time.Time) float64 {
	age := now.Sub(createdAt).Hours()
	return math.Max(age, MinAgeHours)
}

// Compute returns the trending score of a post:
//
//	(likes + 2*comments + 3*forks) / ageHours^1.5
//
// rounded to two decimal places.
func Compute(likes, comments, forks int64, createdAt, now time.Time) float64 {
	engagement := float64(Engagement(likes, comments, forks))
	score := engagement / math.Pow(AgeHours(createdAt, now), decayExponent)
	return round2(score)
}

// ComputeStats is Compute applied to a storage snapshot.
func ComputeStats(s PostStats, now time.Time) float64 {
	return Compute(s.Likes, s.Comments, s.Forks, s.CreatedAt, now)
}

// round2 rounds half to even on the exact binary value, so 0.125 becomes 0.12.
func round2(v float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	return r
}
