package models

import "time"

const (
	VoteLike    = "like"
	VoteDislike = "dislike"
)

// Vote is a like or dislike on a post; one per (user, post).
type Vote struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	UserID    int       `gorm:"not null;uniqueIndex:idx_votes_user_post" json:"user_id"`
	PostID    int       `gorm:"not null;uniqueIndex:idx_votes_user_post;index" json:"post_id"`
	VoteType  string    `gorm:"size:10;not null" json:"vote_type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type VoteRequest struct {
	VoteType string `json:"vote_type" binding:"required,oneof=like dislike"`
}
