package models

import "time"

// Bookmark is a post saved by a user.
type Bookmark struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	UserID    int       `gorm:"not null;uniqueIndex:idx_bookmarks_user_post" json:"user_id"`
	PostID    int       `gorm:"not null;uniqueIndex:idx_bookmarks_user_post" json:"post_id"`
	Post      Post      `gorm:"foreignKey:PostID" json:"post"`
	CreatedAt time.Time `json:"created_at"`
}
