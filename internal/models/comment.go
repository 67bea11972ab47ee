package models

import "time"

// Comment belongs to a post and optionally replies to another comment of the
// same post.
type Comment struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	PostID    int       `gorm:"not null;index" json:"post_id"`
	AuthorID  int       `gorm:"not null" json:"author_id"`
	Author    User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	ParentID  *int      `gorm:"index" json:"parent_id,omitempty"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateCommentRequest struct {
	Content  string `json:"content" binding:"required"`
	ParentID *int   `json:"parent_id"`
}
