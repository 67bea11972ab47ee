package models

import "time"

// Post is a forum post. TrendingScore is owned by the trending engine and is
// never bound from request bodies.
type Post struct {
	ID            int       `gorm:"primaryKey" json:"id"`
	AuthorID      int       `gorm:"not null;index" json:"author_id"`
	Author        User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	Title         string    `gorm:"size:200;not null" json:"title"`
	Description   string    `gorm:"type:text" json:"description"`
	CodeSnippet   string    `gorm:"type:text" json:"code_snippet,omitempty"`
	Language      string    `gorm:"size:50;default:text" json:"language"`
	Tags          string    `gorm:"size:255" json:"-"`
	Views         int       `gorm:"default:0" json:"views"`
	ForkCount     int       `gorm:"default:0" json:"fork_count"`
	ForkedFromID  *int      `gorm:"index" json:"forked_from_id,omitempty"`
	IsSolved      bool      `gorm:"default:false" json:"is_solved"`
	TrendingScore float64   `gorm:"default:0;index" json:"trending_score"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Votes     []Vote     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Comments  []Comment  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Bookmarks []Bookmark `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

type CreatePostRequest struct {
	Title       string   `json:"title" binding:"required,max=200"`
	Description string   `json:"description" binding:"required"`
	CodeSnippet string   `json:"code_snippet"`
	Language    string   `json:"language" binding:"max=50"`
	Tags        []string `json:"tags"`
}

type UpdatePostRequest struct {
	Title       *string  `json:"title" binding:"omitempty,max=200"`
	Description *string  `json:"description"`
	CodeSnippet *string  `json:"code_snippet"`
	Language    *string  `json:"language" binding:"omitempty,max=50"`
	Tags        []string `json:"tags"`
	IsSolved    *bool    `json:"is_solved"`
}
