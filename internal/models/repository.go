package models

import "time"

// Repository is a code repository hosted on the forum.
type Repository struct {
	ID            int       `gorm:"primaryKey" json:"id"`
	OwnerID       int       `gorm:"not null;uniqueIndex:idx_repositories_owner_name" json:"owner_id"`
	Owner         User      `gorm:"foreignKey:OwnerID" json:"owner"`
	Name          string    `gorm:"size:100;not null;uniqueIndex:idx_repositories_owner_name" json:"name"`
	Description   string    `gorm:"type:text" json:"description"`
	IsPublic      bool      `gorm:"not null;index" json:"is_public"`
	DefaultBranch string    `gorm:"size:50;default:main" json:"default_branch"`
	ForkedFromID  *int      `json:"forked_from_id,omitempty"`
	StarsCount    int       `gorm:"default:0" json:"stars_count"`
	ForksCount    int       `gorm:"default:0" json:"forks_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Commit struct {
	ID           int       `gorm:"primaryKey" json:"id"`
	RepositoryID int       `gorm:"not null;index" json:"repository_id"`
	AuthorID     int       `gorm:"not null" json:"author_id"`
	Hash         string    `gorm:"size:40;not null" json:"hash"`
	Message      string    `gorm:"type:text;not null" json:"message"`
	Branch       string    `gorm:"size:255" json:"branch"`
	IsVerified   bool      `gorm:"default:false" json:"is_verified"`
	CommittedAt  time.Time `gorm:"index" json:"committed_at"`
	CreatedAt    time.Time `json:"created_at"`
}

type CreateRepositoryRequest struct {
	Name          string `json:"name" binding:"required,max=100"`
	Description   string `json:"description"`
	IsPublic      *bool  `json:"is_public"`
	DefaultBranch string `json:"default_branch" binding:"max=50"`
}

type CreateCommitRequest struct {
	Hash        string     `json:"hash" binding:"required,len=40,hexadecimal"`
	Message     string     `json:"message" binding:"required"`
	Branch      string     `json:"branch"`
	CommittedAt *time.Time `json:"committed_at"`
}
