package models

import "time"

type User struct {
	ID       int    `gorm:"primaryKey" json:"id"`
	Username string `gorm:"unique;not null" json:"username"`
	Email    string `gorm:"unique;not null" json:"email"`
	Password string `gorm:"not null" json:"-"` // bcrypt hash, empty for OAuth accounts
	Bio      string `json:"bio"`
	Avatar   string `json:"avatar"`
	Website  string `json:"website"`
	IsAdmin  bool   `gorm:"default:false" json:"-"`

	GoogleID     string `gorm:"index" json:"-"`
	AuthProvider string `json:"auth_provider"` // "email" or "google"

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Avatar   string `json:"avatar"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type OAuthRequest struct {
	Token    string `json:"token" binding:"required"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type AuthResponse struct {
	Token   string `json:"token"`
	User    User   `json:"user"`
	Message string `json:"message,omitempty"`
}
