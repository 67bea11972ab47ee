package models

import "time"

const (
	VerbLiked     = "liked"
	VerbCommented = "commented"
	VerbReplied   = "replied"
	VerbForked    = "forked"
)

type Notification struct {
	ID          int       `gorm:"primaryKey" json:"id"`
	RecipientID int       `gorm:"not null;index:idx_notifications_recipient_read" json:"recipient_id"`
	ActorID     int       `gorm:"not null" json:"actor_id"`
	Actor       User      `gorm:"foreignKey:ActorID;constraint:OnDelete:CASCADE" json:"actor"`
	Verb        string    `gorm:"size:50;not null" json:"verb"`
	TargetLink  string    `gorm:"size:255" json:"target_link"`
	IsRead      bool      `gorm:"default:false;index:idx_notifications_recipient_read" json:"is_read"`
	CreatedAt   time.Time `gorm:"index" json:"timestamp"`
}
