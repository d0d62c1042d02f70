package models

import "time"

const (
	NotificationFormSubmitted = "form_submitted"
	NotificationFormApproved  = "form_approved"
	NotificationFormRejected  = "form_rejected"
	NotificationInfo          = "info"
)

// Notification is both the persisted record and the payload pushed over
// websocket connections.
type Notification struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"-"`
	Title     string    `gorm:"not null" json:"title"`
	Message   string    `gorm:"not null" json:"message"`
	Type      string    `gorm:"not null" json:"type"`
	Read      bool      `gorm:"not null;default:false;index" json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}
