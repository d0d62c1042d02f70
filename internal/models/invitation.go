package models

import (
	"time"

	"gorm.io/gorm"
)

type Invitation struct {
	gorm.Model

	Email       string    `gorm:"not null;index"`
	Token       string    `gorm:"uniqueIndex;not null"`
	Role        string    `gorm:"not null;default:user"`
	CompanyID   *uint     `gorm:"index"`
	InvitedByID uint      `gorm:"not null"`
	ExpiresAt   time.Time `gorm:"not null;index"`
	AcceptedAt  *time.Time

	// Relationships
	Company   *Company `gorm:"foreignKey:CompanyID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	InvitedBy User     `gorm:"foreignKey:InvitedByID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// Usable reports whether the invitation can still be accepted at now.
func (i Invitation) Usable(now time.Time) bool {
	return i.AcceptedAt == nil && now.Before(i.ExpiresAt)
}
