package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Receipt struct {
	gorm.Model

	UserID       uint           `gorm:"not null;index"`
	TravelFormID *uint          `gorm:"index"`
	FileName     string         `gorm:"not null"`
	StoredName   string         `gorm:"uniqueIndex;not null"`
	ContentType  string         `gorm:"not null"`
	Size         int64          `gorm:"not null"`
	OCRResult    datatypes.JSON `gorm:"type:jsonb"`

	// Relationships
	User User `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}
