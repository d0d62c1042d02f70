package models

import "gorm.io/gorm"

type Vehicle struct {
	gorm.Model

	CompanyID      *uint  `gorm:"index"`
	Name           string `gorm:"not null"`
	LicensePlate   string `gorm:"uniqueIndex;not null"`
	CurrentMileage float64

	// Relationships
	Company        *Company       `gorm:"foreignKey:CompanyID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
	MileageEntries []MileageEntry `gorm:"foreignKey:VehicleID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

type MileageEntry struct {
	gorm.Model

	VehicleID    uint  `gorm:"not null;index"`
	UserID       uint  `gorm:"not null;index"`
	TravelFormID *uint `gorm:"index"`
	StartMileage float64
	EndMileage   float64
	Kilometers   float64
	Note         string
}
