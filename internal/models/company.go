package models

import "gorm.io/gorm"

type Company struct {
	gorm.Model

	Name         string `gorm:"uniqueIndex;not null"`
	Address      string
	SlackWebhook string // optional; receives submitted-form events

	// Relationships
	Users    []User    `gorm:"foreignKey:CompanyID"`
	Vehicles []Vehicle `gorm:"foreignKey:CompanyID"`
}
