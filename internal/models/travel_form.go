package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	FormKindPre  = "pre"
	FormKindPost = "post"
)

const (
	FormStatusDraft     = "draft"
	FormStatusSubmitted = "submitted"
	FormStatusApproved  = "approved"
	FormStatusRejected  = "rejected"
)

type TravelForm struct {
	gorm.Model

	UserID        uint      `gorm:"not null;index"`
	Kind          string    `gorm:"not null"` // "pre" or "post"
	Status        string    `gorm:"not null;default:draft;index"`
	Destination   string    `gorm:"not null"`
	Purpose       string    `gorm:"type:text"`
	DepartureTime time.Time `gorm:"not null"`
	ReturnTime    time.Time `gorm:"not null"`
	StartMileage  float64
	EndMileage    float64

	VehicleID       *uint `gorm:"index"`
	PreTravelFormID *uint `gorm:"index"` // post-travel forms may reference their pre-travel form

	// Computed on every write from the fields above
	TotalHours        int
	Allowance         float64
	Kilometers        float64
	DistanceAllowance float64
	ExpensesTotal     float64
	TotalAmount       float64

	SubmittedAt     *time.Time
	ReviewerID      *uint
	ReviewedAt      *time.Time
	RejectionReason string

	// Relationships
	User     User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Vehicle  *Vehicle  `gorm:"foreignKey:VehicleID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
	Expenses []Expense `gorm:"foreignKey:TravelFormID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (f TravelForm) Editable() bool {
	return f.Status == FormStatusDraft
}

type Expense struct {
	gorm.Model

	TravelFormID uint    `gorm:"not null;index"`
	Name         string  `gorm:"not null"`
	Amount       float64 `gorm:"not null"`
	ReceiptID    *uint   `gorm:"index"`
}
