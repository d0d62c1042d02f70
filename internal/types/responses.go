package types

import (
	"time"

	"github.com/tripwise-dev/tripwise/internal/models"
)

type UserResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CompanyID *uint  `json:"companyId"`
	Active    bool   `json:"active"`
}

func NewUserResponse(u models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CompanyID: u.CompanyID,
		Active:    u.Active,
	}
}

type CompanyResponse struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	Address      string `json:"address"`
	SlackWebhook string `json:"slackWebhook,omitempty"`
}

func NewCompanyResponse(c models.Company) CompanyResponse {
	return CompanyResponse{ID: c.ID, Name: c.Name, Address: c.Address, SlackWebhook: c.SlackWebhook}
}

type InvitationResponse struct {
	ID         uint       `json:"id"`
	Email      string     `json:"email"`
	Role       string     `json:"role"`
	CompanyID  *uint      `json:"companyId"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	AcceptedAt *time.Time `json:"acceptedAt"`
	Token      string     `json:"token,omitempty"`
}

func NewInvitationResponse(i models.Invitation, withToken bool) InvitationResponse {
	resp := InvitationResponse{
		ID:         i.ID,
		Email:      i.Email,
		Role:       i.Role,
		CompanyID:  i.CompanyID,
		ExpiresAt:  i.ExpiresAt,
		AcceptedAt: i.AcceptedAt,
	}
	if withToken {
		resp.Token = i.Token
	}
	return resp
}

type ExpenseResponse struct {
	ID        uint    `json:"id"`
	Name      string  `json:"name"`
	Amount    float64 `json:"amount"`
	ReceiptID *uint   `json:"receiptId"`
}

type TravelFormResponse struct {
	ID                uint              `json:"id"`
	UserID            uint              `json:"userId"`
	Kind              string            `json:"kind"`
	Status            string            `json:"status"`
	Destination       string            `json:"destination"`
	Purpose           string            `json:"purpose"`
	DepartureTime     time.Time         `json:"departureTime"`
	ReturnTime        time.Time         `json:"returnTime"`
	StartMileage      float64           `json:"startMileage"`
	EndMileage        float64           `json:"endMileage"`
	VehicleID         *uint             `json:"vehicleId"`
	PreTravelFormID   *uint             `json:"preTravelFormId"`
	TotalHours        int               `json:"totalHours"`
	Allowance         float64           `json:"allowance"`
	Kilometers        float64           `json:"kilometers"`
	DistanceAllowance float64           `json:"distanceAllowance"`
	ExpensesTotal     float64           `json:"expensesTotal"`
	TotalAmount       float64           `json:"totalAmount"`
	SubmittedAt       *time.Time        `json:"submittedAt"`
	ReviewedAt        *time.Time        `json:"reviewedAt"`
	RejectionReason   string            `json:"rejectionReason,omitempty"`
	Expenses          []ExpenseResponse `json:"expenses"`
	CreatedAt         time.Time         `json:"createdAt"`
}

func NewTravelFormResponse(f models.TravelForm) TravelFormResponse {
	expenses := make([]ExpenseResponse, 0, len(f.Expenses))
	for _, e := range f.Expenses {
		expenses = append(expenses, ExpenseResponse{ID: e.ID, Name: e.Name, Amount: e.Amount, ReceiptID: e.ReceiptID})
	}

	return TravelFormResponse{
		ID:                f.ID,
		UserID:            f.UserID,
		Kind:              f.Kind,
		Status:            f.Status,
		Destination:       f.Destination,
		Purpose:           f.Purpose,
		DepartureTime:     f.DepartureTime,
		ReturnTime:        f.ReturnTime,
		StartMileage:      f.StartMileage,
		EndMileage:        f.EndMileage,
		VehicleID:         f.VehicleID,
		PreTravelFormID:   f.PreTravelFormID,
		TotalHours:        f.TotalHours,
		Allowance:         f.Allowance,
		Kilometers:        f.Kilometers,
		DistanceAllowance: f.DistanceAllowance,
		ExpensesTotal:     f.ExpensesTotal,
		TotalAmount:       f.TotalAmount,
		SubmittedAt:       f.SubmittedAt,
		ReviewedAt:        f.ReviewedAt,
		RejectionReason:   f.RejectionReason,
		Expenses:          expenses,
		CreatedAt:         f.CreatedAt,
	}
}

type ReceiptResponse struct {
	ID           uint        `json:"id"`
	TravelFormID *uint       `json:"travelFormId"`
	FileName     string      `json:"fileName"`
	ContentType  string      `json:"contentType"`
	Size         int64       `json:"size"`
	OCRResult    interface{} `json:"ocrResult"`
	CreatedAt    time.Time   `json:"createdAt"`
}

type VehicleResponse struct {
	ID             uint    `json:"id"`
	CompanyID      *uint   `json:"companyId"`
	Name           string  `json:"name"`
	LicensePlate   string  `json:"licensePlate"`
	CurrentMileage float64 `json:"currentMileage"`
}

func NewVehicleResponse(v models.Vehicle) VehicleResponse {
	return VehicleResponse{
		ID:             v.ID,
		CompanyID:      v.CompanyID,
		Name:           v.Name,
		LicensePlate:   v.LicensePlate,
		CurrentMileage: v.CurrentMileage,
	}
}

type MileageEntryResponse struct {
	ID           uint      `json:"id"`
	VehicleID    uint      `json:"vehicleId"`
	UserID       uint      `json:"userId"`
	TravelFormID *uint     `json:"travelFormId"`
	StartMileage float64   `json:"startMileage"`
	EndMileage   float64   `json:"endMileage"`
	Kilometers   float64   `json:"kilometers"`
	Note         string    `json:"note"`
	CreatedAt    time.Time `json:"createdAt"`
}

func NewMileageEntryResponse(e models.MileageEntry) MileageEntryResponse {
	return MileageEntryResponse{
		ID:           e.ID,
		VehicleID:    e.VehicleID,
		UserID:       e.UserID,
		TravelFormID: e.TravelFormID,
		StartMileage: e.StartMileage,
		EndMileage:   e.EndMileage,
		Kilometers:   e.Kilometers,
		Note:         e.Note,
		CreatedAt:    e.CreatedAt,
	}
}
