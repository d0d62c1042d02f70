package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tripwise-dev/tripwise/db"
	"github.com/tripwise-dev/tripwise/internal/allowance"
	"github.com/tripwise-dev/tripwise/internal/logger"
	"github.com/tripwise-dev/tripwise/internal/metrics"
	"github.com/tripwise-dev/tripwise/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrFormNotEditable   = errors.New("form can only be changed while it is a draft")
	ErrInvalidTimes      = errors.New("return time must be after departure time")
	ErrInvalidMileage    = errors.New("end mileage must not be lower than start mileage")
	ErrNegativeAmount    = errors.New("expense amounts must not be negative")
)

var transitions = map[string][]string{
	models.FormStatusDraft:     {models.FormStatusSubmitted},
	models.FormStatusSubmitted: {models.FormStatusApproved, models.FormStatusRejected},
}

// CanTransition reports whether a form may move from one status to another.
func CanTransition(from, to string) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

type FormService struct {
	Rates    allowance.Rates
	Notifier *Notifier
	Webhooks *WebhookSender
}

// Validate checks the invariants every stored form must satisfy.
func (s *FormService) Validate(form *models.TravelForm) error {
	if !form.ReturnTime.After(form.DepartureTime) {
		return ErrInvalidTimes
	}

	if form.StartMileage < 0 || form.EndMileage < form.StartMileage {
		return ErrInvalidMileage
	}

	for _, expense := range form.Expenses {
		if expense.Amount < 0 {
			return ErrNegativeAmount
		}
	}

	return nil
}

// Compute fills the derived reimbursement fields of form.
func (s *FormService) Compute(form *models.TravelForm) {
	amounts := make([]float64, 0, len(form.Expenses))
	for _, expense := range form.Expenses {
		amounts = append(amounts, expense.Amount)
	}

	b := allowance.Compute(allowance.BreakdownInput{
		Departure:    form.DepartureTime,
		Return:       form.ReturnTime,
		StartMileage: form.StartMileage,
		EndMileage:   form.EndMileage,
		Expenses:     amounts,
	}, s.Rates)

	form.TotalHours = b.TotalHours
	form.Allowance = b.Allowance
	form.Kilometers = b.Kilometers
	form.DistanceAllowance = b.DistanceAllowance
	form.ExpensesTotal = b.ExpensesTotal
	form.TotalAmount = b.Total
}

// Create validates, computes and stores a new draft form with its expenses.
// Creating a form notifies nobody.
func (s *FormService) Create(ctx context.Context, form *models.TravelForm) error {
	if err := s.Validate(form); err != nil {
		return err
	}

	form.Status = models.FormStatusDraft
	s.Compute(form)

	return db.DB.WithContext(ctx).Create(form).Error
}

// Update replaces the editable fields and the expense list of a draft.
func (s *FormService) Update(ctx context.Context, form *models.TravelForm, expenses []models.Expense) error {
	if !form.Editable() {
		return ErrFormNotEditable
	}

	form.Expenses = expenses
	if err := s.Validate(form); err != nil {
		return err
	}
	s.Compute(form)

	return db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("travel_form_id = ?", form.ID).Delete(&models.Expense{}).Error; err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).Save(form).Error; err != nil {
			return err
		}

		if len(form.Expenses) == 0 {
			return nil
		}

		for i := range form.Expenses {
			form.Expenses[i].ID = 0
			form.Expenses[i].TravelFormID = form.ID
		}

		return tx.Create(&form.Expenses).Error
	})
}

func (s *FormService) Delete(ctx context.Context, form *models.TravelForm) error {
	if !form.Editable() {
		return ErrFormNotEditable
	}

	return db.DB.WithContext(ctx).Select("Expenses").Delete(form).Error
}

// Submit moves a draft to review. Post-travel forms with a company vehicle
// also log the trip's mileage against the vehicle.
func (s *FormService) Submit(ctx context.Context, form *models.TravelForm, submitter models.User) error {
	if !CanTransition(form.Status, models.FormStatusSubmitted) {
		return ErrInvalidTransition
	}

	now := time.Now()

	err := db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.TravelForm{}).
			Where("id = ? AND status = ?", form.ID, models.FormStatusDraft).
			Updates(map[string]interface{}{
				"status":       models.FormStatusSubmitted,
				"submitted_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidTransition
		}

		if form.Kind == models.FormKindPost && form.VehicleID != nil {
			return logVehicleMileage(tx, form)
		}

		return nil
	})

	if err != nil {
		return err
	}

	form.Status = models.FormStatusSubmitted
	form.SubmittedAt = &now
	metrics.RecordFormTransition(form.Kind, form.Status)

	title := "Travel form submitted"
	message := fmt.Sprintf("%s submitted a %s-travel form for %s", submitter.Name, form.Kind, form.Destination)

	if err := s.Notifier.NotifyAdmins(ctx, submitter.ID, submitter.CompanyID, models.NotificationFormSubmitted, title, message); err != nil {
		logger.WithFields(logrus.Fields{"form_id": form.ID}).WithError(err).Warn("Failed to notify reviewers")
	}

	if s.Webhooks != nil {
		s.Webhooks.FormSubmitted(ctx, submitter, *form)
	}

	return nil
}

// Review approves or rejects a submitted form and notifies its owner.
func (s *FormService) Review(ctx context.Context, form *models.TravelForm, reviewer models.User, approve bool, reason string) error {
	status := models.FormStatusRejected
	if approve {
		status = models.FormStatusApproved
		reason = ""
	}

	if !CanTransition(form.Status, status) {
		return ErrInvalidTransition
	}

	now := time.Now()

	res := db.DB.WithContext(ctx).Model(&models.TravelForm{}).
		Where("id = ? AND status = ?", form.ID, models.FormStatusSubmitted).
		Updates(map[string]interface{}{
			"status":           status,
			"reviewer_id":      reviewer.ID,
			"reviewed_at":      now,
			"rejection_reason": reason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInvalidTransition
	}

	form.Status = status
	form.ReviewerID = &reviewer.ID
	form.ReviewedAt = &now
	form.RejectionReason = reason
	metrics.RecordFormTransition(form.Kind, status)

	kind, title, message := reviewMessage(*form)

	if _, err := s.Notifier.Notify(ctx, form.UserID, kind, title, message); err != nil {
		logger.WithFields(logrus.Fields{"form_id": form.ID}).WithError(err).Error("Failed to store review notification")
	}

	return nil
}

func reviewMessage(form models.TravelForm) (kind, title, message string) {
	if form.Status == models.FormStatusApproved {
		return models.NotificationFormApproved,
			"Travel form approved",
			fmt.Sprintf("Your %s-travel form for %s was approved. Reimbursement: %.2f", form.Kind, form.Destination, form.TotalAmount)
	}

	message = fmt.Sprintf("Your %s-travel form for %s was rejected.", form.Kind, form.Destination)
	if form.RejectionReason != "" {
		message += " Reason: " + form.RejectionReason
	}

	return models.NotificationFormRejected, "Travel form rejected", message
}

func logVehicleMileage(tx *gorm.DB, form *models.TravelForm) error {
	var vehicle models.Vehicle

	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&vehicle, *form.VehicleID).Error; err != nil {
		return fmt.Errorf("load vehicle: %w", err)
	}

	entry := models.MileageEntry{
		VehicleID:    vehicle.ID,
		UserID:       form.UserID,
		TravelFormID: &form.ID,
		StartMileage: form.StartMileage,
		EndMileage:   form.EndMileage,
		Kilometers:   form.EndMileage - form.StartMileage,
		Note:         form.Destination,
	}

	return RecordMileage(tx, &vehicle, &entry)
}

// RecordMileage stores entry and advances the vehicle's odometer when the
// entry ends beyond it.
func RecordMileage(tx *gorm.DB, vehicle *models.Vehicle, entry *models.MileageEntry) error {
	if entry.EndMileage < entry.StartMileage || entry.StartMileage < 0 {
		return ErrInvalidMileage
	}

	entry.VehicleID = vehicle.ID
	entry.Kilometers = entry.EndMileage - entry.StartMileage

	if err := tx.Create(entry).Error; err != nil {
		return err
	}

	if entry.EndMileage > vehicle.CurrentMileage {
		vehicle.CurrentMileage = entry.EndMileage
		return tx.Model(vehicle).Update("current_mileage", entry.EndMileage).Error
	}

	return nil
}
