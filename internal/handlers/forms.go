package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tripwise-dev/tripwise/db"
	"github.com/tripwise-dev/tripwise/internal/allowance"
	"github.com/tripwise-dev/tripwise/internal/logger"
	"github.com/tripwise-dev/tripwise/internal/models"
	"github.com/tripwise-dev/tripwise/internal/services"
	"github.com/tripwise-dev/tripwise/internal/types"
	"github.com/tripwise-dev/tripwise/internal/utils"
	"gorm.io/gorm"
)

type ExpenseRequest struct {
	Name      string  `json:"name" binding:"required,max=200"`
	Amount    float64 `json:"amount" binding:"gte=0"`
	ReceiptID *uint   `json:"receiptId"`
}

type TravelFormRequest struct {
	Kind            string           `json:"kind" binding:"required,oneof=pre post"`
	Destination     string           `json:"destination" binding:"required,max=200"`
	Purpose         string           `json:"purpose" binding:"max=2000"`
	DepartureTime   string           `json:"departureTime" binding:"required"`
	ReturnTime      string           `json:"returnTime" binding:"required"`
	StartMileage    float64          `json:"startMileage" binding:"gte=0"`
	EndMileage      float64          `json:"endMileage" binding:"gte=0"`
	VehicleID       *uint            `json:"vehicleId"`
	PreTravelFormID *uint            `json:"preTravelFormId"`
	Expenses        []ExpenseRequest `json:"expenses" binding:"dive"`
}

type RejectFormRequest struct {
	Reason string `json:"reason" binding:"max=1000"`
}

type AllowancePreviewRequest struct {
	DepartureTime string    `json:"departureTime"`
	ReturnTime    string    `json:"returnTime"`
	StartMileage  float64   `json:"startMileage"`
	EndMileage    float64   `json:"endMileage"`
	Expenses      []float64 `json:"expenses"`
}

// formFromRequest validates references in req and maps it onto form.
// It writes the error response itself and reports false on failure.
func formFromRequest(ctx *gin.Context, userID uint, req TravelFormRequest, form *models.TravelForm) ([]models.Expense, bool) {
	departure, ok := allowance.ParseTime(req.DepartureTime)
	if !ok {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid departure time"})
		return nil, false
	}

	ret, ok := allowance.ParseTime(req.ReturnTime)
	if !ok {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid return time"})
		return nil, false
	}

	if req.VehicleID != nil {
		if err := visibleVehicles(ctx).First(&models.Vehicle{}, *req.VehicleID).Error; err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Vehicle not found"})
			return nil, false
		}
	}

	if req.PreTravelFormID != nil {
		if req.Kind != models.FormKindPost {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Only post-travel forms can reference a pre-travel form"})
			return nil, false
		}

		var pre models.TravelForm

		err := db.DB.Where("id = ? AND user_id = ? AND kind = ?", *req.PreTravelFormID, userID, models.FormKindPre).First(&pre).Error
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Pre-travel form not found"})
			return nil, false
		}
	}

	expenses := make([]models.Expense, 0, len(req.Expenses))
	receiptIDs := make([]uint, 0)

	for _, e := range req.Expenses {
		expenses = append(expenses, models.Expense{
			Name:      strings.TrimSpace(e.Name),
			Amount:    e.Amount,
			ReceiptID: e.ReceiptID,
		})
		if e.ReceiptID != nil {
			receiptIDs = append(receiptIDs, *e.ReceiptID)
		}
	}

	if len(receiptIDs) > 0 {
		var owned int64

		if err := db.DB.Model(&models.Receipt{}).Where("id IN ? AND user_id = ?", receiptIDs, userID).Distinct("id").Count(&owned).Error; err != nil {
			internalError(ctx)
			return nil, false
		}

		if int(owned) != len(uniqueIDs(receiptIDs)) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Receipt not found"})
			return nil, false
		}
	}

	form.Kind = req.Kind
	form.Destination = strings.TrimSpace(req.Destination)
	form.Purpose = req.Purpose
	form.DepartureTime = departure
	form.ReturnTime = ret
	form.StartMileage = req.StartMileage
	form.EndMileage = req.EndMileage
	form.VehicleID = req.VehicleID
	form.PreTravelFormID = req.PreTravelFormID

	return expenses, true
}

func uniqueIDs(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// respondFormError maps form service failures onto HTTP statuses.
func respondFormError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidTimes),
		errors.Is(err, services.ErrInvalidMileage),
		errors.Is(err, services.ErrNegativeAmount):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrFormNotEditable),
		errors.Is(err, services.ErrInvalidTransition):
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.WithError(err).Error("Travel form operation failed")
		internalError(ctx)
	}
}

// loadForm fetches the form named by the :id parameter. Owners always see
// their forms; admins also see forms of users in their company.
func loadForm(ctx *gin.Context) (models.TravelForm, bool) {
	var form models.TravelForm

	formID, err := utils.GetIDParam(ctx, "id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return form, false
	}

	user, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return form, false
	}

	if err := db.DB.Preload("Expenses").Preload("User").First(&form, formID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Travel form not found"})
		} else {
			internalError(ctx)
		}
		return form, false
	}

	if form.UserID == user.ID {
		return form, true
	}

	if user.IsAdmin() && (user.CompanyID == nil || (form.User.CompanyID != nil && *form.User.CompanyID == *user.CompanyID)) {
		return form, true
	}

	ctx.JSON(http.StatusNotFound, gin.H{"error": "Travel form not found"})
	return form, false
}

func (h *Handler) CreateForm(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req TravelFormRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	form := models.TravelForm{UserID: userID}

	expenses, ok := formFromRequest(ctx, userID, req, &form)
	if !ok {
		return
	}
	form.Expenses = expenses

	if err := h.Forms.Create(ctx.Request.Context(), &form); err != nil {
		respondFormError(ctx, err)
		return
	}

	logger.WithFields(logrus.Fields{"form_id": form.ID, "user_id": userID, "kind": form.Kind}).Info("Travel form created")

	ctx.JSON(http.StatusCreated, types.NewTravelFormResponse(form))
}

func (h *Handler) ListForms(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	limit, offset := utils.GetPagination(ctx)

	query := db.DB.Preload("Expenses").Where("user_id = ?", userID)

	if status := ctx.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if kind := ctx.Query("kind"); kind != "" {
		query = query.Where("kind = ?", kind)
	}

	var forms []models.TravelForm

	if err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&forms).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve travel forms"})
		return
	}

	ctx.JSON(http.StatusOK, formResponses(forms))
}

func formResponses(forms []models.TravelForm) []types.TravelFormResponse {
	response := make([]types.TravelFormResponse, 0, len(forms))
	for _, form := range forms {
		response = append(response, types.NewTravelFormResponse(form))
	}
	return response
}

func (h *Handler) GetForm(ctx *gin.Context) {
	form, ok := loadForm(ctx)
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, types.NewTravelFormResponse(form))
}

func (h *Handler) UpdateForm(ctx *gin.Context) {
	form, ok := loadForm(ctx)
	if !ok {
		return
	}

	if userID, _ := utils.GetCurrentUserID(ctx); form.UserID != userID {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can edit a travel form"})
		return
	}

	var req TravelFormRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if !form.Editable() {
		respondFormError(ctx, services.ErrFormNotEditable)
		return
	}

	expenses, ok := formFromRequest(ctx, form.UserID, req, &form)
	if !ok {
		return
	}

	if err := h.Forms.Update(ctx.Request.Context(), &form, expenses); err != nil {
		respondFormError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, types.NewTravelFormResponse(form))
}

func (h *Handler) DeleteForm(ctx *gin.Context) {
	form, ok := loadForm(ctx)
	if !ok {
		return
	}

	if userID, _ := utils.GetCurrentUserID(ctx); form.UserID != userID {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can delete a travel form"})
		return
	}

	if err := h.Forms.Delete(ctx.Request.Context(), &form); err != nil {
		respondFormError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (h *Handler) SubmitForm(ctx *gin.Context) {
	form, ok := loadForm(ctx)
	if !ok {
		return
	}

	if userID, _ := utils.GetCurrentUserID(ctx); form.UserID != userID {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can submit a travel form"})
		return
	}

	if err := h.Forms.Submit(ctx.Request.Context(), &form, form.User); err != nil {
		respondFormError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, types.NewTravelFormResponse(form))
}

// ListReviewForms lists forms of the admin's company, submitted ones by
// default.
func (h *Handler) ListReviewForms(ctx *gin.Context) {
	admin, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	limit, offset := utils.GetPagination(ctx)

	status := ctx.DefaultQuery("status", models.FormStatusSubmitted)

	query := db.DB.Preload("Expenses").Where("status = ?", status)

	if admin.CompanyID != nil {
		query = query.Where("user_id IN (?)", db.DB.Model(&models.User{}).Select("id").Where("company_id = ?", *admin.CompanyID))
	}

	var forms []models.TravelForm

	if err := query.Order("submitted_at ASC, id ASC").Limit(limit).Offset(offset).Find(&forms).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve travel forms"})
		return
	}

	ctx.JSON(http.StatusOK, formResponses(forms))
}

func (h *Handler) ApproveForm(ctx *gin.Context) {
	h.reviewForm(ctx, true, "")
}

func (h *Handler) RejectForm(ctx *gin.Context) {
	var req RejectFormRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	h.reviewForm(ctx, false, strings.TrimSpace(req.Reason))
}

func (h *Handler) reviewForm(ctx *gin.Context, approve bool, reason string) {
	form, ok := loadForm(ctx)
	if !ok {
		return
	}

	reviewer, err := utils.LoadCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if form.UserID == reviewer.ID {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "You cannot review your own travel form"})
		return
	}

	if err := h.Forms.Review(ctx.Request.Context(), &form, reviewer, approve, reason); err != nil {
		respondFormError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, types.NewTravelFormResponse(form))
}

// PreviewAllowance computes a reimbursement breakdown without storing
// anything.
func (h *Handler) PreviewAllowance(ctx *gin.Context) {
	var req AllowancePreviewRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	// Unparseable times yield a zero allowance rather than an error.
	departure, _ := allowance.ParseTime(req.DepartureTime)
	ret, _ := allowance.ParseTime(req.ReturnTime)

	breakdown := allowance.Compute(allowance.BreakdownInput{
		Departure:    departure,
		Return:       ret,
		StartMileage: req.StartMileage,
		EndMileage:   req.EndMileage,
		Expenses:     req.Expenses,
	}, h.Rates())

	ctx.JSON(http.StatusOK, breakdown)
}
