package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tripwise-dev/tripwise/db"
	"github.com/tripwise-dev/tripwise/internal/logger"
	"github.com/tripwise-dev/tripwise/internal/models"
	"github.com/tripwise-dev/tripwise/internal/services"
	"github.com/tripwise-dev/tripwise/internal/types"
	"github.com/tripwise-dev/tripwise/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VehicleRequest struct {
	Name           string  `json:"name" binding:"required,max=120"`
	LicensePlate   string  `json:"licensePlate" binding:"required,max=20"`
	CompanyID      *uint   `json:"companyId"`
	CurrentMileage float64 `json:"currentMileage" binding:"gte=0"`
}

type MileageEntryRequest struct {
	StartMileage float64 `json:"startMileage" binding:"gte=0"`
	EndMileage   float64 `json:"endMileage" binding:"gte=0"`
	Note         string  `json:"note" binding:"max=500"`
}

// visibleVehicles limits vehicles to the caller's company. Users without a
// company see every vehicle.
func visibleVehicles(ctx *gin.Context) *gorm.DB {
	query := db.DB.WithContext(ctx.Request.Context()).Model(&models.Vehicle{})

	if user, err := utils.GetCurrentUser(ctx); err == nil && user.CompanyID != nil {
		query = query.Where("company_id = ?", *user.CompanyID)
	}

	return query
}

func findVehicle(ctx *gin.Context) (models.Vehicle, bool) {
	var vehicle models.Vehicle

	vehicleID, err := utils.GetIDParam(ctx, "id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return vehicle, false
	}

	if err := visibleVehicles(ctx).First(&vehicle, vehicleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Vehicle not found"})
		} else {
			internalError(ctx)
		}
		return vehicle, false
	}

	return vehicle, true
}

func (h *Handler) ListVehicles(ctx *gin.Context) {
	var vehicles []models.Vehicle

	if err := visibleVehicles(ctx).Order("name").Find(&vehicles).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve vehicles"})
		return
	}

	response := make([]types.VehicleResponse, 0, len(vehicles))
	for _, vehicle := range vehicles {
		response = append(response, types.NewVehicleResponse(vehicle))
	}

	ctx.JSON(http.StatusOK, response)
}

func (h *Handler) GetVehicle(ctx *gin.Context) {
	vehicle, ok := findVehicle(ctx)
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, types.NewVehicleResponse(vehicle))
}

func (h *Handler) CreateVehicle(ctx *gin.Context) {
	var req VehicleRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	companyID := req.CompanyID
	if admin, err := utils.GetCurrentUser(ctx); err == nil && admin.CompanyID != nil {
		companyID = admin.CompanyID
	}

	vehicle := models.Vehicle{
		Name:           strings.TrimSpace(req.Name),
		LicensePlate:   strings.ToUpper(strings.TrimSpace(req.LicensePlate)),
		CompanyID:      companyID,
		CurrentMileage: req.CurrentMileage,
	}

	if taken, err := plateTaken(vehicle.LicensePlate, 0); err != nil {
		internalError(ctx)
		return
	} else if taken {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "License plate already registered"})
		return
	}

	if err := db.DB.Create(&vehicle).Error; err != nil {
		logger.WithError(err).Error("Failed to create vehicle")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create vehicle"})
		return
	}

	ctx.JSON(http.StatusCreated, types.NewVehicleResponse(vehicle))
}

func (h *Handler) UpdateVehicle(ctx *gin.Context) {
	vehicle, ok := findVehicle(ctx)
	if !ok {
		return
	}

	var req VehicleRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if req.CurrentMileage < vehicle.CurrentMileage {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Mileage cannot be rewound"})
		return
	}

	vehicle.Name = strings.TrimSpace(req.Name)
	vehicle.LicensePlate = strings.ToUpper(strings.TrimSpace(req.LicensePlate))
	vehicle.CurrentMileage = req.CurrentMileage

	if taken, err := plateTaken(vehicle.LicensePlate, vehicle.ID); err != nil {
		internalError(ctx)
		return
	} else if taken {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "License plate already registered"})
		return
	}

	if err := db.DB.Omit(clause.Associations).Save(&vehicle).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update vehicle"})
		return
	}

	ctx.JSON(http.StatusOK, types.NewVehicleResponse(vehicle))
}

func (h *Handler) DeleteVehicle(ctx *gin.Context) {
	vehicle, ok := findVehicle(ctx)
	if !ok {
		return
	}

	if err := db.DB.Delete(&vehicle).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete vehicle"})
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (h *Handler) ListMileageEntries(ctx *gin.Context) {
	vehicle, ok := findVehicle(ctx)
	if !ok {
		return
	}

	limit, offset := utils.GetPagination(ctx)

	var entries []models.MileageEntry

	err := db.DB.Where("vehicle_id = ?", vehicle.ID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error

	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve mileage entries"})
		return
	}

	response := make([]types.MileageEntryResponse, 0, len(entries))
	for _, entry := range entries {
		response = append(response, types.NewMileageEntryResponse(entry))
	}

	ctx.JSON(http.StatusOK, response)
}

// CreateMileageEntry logs a manual trip against a vehicle.
func (h *Handler) CreateMileageEntry(ctx *gin.Context) {
	vehicle, ok := findVehicle(ctx)
	if !ok {
		return
	}

	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req MileageEntryRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	entry := models.MileageEntry{
		UserID:       userID,
		StartMileage: req.StartMileage,
		EndMileage:   req.EndMileage,
		Note:         strings.TrimSpace(req.Note),
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&vehicle, vehicle.ID).Error; err != nil {
			return err
		}
		return services.RecordMileage(tx, &vehicle, &entry)
	})

	if errors.Is(err, services.ErrInvalidMileage) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err != nil {
		logger.WithError(err).Error("Failed to record mileage")
		internalError(ctx)
		return
	}

	ctx.JSON(http.StatusCreated, types.NewMileageEntryResponse(entry))
}

func plateTaken(plate string, exceptID uint) (bool, error) {
	var count int64

	err := db.DB.Model(&models.Vehicle{}).Where("license_plate = ? AND id != ?", plate, exceptID).Count(&count).Error

	return count > 0, err
}
