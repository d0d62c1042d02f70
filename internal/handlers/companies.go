package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tripwise-dev/tripwise/db"
	"github.com/tripwise-dev/tripwise/internal/models"
	"github.com/tripwise-dev/tripwise/internal/types"
	"github.com/tripwise-dev/tripwise/internal/utils"
	"gorm.io/gorm"
)

type CompanyRequest struct {
	Name         string `json:"name" binding:"required,max=200"`
	Address      string `json:"address" binding:"max=500"`
	SlackWebhook string `json:"slackWebhook" binding:"omitempty,url"`
}

func (h *Handler) CreateCompany(ctx *gin.Context) {
	var body CompanyRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	company := models.Company{
		Name:         strings.TrimSpace(body.Name),
		Address:      body.Address,
		SlackWebhook: body.SlackWebhook,
	}

	if exists, err := companyNameTaken(company.Name, 0); err != nil {
		internalError(ctx)
		return
	} else if exists {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Company already exists"})
		return
	}

	if err := db.DB.Create(&company).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create company"})
		return
	}

	ctx.JSON(http.StatusCreated, types.NewCompanyResponse(company))
}

func (h *Handler) ListCompanies(ctx *gin.Context) {
	var companies []models.Company

	if err := db.DB.Order("name").Find(&companies).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve companies"})
		return
	}

	response := make([]types.CompanyResponse, 0, len(companies))
	for _, company := range companies {
		response = append(response, types.NewCompanyResponse(company))
	}

	ctx.JSON(http.StatusOK, response)
}

func (h *Handler) UpdateCompany(ctx *gin.Context) {
	companyID, err := utils.GetIDParam(ctx, "id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var body CompanyRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var company models.Company

	if err := db.DB.First(&company, companyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Company not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve company"})
		}
		return
	}

	company.Name = strings.TrimSpace(body.Name)
	company.Address = body.Address
	company.SlackWebhook = body.SlackWebhook

	if exists, err := companyNameTaken(company.Name, company.ID); err != nil {
		internalError(ctx)
		return
	} else if exists {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Company already exists"})
		return
	}

	if err := db.DB.Save(&company).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update company"})
		return
	}

	ctx.JSON(http.StatusOK, types.NewCompanyResponse(company))
}

func (h *Handler) DeleteCompany(ctx *gin.Context) {
	companyID, err := utils.GetIDParam(ctx, "id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var members int64

	if err := db.DB.Model(&models.User{}).Where("company_id = ?", companyID).Count(&members).Error; err != nil {
		internalError(ctx)
		return
	}

	if members > 0 {
		ctx.JSON(http.StatusConflict, gin.H{"error": "Company still has users"})
		return
	}

	res := db.DB.Delete(&models.Company{}, companyID)

	if res.Error != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete company"})
		return
	}

	if res.RowsAffected == 0 {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Company not found"})
		return
	}

	ctx.Status(http.StatusNoContent)
}

func companyNameTaken(name string, exceptID uint) (bool, error) {
	var count int64

	err := db.DB.Model(&models.Company{}).Where("LOWER(name) = LOWER(?) AND id != ?", name, exceptID).Count(&count).Error

	return count > 0, err
}
