package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tripwise-dev/tripwise/db"
	"github.com/tripwise-dev/tripwise/internal/logger"
	"github.com/tripwise-dev/tripwise/internal/models"
	"github.com/tripwise-dev/tripwise/internal/services"
	"github.com/tripwise-dev/tripwise/internal/types"
	"github.com/tripwise-dev/tripwise/internal/utils"
	"gorm.io/gorm"
)

type CreateInvitationRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Role      string `json:"role" binding:"omitempty,oneof=user admin"`
	CompanyID *uint  `json:"companyId"`
}

func (h *Handler) CreateInvitation(ctx *gin.Context) {
	var req CreateInvitationRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	inviter, err := utils.LoadCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var registered int64

	if err := db.DB.Model(&models.User{}).Where("email = ?", email).Count(&registered).Error; err != nil {
		internalError(ctx)
		return
	}

	if registered > 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "A user with this email already exists"})
		return
	}

	// Admins bound to a company can only invite into it.
	companyID := req.CompanyID
	if inviter.CompanyID != nil {
		companyID = inviter.CompanyID
	}

	var company models.Company

	if companyID != nil {
		if err := db.DB.First(&company, *companyID).Error; err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Company not found"})
			return
		}
	}

	role := req.Role
	if role == "" {
		role = models.RoleUser
	}

	invitation := models.Invitation{
		Email:       email,
		Token:       uuid.NewString(),
		Role:        role,
		CompanyID:   companyID,
		InvitedByID: inviter.ID,
		ExpiresAt:   time.Now().Add(h.Config.InvitationTTL),
	}

	if err := db.DB.Create(&invitation).Error; err != nil {
		logger.WithError(err).Error("Failed to create invitation")
		internalError(ctx)
		return
	}

	subject, body := services.InvitationMail(inviter.Name, company.Name, h.invitationLink(invitation.Token))

	if err := h.Mailer.Send(ctx.Request.Context(), invitation.Email, subject, body); err != nil {
		logger.WithFields(logrus.Fields{"invitation_id": invitation.ID}).WithError(err).Warn("Failed to send invitation mail")
	}

	ctx.JSON(http.StatusCreated, types.NewInvitationResponse(invitation, true))
}

func (h *Handler) invitationLink(token string) string {
	base := strings.TrimRight(h.Config.ClientURL, "/")
	return base + "/register?invitation=" + url.QueryEscape(token)
}

func (h *Handler) ListInvitations(ctx *gin.Context) {
	query := db.DB.Model(&models.Invitation{}).Order("created_at DESC")

	if admin, err := utils.GetCurrentUser(ctx); err == nil && admin.CompanyID != nil {
		query = query.Where("company_id = ?", *admin.CompanyID)
	}

	if ctx.Query("pending") == "true" {
		query = query.Where("accepted_at IS NULL AND expires_at > ?", time.Now())
	}

	var invitations []models.Invitation

	if err := query.Find(&invitations).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve invitations"})
		return
	}

	response := make([]types.InvitationResponse, 0, len(invitations))
	for _, invitation := range invitations {
		response = append(response, types.NewInvitationResponse(invitation, false))
	}

	ctx.JSON(http.StatusOK, response)
}

func (h *Handler) RevokeInvitation(ctx *gin.Context) {
	invitationID, err := utils.GetIDParam(ctx, "id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	query := db.DB.Where("accepted_at IS NULL")

	if admin, err := utils.GetCurrentUser(ctx); err == nil && admin.CompanyID != nil {
		query = query.Where("company_id = ?", *admin.CompanyID)
	}

	res := query.Delete(&models.Invitation{}, invitationID)

	if res.Error != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to revoke invitation"})
		return
	}

	if res.RowsAffected == 0 {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Invitation not found"})
		return
	}

	ctx.Status(http.StatusNoContent)
}

// GetInvitation lets an invitee preview an invitation before registering.
func (h *Handler) GetInvitation(ctx *gin.Context) {
	var invitation models.Invitation

	err := db.DB.Preload("Company").Where("token = ?", ctx.Param("token")).First(&invitation).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Invitation not found"})
		} else {
			internalError(ctx)
		}
		return
	}

	if !invitation.Usable(time.Now()) {
		ctx.JSON(http.StatusGone, gin.H{"error": "Invitation has expired or was already used"})
		return
	}

	companyName := ""
	if invitation.Company != nil {
		companyName = invitation.Company.Name
	}

	ctx.JSON(http.StatusOK, gin.H{
		"email":     invitation.Email,
		"role":      invitation.Role,
		"company":   companyName,
		"expiresAt": invitation.ExpiresAt,
	})
}
