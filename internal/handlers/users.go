package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tripwise-dev/tripwise/db"
	"github.com/tripwise-dev/tripwise/internal/logger"
	"github.com/tripwise-dev/tripwise/internal/models"
	"github.com/tripwise-dev/tripwise/internal/types"
	"github.com/tripwise-dev/tripwise/internal/utils"
	"gorm.io/gorm"
)

// AdminUpdateUserRequest changes role, company or activation of a user.
// ClearCompany detaches the user from any company.
type AdminUpdateUserRequest struct {
	Role         *string `json:"role" binding:"omitempty,oneof=user admin"`
	CompanyID    *uint   `json:"companyId"`
	Active       *bool   `json:"active"`
	ClearCompany bool    `json:"clearCompany"`
}

// scopedUsers restricts a users query to the admin's company. Admins
// without a company manage everyone.
func scopedUsers(ctx *gin.Context) *gorm.DB {
	query := db.DB.WithContext(ctx.Request.Context()).Model(&models.User{})

	if admin, err := utils.GetCurrentUser(ctx); err == nil && admin.CompanyID != nil {
		query = query.Where("company_id = ?", *admin.CompanyID)
	}

	return query
}

func (h *Handler) ListUsers(ctx *gin.Context) {
	limit, offset := utils.GetPagination(ctx)

	var users []models.User

	if err := scopedUsers(ctx).Order("name").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		logger.WithError(err).Error("Failed to list users")
		internalError(ctx)
		return
	}

	response := make([]types.UserResponse, 0, len(users))
	for _, u := range users {
		response = append(response, types.NewUserResponse(u))
	}

	ctx.JSON(http.StatusOK, response)
}

func (h *Handler) AdminUpdateUser(ctx *gin.Context) {
	userID, err := utils.GetIDParam(ctx, "id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req AdminUpdateUserRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var user models.User

	if err := scopedUsers(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		} else {
			internalError(ctx)
		}
		return
	}

	currentID, _ := utils.GetCurrentUserID(ctx)
	updates := make(map[string]interface{})

	if req.Role != nil {
		if user.ID == currentID && *req.Role != models.RoleAdmin {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "You cannot remove your own administrator role"})
			return
		}
		updates["role"] = *req.Role
	}

	if req.Active != nil {
		if user.ID == currentID && !*req.Active {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "You cannot deactivate your own account"})
			return
		}
		updates["active"] = *req.Active
	}

	if req.ClearCompany {
		updates["company_id"] = nil
	} else if req.CompanyID != nil {
		if err := db.DB.First(&models.Company{}, *req.CompanyID).Error; err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Company not found"})
			return
		}
		updates["company_id"] = *req.CompanyID
	}

	if len(updates) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "No valid fields to update"})
		return
	}

	if err := db.DB.Model(&user).Updates(updates).Error; err != nil {
		logger.WithError(err).Error("Failed to update user")
		internalError(ctx)
		return
	}

	if err := db.DB.First(&user, user.ID).Error; err != nil {
		internalError(ctx)
		return
	}

	ctx.JSON(http.StatusOK, types.NewUserResponse(user))
}

func (h *Handler) DeleteUser(ctx *gin.Context) {
	userID, err := utils.GetIDParam(ctx, "id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if currentID, _ := utils.GetCurrentUserID(ctx); currentID == userID {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "You cannot delete your own account"})
		return
	}

	var user models.User

	if err := scopedUsers(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		} else {
			internalError(ctx)
		}
		return
	}

	if err := db.DB.Delete(&user).Error; err != nil {
		logger.WithError(err).Error("Failed to delete user")
		internalError(ctx)
		return
	}

	ctx.Status(http.StatusNoContent)
}
