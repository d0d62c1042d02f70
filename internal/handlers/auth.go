package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tripwise-dev/tripwise/db"
	"github.com/tripwise-dev/tripwise/internal/auth"
	"github.com/tripwise-dev/tripwise/internal/logger"
	"github.com/tripwise-dev/tripwise/internal/models"
	"github.com/tripwise-dev/tripwise/internal/types"
	"github.com/tripwise-dev/tripwise/internal/utils"
	"gorm.io/gorm"
)

type CreateUserRequest struct {
	Name            string `json:"name" binding:"required,max=120"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=8"`
	InvitationToken string `json:"invitationToken"`
}

type LoginUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type UpdateUserRequest struct {
	Name            string `json:"name" binding:"max=120"`
	Email           string `json:"email" binding:"omitempty,email"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword" binding:"omitempty,min=8"`
}

var errInvitationInvalid = errors.New("invitation is invalid or expired")

// CreateUser registers an account. The very first account becomes an
// administrator; every later one needs a valid invitation for its email.
func (h *Handler) CreateUser(ctx *gin.Context) {
	var req CreateUserRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	passwordHash, err := auth.HashPassword(req.Password)

	if err != nil {
		logger.WithError(err).Error("Failed to hash password")
		internalError(ctx)
		return
	}

	newUser := models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		PasswordHash: passwordHash,
		Role:         models.RoleUser,
		Active:       true,
	}

	err = db.DB.WithContext(ctx.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var existing int64

		if err := tx.Model(&models.User{}).Where("email = ?", req.Email).Count(&existing).Error; err != nil {
			return err
		}

		if existing > 0 {
			return gorm.ErrDuplicatedKey
		}

		var users int64

		if err := tx.Model(&models.User{}).Count(&users).Error; err != nil {
			return err
		}

		if users == 0 {
			newUser.Role = models.RoleAdmin
			return tx.Create(&newUser).Error
		}

		var invitation models.Invitation

		err := tx.Where("token = ?", req.InvitationToken).First(&invitation).Error
		if req.InvitationToken == "" || errors.Is(err, gorm.ErrRecordNotFound) {
			return errInvitationInvalid
		}
		if err != nil {
			return err
		}

		if !invitation.Usable(time.Now()) || !strings.EqualFold(invitation.Email, req.Email) {
			return errInvitationInvalid
		}

		newUser.Role = invitation.Role
		newUser.CompanyID = invitation.CompanyID

		if err := tx.Create(&newUser).Error; err != nil {
			return err
		}

		return tx.Model(&invitation).Update("accepted_at", time.Now()).Error
	})

	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Email already exists"})
		return
	case errors.Is(err, errInvitationInvalid):
		ctx.JSON(http.StatusForbidden, gin.H{"error": "A valid invitation is required to register"})
		return
	case err != nil:
		logger.WithError(err).Error("Failed to create user")
		internalError(ctx)
		return
	}

	token, err := auth.GenerateJWT(newUser.ID, newUser.Email)

	if err != nil {
		logger.WithError(err).Error("Failed to generate JWT")
		internalError(ctx)
		return
	}

	h.setSessionCookie(ctx, token, int(auth.TokenTTL.Seconds()))

	logger.WithFields(logrus.Fields{"user_id": newUser.ID, "role": newUser.Role}).Info("User registered")

	ctx.JSON(http.StatusCreated, gin.H{"user": types.NewUserResponse(newUser), "token": token})
}

func (h *Handler) LoginUser(ctx *gin.Context) {
	var req LoginUserRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var existingUser models.User

	err := db.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&existingUser).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email or password"})
			return
		}
		logger.WithError(err).Error("Database error when fetching user")
		internalError(ctx)
		return
	}

	if !auth.CheckPassword(existingUser.PasswordHash, req.Password) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email or password"})
		return
	}

	if !existingUser.Active {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Account is deactivated"})
		return
	}

	token, err := auth.GenerateJWT(existingUser.ID, existingUser.Email)

	if err != nil {
		logger.WithError(err).Error("Failed to generate JWT")
		internalError(ctx)
		return
	}

	h.setSessionCookie(ctx, token, int(auth.TokenTTL.Seconds()))

	ctx.JSON(http.StatusOK, gin.H{"user": types.NewUserResponse(existingUser), "token": token})
}

func (h *Handler) Me(ctx *gin.Context) {
	user, err := utils.LoadCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": types.NewUserResponse(user)})
}

func (h *Handler) LogoutUser(ctx *gin.Context) {
	h.setSessionCookie(ctx, "", -1)

	ctx.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h *Handler) UpdateUser(ctx *gin.Context) {
	dbUser, err := utils.LoadCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var updateReq UpdateUserRequest

	if err := ctx.ShouldBindJSON(&updateReq); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	updates := make(map[string]interface{})

	if name := strings.TrimSpace(updateReq.Name); name != "" {
		updates["name"] = name
	}

	if updateReq.Email != "" {
		newEmail := strings.ToLower(strings.TrimSpace(updateReq.Email))

		if newEmail != dbUser.Email {
			var taken int64

			if err := db.DB.Model(&models.User{}).Where("email = ? AND id != ?", newEmail, dbUser.ID).Count(&taken).Error; err != nil {
				logger.WithError(err).Error("Database error when checking existing email")
				internalError(ctx)
				return
			}

			if taken > 0 {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "Email already exists"})
				return
			}

			updates["email"] = newEmail
		}
	}

	if updateReq.NewPassword != "" {
		if updateReq.CurrentPassword == "" {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Current password is required to change password"})
			return
		}

		if !auth.CheckPassword(dbUser.PasswordHash, updateReq.CurrentPassword) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Current password is incorrect"})
			return
		}

		passwordHash, err := auth.HashPassword(updateReq.NewPassword)

		if err != nil {
			logger.WithError(err).Error("Failed to hash new password")
			internalError(ctx)
			return
		}

		updates["password_hash"] = passwordHash
	}

	if len(updates) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "No valid fields to update"})
		return
	}

	if err := db.DB.Model(&dbUser).Updates(updates).Error; err != nil {
		logger.WithError(err).Error("Failed to update user")
		internalError(ctx)
		return
	}

	if err := db.DB.First(&dbUser, dbUser.ID).Error; err != nil {
		logger.WithError(err).Error("Failed to refresh user data")
		internalError(ctx)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "User updated successfully",
		"user":    types.NewUserResponse(dbUser),
	})
}
