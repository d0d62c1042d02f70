package utils

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/tripwise-dev/tripwise/db"
	"github.com/tripwise-dev/tripwise/internal/middleware"
	"github.com/tripwise-dev/tripwise/internal/models"
	"github.com/tripwise-dev/tripwise/internal/types"
)

func GetCurrentUser(ctx *gin.Context) (middleware.AuthenticatedUser, error) {
	user, exists := ctx.Get(types.ContextUserKey)

	if !exists {
		return middleware.AuthenticatedUser{}, fmt.Errorf("User not authenticated")
	}

	authenticatedUser, ok := user.(middleware.AuthenticatedUser)

	if !ok {
		return middleware.AuthenticatedUser{}, fmt.Errorf("Invalid user type in context")
	}

	return authenticatedUser, nil
}

func GetCurrentUserID(ctx *gin.Context) (uint, error) {
	user, err := GetCurrentUser(ctx)

	if err != nil {
		return 0, err
	}

	return user.ID, nil
}

// LoadCurrentUser fetches the full database record of the caller.
func LoadCurrentUser(ctx *gin.Context) (models.User, error) {
	userID, err := GetCurrentUserID(ctx)

	if err != nil {
		return models.User{}, err
	}

	var user models.User

	if err := db.DB.WithContext(ctx.Request.Context()).First(&user, userID).Error; err != nil {
		return models.User{}, err
	}

	return user, nil
}
