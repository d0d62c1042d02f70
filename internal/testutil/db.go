// Package testutil wires an in-memory database for package tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tripwise-dev/tripwise/db"
	"github.com/tripwise-dev/tripwise/internal/auth"
	"github.com/tripwise-dev/tripwise/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const Password = "password123"

// SetupDB points db.DB at a fresh, migrated in-memory SQLite database for
// the duration of the test.
func SetupDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())

	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	previous := db.DB
	db.DB = gdb
	require.NoError(t, db.MigrateDatabase())

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
		db.DB = previous
	})

	return gdb
}

// CreateUser stores an active user whose password is Password.
func CreateUser(t *testing.T, name, email, role string, companyID *uint) models.User {
	t.Helper()

	hash, err := auth.HashPassword(Password)
	require.NoError(t, err)

	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CompanyID:    companyID,
		Active:       true,
	}
	require.NoError(t, db.DB.Create(&user).Error)

	return user
}
