package db

import (
	"context"
	"time"

	"github.com/tripwise-dev/tripwise/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func ConnectDatabase(dsn string) error {
	var err error

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})

	if err != nil {
		return err
	}

	return nil
}

func MigrateDatabase() error {
	models := []interface{}{
		&models.Company{},
		&models.User{},
		&models.Invitation{},
		&models.Vehicle{},
		&models.TravelForm{},
		&models.Expense{},
		&models.Receipt{},
		&models.MileageEntry{},
		&models.Notification{},
	}

	return DB.AutoMigrate(models...)
}

// Ping checks that the database answers within timeout.
func Ping(ctx context.Context, timeout time.Duration) error {
	sqlDB, err := DB.DB()

	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return sqlDB.PingContext(ctx)
}
