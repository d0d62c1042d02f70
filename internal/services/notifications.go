package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/tripwise-dev/tripwise/db"
	"github.com/tripwise-dev/tripwise/internal/logger"
	"github.com/tripwise-dev/tripwise/internal/models"
	"github.com/tripwise-dev/tripwise/internal/notify"
)

// Notifier persists notifications and then hands them to live delivery.
// A delivery failure never undoes or fails the write.
type Notifier struct {
	Publisher notify.Publisher
}

func (n *Notifier) Notify(ctx context.Context, userID uint, kind, title, message string) (*models.Notification, error) {
	notification := models.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    kind,
	}

	if err := db.DB.WithContext(ctx).Create(&notification).Error; err != nil {
		return nil, fmt.Errorf("persist notification: %w", err)
	}

	n.publish(ctx, notification)

	return &notification, nil
}

// NotifyAdmins notifies every active admin except actorID, optionally
// restricted to a company. Admins without a company see events from all
// companies.
func (n *Notifier) NotifyAdmins(ctx context.Context, actorID uint, companyID *uint, kind, title, message string) error {
	var admins []models.User

	query := db.DB.WithContext(ctx).Where("role = ? AND active = ? AND id <> ?", models.RoleAdmin, true, actorID)
	if companyID != nil {
		query = query.Where("company_id = ? OR company_id IS NULL", *companyID)
	}

	if err := query.Find(&admins).Error; err != nil {
		return fmt.Errorf("load admins: %w", err)
	}

	for _, admin := range admins {
		if _, err := n.Notify(ctx, admin.ID, kind, title, message); err != nil {
			return err
		}
	}

	return nil
}

func (n *Notifier) publish(ctx context.Context, notification models.Notification) {
	if n.Publisher == nil {
		return
	}

	if err := n.Publisher.Publish(ctx, notification.UserID, notification); err != nil {
		logger.WithFields(logrus.Fields{
			"user_id":         notification.UserID,
			"notification_id": notification.ID,
		}).WithError(err).Warn("Live notification delivery failed")
	}
}
