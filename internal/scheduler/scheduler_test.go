package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripwise-dev/tripwise/internal/models"
	"github.com/tripwise-dev/tripwise/internal/testutil"
)

func TestPurgeExpiredInvitations(t *testing.T) {
	gdb := testutil.SetupDB(t)
	admin := testutil.CreateUser(t, "Admin", "admin@example.com", models.RoleAdmin, nil)

	accepted := time.Now().Add(-time.Hour)
	invitations := []models.Invitation{
		{Email: "expired@example.com", Token: "expired", InvitedByID: admin.ID, ExpiresAt: time.Now().Add(-time.Hour)},
		{Email: "valid@example.com", Token: "valid", InvitedByID: admin.ID, ExpiresAt: time.Now().Add(time.Hour)},
		{Email: "used@example.com", Token: "used", InvitedByID: admin.ID, ExpiresAt: time.Now().Add(-time.Hour), AcceptedAt: &accepted},
	}
	require.NoError(t, gdb.Create(&invitations).Error)

	require.NoError(t, PurgeExpiredInvitations(context.Background()))

	var tokens []string
	require.NoError(t, gdb.Model(&models.Invitation{}).Order("token").Pluck("token", &tokens).Error)
	assert.Equal(t, []string{"used", "valid"}, tokens)
}

func TestPruneReadNotifications(t *testing.T) {
	gdb := testutil.SetupDB(t)
	user := testutil.CreateUser(t, "Jane", "jane@example.com", models.RoleUser, nil)

	old := time.Now().Add(-100 * 24 * time.Hour)
	notifications := []models.Notification{
		{UserID: user.ID, Title: "old read", Message: "m", Type: models.NotificationInfo, Read: true, CreatedAt: old},
		{UserID: user.ID, Title: "old unread", Message: "m", Type: models.NotificationInfo, Read: false, CreatedAt: old},
		{UserID: user.ID, Title: "new read", Message: "m", Type: models.NotificationInfo, Read: true},
	}
	require.NoError(t, gdb.Create(&notifications).Error)

	require.NoError(t, PruneReadNotifications(0)(context.Background()))

	var count int64
	require.NoError(t, gdb.Model(&models.Notification{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)

	require.NoError(t, PruneReadNotifications(90*24*time.Hour)(context.Background()))

	var titles []string
	require.NoError(t, gdb.Model(&models.Notification{}).Order("title").Pluck("title", &titles).Error)
	assert.Equal(t, []string{"new read", "old unread"}, titles)
}

func TestScheduler_RunNowRecordsSuccessfulJobs(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	calls := 0
	require.NoError(t, s.Add("@hourly", Job{Name: "ok", Run: func(context.Context) error {
		calls++
		return nil
	}}))
	require.NoError(t, s.Add("@daily", Job{Name: "broken", Run: func(context.Context) error {
		return errors.New("boom")
	}}))

	s.RunNow()

	status := s.GetStatus()
	assert.Equal(t, 2, status["jobs"])
	assert.Equal(t, 1, calls)

	lastRun := status["last_run"].(map[string]time.Time)
	assert.Contains(t, lastRun, "ok")
	assert.NotContains(t, lastRun, "broken")
}

func TestScheduler_AddRejectsBadSchedule(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	assert.Error(t, s.Add("not a schedule", Job{Name: "x", Run: func(context.Context) error { return nil }}))
}
