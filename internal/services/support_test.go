package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripwise-dev/tripwise/db"
	"github.com/tripwise-dev/tripwise/internal/models"
	"github.com/tripwise-dev/tripwise/internal/testutil"
)

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, uint, models.Notification) error {
	return errors.New("relay down")
}

func TestNotifier_PersistsEvenWhenDeliveryFails(t *testing.T) {
	testutil.SetupDB(t)
	user := testutil.CreateUser(t, "Ada", "ada@example.com", models.RoleUser, nil)
	n := &Notifier{Publisher: failingPublisher{}}

	created, err := n.Notify(context.Background(), user.ID, models.NotificationInfo, "Hello", "World")
	require.NoError(t, err)

	var stored models.Notification
	require.NoError(t, db.DB.First(&stored, created.ID).Error)
	assert.Equal(t, "Hello", stored.Title)
	assert.False(t, stored.Read)
}

func TestNotifyAdmins_ScopesByCompany(t *testing.T) {
	testutil.SetupDB(t)
	acme := models.Company{Name: "Acme"}
	other := models.Company{Name: "Other"}
	require.NoError(t, db.DB.Create(&acme).Error)
	require.NoError(t, db.DB.Create(&other).Error)

	acmeAdmin := testutil.CreateUser(t, "A", "a@example.com", models.RoleAdmin, &acme.ID)
	testutil.CreateUser(t, "B", "b@example.com", models.RoleAdmin, &other.ID)
	globalAdmin := testutil.CreateUser(t, "C", "c@example.com", models.RoleAdmin, nil)
	testutil.CreateUser(t, "D", "d@example.com", models.RoleUser, &acme.ID)

	pub := &recordingPublisher{}
	n := &Notifier{Publisher: pub}

	require.NoError(t, n.NotifyAdmins(context.Background(), 0, &acme.ID, models.NotificationInfo, "t", "m"))

	var got []uint
	for _, p := range pub.pushes {
		got = append(got, p.userID)
	}
	assert.ElementsMatch(t, []uint{acmeAdmin.ID, globalAdmin.ID}, got)

	pub.pushes = nil
	require.NoError(t, n.NotifyAdmins(context.Background(), acmeAdmin.ID, &acme.ID, models.NotificationInfo, "t", "m"))
	require.Len(t, pub.pushes, 1)
	assert.Equal(t, globalAdmin.ID, pub.pushes[0].userID)
}

func TestReceiptStore(t *testing.T) {
	store, err := NewReceiptStore(t.TempDir())
	require.NoError(t, err)

	name, ok := store.NewName("image/JPEG; charset=binary")
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(name, ".jpg"))

	_, ok = store.NewName("text/html")
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(store.Path(name), []byte("jpeg"), 0o600))
	data, err := store.Read(name)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))

	assert.Equal(t, store.Path(name), store.Path("../../"+name))

	require.NoError(t, store.Remove(name))
	require.NoError(t, store.Remove(name))
}

func TestInvitationMail(t *testing.T) {
	subject, body := InvitationMail("Grace", "Acme", "https://app.example.com/register?token=abc")

	assert.Equal(t, "You have been invited to Tripwise", subject)
	assert.Contains(t, body, "Grace invited you to Tripwise for Acme.")
	assert.Contains(t, body, "https://app.example.com/register?token=abc")
}

func TestLogMailer(t *testing.T) {
	assert.NoError(t, LogMailer{}.Send(context.Background(), "a@example.com", "s", "line one\nline two"))
}

func TestWebhookSender_FormSubmitted(t *testing.T) {
	testutil.SetupDB(t)

	var got SlackWebhookRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	company := models.Company{Name: "Acme", SlackWebhook: srv.URL}
	require.NoError(t, db.DB.Create(&company).Error)
	user := testutil.CreateUser(t, "Ada", "ada@example.com", models.RoleUser, &company.ID)

	form := *draftForm(user.ID)
	form.TotalAmount = 262.4

	NewWebhookSender().FormSubmitted(context.Background(), user, form)

	assert.Equal(t, Username, got.Username)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "Ada submitted a pre-travel form", got.Attachments[0].Title)
	assert.Equal(t, "Company: Acme", got.Attachments[0].Footer)
}
