package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/tripwise")
	t.Setenv("JWT_SECRET", "secret")
}

func TestParse_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, 35.0, cfg.DailyAllowance)
	assert.Equal(t, 0.3, cfg.RatePerKm)
	assert.Equal(t, 168*time.Hour, cfg.InvitationTTL)
	assert.Zero(t, cfg.NotificationRetention)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes())
	assert.False(t, cfg.MailEnabled())
	assert.False(t, cfg.OpenAIEnabled())
}

func TestParse_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Parse()

	assert.Error(t, err)
}

func TestParse_RejectsNonPositiveUploadLimit(t *testing.T) {
	setRequired(t)
	t.Setenv("MAX_UPLOAD_MB", "0")

	_, err := Parse()

	assert.Error(t, err)
}

func TestAllowedOrigins(t *testing.T) {
	setRequired(t)
	t.Setenv("CLIENT_URL", "https://app.example.com")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"http://localhost:3000",
		"http://localhost:5173",
		"https://app.example.com",
		"https://a.example.com",
		"https://b.example.com",
	}, cfg.AllowedOrigins())
}
