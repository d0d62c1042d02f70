package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Default allowed origins for development
var defaultOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

type Config struct {
	Port           string   `env:"PORT" envDefault:"3000"`
	DatabaseURL    string   `env:"DATABASE_URL,required,notEmpty"`
	JWTSecret      string   `env:"JWT_SECRET,required,notEmpty"`
	CookieDomain   string   `env:"COOKIE_DOMAIN"`
	CookieSecure   bool     `env:"COOKIE_SECURE" envDefault:"true"`
	ClientURL      string   `env:"CLIENT_URL"`
	ExtraOrigins   []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	UploadDir      string   `env:"UPLOAD_DIR" envDefault:"./uploads"`
	MaxUploadMB    int64    `env:"MAX_UPLOAD_MB" envDefault:"10"`
	DailyAllowance float64  `env:"DAILY_ALLOWANCE" envDefault:"35"`
	RatePerKm      float64  `env:"RATE_PER_KM" envDefault:"0.3"`

	InvitationTTL       time.Duration `env:"INVITATION_TTL" envDefault:"168h"`
	MaintenanceSchedule string        `env:"MAINTENANCE_SCHEDULE" envDefault:"@hourly"`

	// NotificationRetention of zero keeps notifications forever.
	NotificationRetention time.Duration `env:"NOTIFICATION_RETENTION" envDefault:"0s"`

	RedisURL     string `env:"REDIS_URL"`
	RedisChannel string `env:"REDIS_CHANNEL" envDefault:"tripwise:notifications"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	MailFrom     string `env:"MAIL_FROM" envDefault:"no-reply@tripwise.local"`

	OpenAIKey             string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL         string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIVisionModel     string `env:"OPENAI_VISION_MODEL" envDefault:"gpt-4o-mini"`
	OpenAITranscribeModel string `env:"OPENAI_TRANSCRIBE_MODEL" envDefault:"whisper-1"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	AuthRateLimit float64 `env:"AUTH_RATE_LIMIT" envDefault:"5"`
	AuthRateBurst int     `env:"AUTH_RATE_BURST" envDefault:"10"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	return Parse()
}

// Parse reads the configuration from the process environment only.
func Parse() (*Config, error) {
	cfg := Config{}

	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}

	if cfg.MaxUploadMB <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", cfg.MaxUploadMB)
	}

	return &cfg, nil
}

func (c *Config) AllowedOrigins() []string {
	origins := make([]string, len(defaultOrigins))
	copy(origins, defaultOrigins)

	if c.ClientURL != "" {
		origins = append(origins, c.ClientURL)
	}

	for _, origin := range c.ExtraOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			origins = append(origins, trimmed)
		}
	}

	return origins
}

func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

func (c *Config) MailEnabled() bool {
	return c.SMTPHost != ""
}

func (c *Config) OpenAIEnabled() bool {
	return c.OpenAIKey != ""
}
