package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tripwise-dev/tripwise/internal/allowance"
	"github.com/tripwise-dev/tripwise/internal/config"
	"github.com/tripwise-dev/tripwise/internal/notify"
	"github.com/tripwise-dev/tripwise/internal/services"
	"github.com/tripwise-dev/tripwise/internal/types"
)

// Handler carries the collaborators shared by the API endpoints.
type Handler struct {
	Config   *config.Config
	Hub      *notify.Hub
	Notifier *services.Notifier
	Forms    *services.FormService
	Mailer   services.Mailer
	Receipts *services.ReceiptStore
	AI       *services.OpenAIClient
}

// Rates returns the configured allowance rates.
func (h *Handler) Rates() allowance.Rates {
	return allowance.Rates{Daily: h.Config.DailyAllowance, PerKm: h.Config.RatePerKm}
}

func (h *Handler) setSessionCookie(ctx *gin.Context, token string, maxAge int) {
	sameSite := http.SameSiteNoneMode
	if !h.Config.CookieSecure {
		sameSite = http.SameSiteLaxMode
	}

	http.SetCookie(ctx.Writer, &http.Cookie{
		Name:     types.SessionCookie,
		Value:    token,
		Path:     "/",
		Domain:   h.Config.CookieDomain,
		MaxAge:   maxAge,
		Secure:   h.Config.CookieSecure,
		HttpOnly: true,
		SameSite: sameSite,
	})
}

func internalError(ctx *gin.Context) {
	ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
