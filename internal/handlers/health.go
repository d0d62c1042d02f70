package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tripwise-dev/tripwise/db"
	"github.com/tripwise-dev/tripwise/internal/logger"
)

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"message":   "Tripwise is running",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// ReadyCheck reports whether the database is reachable.
func ReadyCheck(c *gin.Context) {
	if err := db.Ping(c.Request.Context(), 2*time.Second); err != nil {
		logger.WithError(err).Warn("Readiness check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "Database unreachable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
