package controllers

import (
	"net/http"
	"time"

	"debatehub/services"

	"github.com/gin-gonic/gin"
)

// SweepHandler runs one expiry sweep and reports its summary. The caller is
// an external cron dispatcher; re-firing is harmless because every transition
// re-checks its precondition.
func SweepHandler(c *gin.Context) {
	result := services.Sweep().SweepOnce(c.Request.Context(), time.Now())
	c.JSON(http.StatusOK, result)
}

// RespondHandler runs one AI-turn pass and reports its summary
func RespondHandler(c *gin.Context) {
	result := services.Responder().RespondOnce(c.Request.Context(), time.Now())
	c.JSON(http.StatusOK, result)
}

// AppealsHandler resolves pending appeals and reports its summary
func AppealsHandler(c *gin.Context) {
	result := services.Appeals().ProcessOnce(c.Request.Context(), time.Now())
	c.JSON(http.StatusOK, result)
}
