package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/crowdsourcing/logger"
	"github.com/vnkhanh/crowdsourcing/models"
)

// GET /health pings the database and reports how many surveys are live.
func (h *Handler) HealthCheck(c *gin.Context) {
	resp := gin.H{"status": "ok", "db": "ok"}

	sqlDB, err := h.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		logger.WithError(err).Error("health check: database unreachable")
		resp["status"] = "degraded"
		resp["db"] = "unreachable"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}

	var live int64
	h.DB.WithContext(c.Request.Context()).Model(&models.Survey{}).
		Where("is_published = ?", true).Count(&live)
	resp["published_surveys"] = live
	c.JSON(http.StatusOK, resp)
}
