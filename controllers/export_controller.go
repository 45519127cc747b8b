package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/vnkhanh/crowdsourcing/middleware"
	"github.com/vnkhanh/crowdsourcing/models"
	"github.com/vnkhanh/crowdsourcing/services"
)

type exportReq struct {
	Format    string  `json:"format"` // csv | xlsx
	RangeFrom *string `json:"range_from,omitempty"`
	RangeTo   *string `json:"range_to,omitempty"`
}

// POST /api/admin/surveys/:id/export
func (h *Handler) CreateExport(c *gin.Context) {
	s := c.MustGet(middleware.CtxSurvey).(*models.Survey)

	var req exportReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid payload"})
		return
	}

	fromPtr, err := parseRangeBound("range_from", req.RangeFrom)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	toPtr, err := parseRangeBound("range_to", req.RangeTo)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	job, err := h.Exporter.Start(c.Request.Context(), s.ID, req.Format, fromPtr, toPtr)
	if errors.Is(err, services.ErrUnknownFormat) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "format must be csv or xlsx"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not start export"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id": job.JobID,
		"status": job.Status,
	})
}

// parseRangeBound reads an optional RFC3339 timestamp. Blank means unbounded.
func parseRangeBound(key string, v *string) (*time.Time, error) {
	if v == nil || *v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *v)
	if err != nil {
		return nil, fmt.Errorf("%s must be an RFC3339 timestamp such as 2006-01-02T15:04:05Z", key)
	}
	return &t, nil
}

// GET /api/admin/exports/:job_id
func (h *Handler) GetExport(c *gin.Context) {
	var job models.ExportJob
	if err := h.DB.WithContext(c.Request.Context()).First(&job, "job_id = ?", c.Param("job_id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not read job"})
		return
	}

	u, _ := middleware.CurrentUser(c)
	if !u.IsAdmin {
		var owned int64
		h.DB.WithContext(c.Request.Context()).Model(&models.Survey{}).
			Where("id = ? AND created_by_id = ?", job.SurveyID, u.ID).Count(&owned)
		if owned == 0 {
			c.JSON(http.StatusForbidden, gin.H{"message": "You cannot read this export"})
			return
		}
	}

	if job.Status == models.ExportDone && job.FilePath != nil {
		c.FileAttachment(*job.FilePath, filepath.Base(*job.FilePath))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id": job.JobID,
		"status": job.Status,
		"error":  job.ErrorMsg,
	})
}
