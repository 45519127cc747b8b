package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/vnkhanh/crowdsourcing/middleware"
	"github.com/vnkhanh/crowdsourcing/models"
)

func answersJSON(answers []models.Answer) []gin.H {
	out := make([]gin.H, 0, len(answers))
	for i := range answers {
		a := &answers[i]
		row := gin.H{"question_id": a.QuestionID, "value": a.JSONValue()}
		if a.Question != nil {
			row["fieldname"] = a.Question.FieldName
			row["label"] = a.Question.Label
		}
		out = append(out, row)
	}
	return out
}

func submissionJSON(s *models.Submission) gin.H {
	out := gin.H{
		"id":           s.ID,
		"survey_id":    s.SurveyID,
		"user_id":      s.UserID,
		"ip_address":   s.IPAddress,
		"submitted_at": s.SubmittedAt,
		"is_public":    s.IsPublic,
		"featured":     s.Featured,
		"answers":      answersJSON(s.Answers),
	}
	if s.User != nil {
		out["user"] = s.User.Username
	}
	return out
}

// GET /api/admin/surveys/:id/submissions?page=1&limit=10&start_date=2025-09-01&end_date=2025-09-21&is_public=false
func (h *Handler) ListSubmissions(c *gin.Context) {
	s := c.MustGet(middleware.CtxSurvey).(*models.Survey)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	offset := (page - 1) * limit

	query := h.DB.WithContext(c.Request.Context()).Model(&models.Submission{}).
		Where("survey_id = ?", s.ID)

	if v := c.Query("start_date"); v != "" {
		if start, err := time.Parse("2006-01-02", v); err == nil {
			query = query.Where("submitted_at >= ?", start)
		}
	}
	if v := c.Query("end_date"); v != "" {
		if end, err := time.Parse("2006-01-02", v); err == nil {
			// end_date is inclusive
			query = query.Where("submitted_at < ?", end.Add(24*time.Hour))
		}
	}
	if v := c.Query("is_public"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			query = query.Where("is_public = ?", b)
		}
	}

	query = query.Session(&gorm.Session{})
	var total int64
	query.Count(&total)

	var submissions []models.Submission
	if err := query.
		Preload("User").
		Preload("Answers.Question").
		Order("submitted_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&submissions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not list submissions"})
		return
	}

	resp := make([]gin.H, 0, len(submissions))
	for i := range submissions {
		resp = append(resp, submissionJSON(&submissions[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"survey_id":   s.ID,
		"page":        page,
		"limit":       limit,
		"total":       total,
		"submissions": resp,
	})
}

func (h *Handler) submissionOf(c *gin.Context) (*models.Submission, bool) {
	s := c.MustGet(middleware.CtxSurvey).(*models.Survey)
	subID, err := strconv.Atoi(c.Param("sub_id"))
	if err != nil || subID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid submission id"})
		return nil, false
	}
	var sub models.Submission
	err = h.DB.WithContext(c.Request.Context()).
		Preload("User").
		Preload("Answers.Question").
		Where("id = ? AND survey_id = ?", subID, s.ID).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Submission not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not read submission"})
		return nil, false
	}
	return &sub, true
}

// GET /api/admin/surveys/:id/submissions/:sub_id
func (h *Handler) GetSubmissionDetail(c *gin.Context) {
	sub, ok := h.submissionOf(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, submissionJSON(sub))
}

type moderateReq struct {
	IsPublic *bool `json:"is_public"`
	Featured *bool `json:"featured"`
}

// PATCH /api/admin/surveys/:id/submissions/:sub_id
func (h *Handler) ModerateSubmission(c *gin.Context) {
	sub, ok := h.submissionOf(c)
	if !ok {
		return
	}
	var req moderateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid payload", "error": err.Error()})
		return
	}
	updates := map[string]interface{}{}
	if req.IsPublic != nil {
		updates["is_public"] = *req.IsPublic
	}
	if req.Featured != nil {
		updates["featured"] = *req.Featured
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Nothing to update"})
		return
	}
	if err := h.DB.WithContext(c.Request.Context()).Model(&models.Submission{}).
		Where("id = ?", sub.ID).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

// DELETE /api/admin/surveys/:id/submissions/:sub_id
func (h *Handler) DeleteSubmission(c *gin.Context) {
	sub, ok := h.submissionOf(c)
	if !ok {
		return
	}
	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("submission_id = ?", sub.ID).Delete(&models.Answer{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Submission{}, sub.ID).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}
