package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/vnkhanh/crowdsourcing/middleware"
	"github.com/vnkhanh/crowdsourcing/models"
)

/* ========== Add question ========== */

func (h *Handler) AddQuestion(c *gin.Context) {
	s := c.MustGet(middleware.CtxSurvey).(*models.Survey)

	var req questionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid payload", "error": err.Error()})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": msg})
		return
	}

	db := h.DB.WithContext(c.Request.Context())
	var count int64
	db.Model(&models.Question{}).Where("survey_id = ? AND fieldname = ?", s.ID, req.FieldName).Count(&count)
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"message": "Duplicate fieldname " + req.FieldName})
		return
	}

	// next index = MAX(sort_order)+1, 0-based
	type nextRes struct{ Next int }
	var r nextRes
	_ = db.Model(&models.Question{}).
		Where("survey_id = ?", s.ID).
		Select("COALESCE(MAX(sort_order), -1) + 1 AS next").
		Scan(&r).Error

	q := req.model(s.ID, r.Next)
	if err := db.Create(&q).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not add question"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"question_id": q.ID, "survey_id": s.ID, "order": q.Order})
}

// questionOf loads :qid and checks it belongs to the survey in the context.
func (h *Handler) questionOf(c *gin.Context) (*models.Question, bool) {
	s := c.MustGet(middleware.CtxSurvey).(*models.Survey)
	qid, err := strconv.Atoi(c.Param("qid"))
	if err != nil || qid <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid question id"})
		return nil, false
	}
	var q models.Question
	err = h.DB.WithContext(c.Request.Context()).
		Where("id = ? AND survey_id = ?", qid, s.ID).First(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Question not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not read question"})
		return nil, false
	}
	return &q, true
}

/* ========== Update question ========== */

type updateQuestionReq struct {
	Label          *string   `json:"label"`
	HelpText       *string   `json:"help_text"`
	Required       *bool     `json:"required"`
	Options        *[]string `json:"options"`
	MapIcons       *[]string `json:"map_icons"`
	AnswerIsPublic *bool     `json:"answer_is_public"`
	UseAsFilter    *bool     `json:"use_as_filter"`
}

// UpdateQuestion leaves fieldname and option_type alone: stored answers
// depend on both.
func (h *Handler) UpdateQuestion(c *gin.Context) {
	q, ok := h.questionOf(c)
	if !ok {
		return
	}

	var req updateQuestionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid payload", "error": err.Error()})
		return
	}

	if req.Label != nil {
		q.Label = *req.Label
	}
	if req.HelpText != nil {
		q.HelpText = *req.HelpText
	}
	if req.Required != nil {
		q.Required = *req.Required
	}
	if req.Options != nil {
		q.Options = *req.Options
	}
	if req.MapIcons != nil {
		q.MapIcons = *req.MapIcons
	}
	if req.AnswerIsPublic != nil {
		q.AnswerIsPublic = *req.AnswerIsPublic
	}
	if req.UseAsFilter != nil {
		q.UseAsFilter = *req.UseAsFilter
	}

	if err := h.DB.WithContext(c.Request.Context()).Save(q).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated", "question": q})
}

/* ========== Delete question, close the gap in ordering ========== */

func (h *Handler) DeleteQuestion(c *gin.Context) {
	q, ok := h.questionOf(c)
	if !ok {
		return
	}

	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", q.ID).Delete(&models.Answer{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(q).Error; err != nil {
			return err
		}
		return tx.Model(&models.Question{}).
			Where("survey_id = ? AND sort_order > ?", q.SurveyID, q.Order).
			Update("sort_order", gorm.Expr("sort_order - 1")).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

/* ========== Reorder questions ========== */

type reorderReq struct {
	Order []uint `json:"order" binding:"required,min=1,dive,required"`
}

func (h *Handler) ReorderQuestions(c *gin.Context) {
	s := c.MustGet(middleware.CtxSurvey).(*models.Survey)

	var req reorderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid payload", "error": err.Error()})
		return
	}

	db := h.DB.WithContext(c.Request.Context())
	var count int64
	if err := db.Model(&models.Question{}).
		Where("survey_id = ? AND id IN ?", s.ID, req.Order).
		Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not validate questions"})
		return
	}
	if count != int64(len(req.Order)) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "order contains questions from another survey"})
		return
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		for idx, qID := range req.Order {
			if err := tx.Model(&models.Question{}).
				Where("id = ? AND survey_id = ?", qID, s.ID).
				Update("sort_order", idx).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Reorder failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}
