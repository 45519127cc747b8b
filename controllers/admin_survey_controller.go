package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/vnkhanh/crowdsourcing/middleware"
	"github.com/vnkhanh/crowdsourcing/models"
	"github.com/vnkhanh/crowdsourcing/services"
	"github.com/vnkhanh/crowdsourcing/utils"
)

func orderedQuestions(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC, id ASC")
}

/* ========== Create survey ========== */

type questionReq struct {
	FieldName      string   `json:"fieldname" binding:"required"`
	Label          string   `json:"label" binding:"required"`
	HelpText       string   `json:"help_text"`
	Required       bool     `json:"required"`
	OptionType     string   `json:"option_type" binding:"required"`
	Options        []string `json:"options"`
	MapIcons       []string `json:"map_icons"`
	AnswerIsPublic *bool    `json:"answer_is_public"`
	UseAsFilter    bool     `json:"use_as_filter"`
}

// validate returns a client message, "" when the question is acceptable.
func (q *questionReq) validate() string {
	if !utils.ValidateFieldName(q.FieldName) {
		return fmt.Sprintf("Invalid fieldname %q", q.FieldName)
	}
	if !models.IsOptionType(q.OptionType) {
		return fmt.Sprintf("Unknown option_type %q. Valid options are (%s)", q.OptionType, strings.Join(models.OptionTypes, ", "))
	}
	needsOptions := map[string]bool{
		models.OptionSelect: true, models.OptionChoice: true,
		models.OptionNumericSelect: true, models.OptionNumericChoice: true,
		models.OptionBoolList: true,
	}
	if needsOptions[q.OptionType] && len(q.Options) == 0 {
		return fmt.Sprintf("Question %s needs options", q.FieldName)
	}
	return ""
}

func (q *questionReq) model(surveyID uint, order int) models.Question {
	public := true
	if q.AnswerIsPublic != nil {
		public = *q.AnswerIsPublic
	}
	return models.Question{
		SurveyID:       surveyID,
		FieldName:      q.FieldName,
		Label:          q.Label,
		HelpText:       q.HelpText,
		Required:       q.Required,
		Order:          order,
		OptionType:     q.OptionType,
		Options:        q.Options,
		MapIcons:       q.MapIcons,
		AnswerIsPublic: public,
		UseAsFilter:    q.UseAsFilter,
	}
}

type createSurveyReq struct {
	Title                    string        `json:"title" binding:"required,min=1"`
	Slug                     string        `json:"slug" binding:"required"`
	Tease                    string        `json:"tease"`
	Description              string        `json:"description"`
	Thanks                   string        `json:"thanks"`
	IsPublished              bool          `json:"is_published"`
	StartsAt                 *time.Time    `json:"starts_at"`
	EndsAt                   *time.Time    `json:"ends_at"`
	RequireLogin             bool          `json:"require_login"`
	AllowMultipleSubmissions bool          `json:"allow_multiple_submissions"`
	ModerateSubmissions      bool          `json:"moderate_submissions"`
	ArchivePolicy            string        `json:"archive_policy"`
	Email                    string        `json:"email"`
	Questions                []questionReq `json:"questions"`
}

func validArchivePolicy(p string) bool {
	return p == models.ArchiveImmediate || p == models.ArchivePostClose || p == models.ArchiveNever
}

func (h *Handler) CreateSurvey(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)

	var req createSurveyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid payload", "error": err.Error()})
		return
	}
	if !utils.ValidateSlug(req.Slug) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid slug"})
		return
	}
	if req.ArchivePolicy == "" {
		req.ArchivePolicy = models.ArchiveImmediate
	}
	if !validArchivePolicy(req.ArchivePolicy) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "archive_policy must be immediate, post_close or never"})
		return
	}
	for _, addr := range strings.Split(req.Email, ",") {
		if addr = strings.TrimSpace(addr); addr != "" && !utils.ValidateEmail(addr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": fmt.Sprintf("Invalid email %q", addr)})
			return
		}
	}
	seen := map[string]bool{}
	for i := range req.Questions {
		if msg := req.Questions[i].validate(); msg != "" {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": msg})
			return
		}
		if seen[req.Questions[i].FieldName] {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Duplicate fieldname " + req.Questions[i].FieldName})
			return
		}
		seen[req.Questions[i].FieldName] = true
	}

	starts := h.Now()
	if req.StartsAt != nil {
		starts = *req.StartsAt
	}
	s := models.Survey{
		Title:                    req.Title,
		Slug:                     req.Slug,
		Tease:                    req.Tease,
		Description:              req.Description,
		Thanks:                   req.Thanks,
		IsPublished:              req.IsPublished,
		StartsAt:                 starts,
		EndsAt:                   req.EndsAt,
		RequireLogin:             req.RequireLogin,
		AllowMultipleSubmissions: req.AllowMultipleSubmissions,
		ModerateSubmissions:      req.ModerateSubmissions,
		ArchivePolicy:            req.ArchivePolicy,
		Email:                    req.Email,
	}
	if u != nil {
		s.CreatedByID = &u.ID
	}

	db := h.DB.WithContext(c.Request.Context())
	var count int64
	db.Model(&models.Survey{}).Where("slug = ?", req.Slug).Count(&count)
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"message": "Slug already exists"})
		return
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&s).Error; err != nil {
			return err
		}
		for i := range req.Questions {
			q := req.Questions[i].model(s.ID, i)
			if err := tx.Create(&q).Error; err != nil {
				return err
			}
			s.Questions = append(s.Questions, q)
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not create survey"})
		return
	}
	c.JSON(http.StatusCreated, s)
}

/* ========== List / detail ========== */

func (h *Handler) ListSurveys(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)
	q := h.DB.WithContext(c.Request.Context()).Model(&models.Survey{})
	if !u.IsAdmin {
		q = q.Where("created_by_id = ?", u.ID)
	}
	var surveys []models.Survey
	if err := q.Order("created_at DESC, id DESC").Find(&surveys).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not list surveys"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"surveys": surveys})
}

func (h *Handler) GetSurvey(c *gin.Context) {
	s := c.MustGet(middleware.CtxSurvey).(*models.Survey)
	err := h.DB.WithContext(c.Request.Context()).
		Preload("Questions", orderedQuestions).
		Preload("Reports.Displays", orderedQuestions).
		First(s, s.ID).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not read survey"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"survey": s, "reports": s.Reports})
}

/* ========== Update ========== */

type updateSurveyReq struct {
	Title                    *string    `json:"title"`
	Tease                    *string    `json:"tease"`
	Description              *string    `json:"description"`
	Thanks                   *string    `json:"thanks"`
	IsPublished              *bool      `json:"is_published"`
	StartsAt                 *time.Time `json:"starts_at"`
	EndsAt                   *time.Time `json:"ends_at"`
	ClearEndsAt              bool       `json:"clear_ends_at"`
	RequireLogin             *bool      `json:"require_login"`
	AllowMultipleSubmissions *bool      `json:"allow_multiple_submissions"`
	ModerateSubmissions      *bool      `json:"moderate_submissions"`
	ArchivePolicy            *string    `json:"archive_policy"`
	Email                    *string    `json:"email"`
	DefaultReportID          *uint      `json:"default_report_id"`
	ClearDefaultReport       bool       `json:"clear_default_report"`
}

func (h *Handler) UpdateSurvey(c *gin.Context) {
	s := c.MustGet(middleware.CtxSurvey).(*models.Survey)

	var req updateSurveyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid payload", "error": err.Error()})
		return
	}

	db := h.DB.WithContext(c.Request.Context())
	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Tease != nil {
		updates["tease"] = *req.Tease
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Thanks != nil {
		updates["thanks"] = *req.Thanks
	}
	if req.IsPublished != nil {
		updates["is_published"] = *req.IsPublished
	}
	if req.StartsAt != nil {
		updates["starts_at"] = *req.StartsAt
	}
	if req.EndsAt != nil {
		updates["ends_at"] = *req.EndsAt
	} else if req.ClearEndsAt {
		updates["ends_at"] = nil
	}
	if req.RequireLogin != nil {
		updates["require_login"] = *req.RequireLogin
	}
	if req.AllowMultipleSubmissions != nil {
		updates["allow_multiple_submissions"] = *req.AllowMultipleSubmissions
	}
	if req.ModerateSubmissions != nil {
		updates["moderate_submissions"] = *req.ModerateSubmissions
	}
	if req.ArchivePolicy != nil {
		if !validArchivePolicy(*req.ArchivePolicy) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "archive_policy must be immediate, post_close or never"})
			return
		}
		updates["archive_policy"] = *req.ArchivePolicy
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.DefaultReportID != nil {
		var r models.SurveyReport
		if err := db.Where("id = ? AND survey_id = ?", *req.DefaultReportID, s.ID).First(&r).Error; err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "default_report_id is not a report of this survey"})
			return
		}
		updates["default_report_id"] = r.ID
	} else if req.ClearDefaultReport {
		updates["default_report_id"] = nil
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Nothing to update"})
		return
	}

	if err := db.Model(&models.Survey{}).Where("id = ?", s.ID).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

/* ========== Publish / unpublish / delete ========== */

func (h *Handler) setPublished(c *gin.Context, published bool, msg string) {
	s := c.MustGet(middleware.CtxSurvey).(*models.Survey)
	if err := h.DB.WithContext(c.Request.Context()).Model(&models.Survey{}).
		Where("id = ?", s.ID).
		Update("is_published", published).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (h *Handler) PublishSurvey(c *gin.Context)   { h.setPublished(c, true, "published") }
func (h *Handler) UnpublishSurvey(c *gin.Context) { h.setPublished(c, false, "unpublished") }

// DeleteSurvey removes the survey with its questions, reports and submissions.
func (h *Handler) DeleteSurvey(c *gin.Context) {
	s := c.MustGet(middleware.CtxSurvey).(*models.Survey)
	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		subIDs := tx.Model(&models.Submission{}).Select("id").Where("survey_id = ?", s.ID)
		if err := tx.Where("submission_id IN (?)", subIDs).Delete(&models.Answer{}).Error; err != nil {
			return err
		}
		if err := tx.Where("survey_id = ?", s.ID).Delete(&models.Submission{}).Error; err != nil {
			return err
		}
		reportIDs := tx.Model(&models.SurveyReport{}).Select("id").Where("survey_id = ?", s.ID)
		if err := tx.Where("report_id IN (?)", reportIDs).Delete(&models.SurveyReportDisplay{}).Error; err != nil {
			return err
		}
		if err := tx.Where("survey_id = ?", s.ID).Delete(&models.SurveyReport{}).Error; err != nil {
			return err
		}
		if err := tx.Where("survey_id = ?", s.ID).Delete(&models.Question{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Survey{}, s.ID).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

/* ========== Dashboard ========== */

func (h *Handler) SurveyDashboard(c *gin.Context) {
	s := c.MustGet(middleware.CtxSurvey).(*models.Survey)
	ctx := c.Request.Context()
	db := h.DB.WithContext(ctx)
	if err := db.Preload("Questions", orderedQuestions).First(s, s.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not read survey"})
		return
	}

	var total, public int64
	db.Model(&models.Submission{}).Where("survey_id = ?", s.ID).Count(&total)
	db.Model(&models.Submission{}).Where("survey_id = ? AND is_public = ?", s.ID, true).Count(&public)

	stats, err := services.SurveyStats(ctx, h.DB, s)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not compute statistics"})
		return
	}

	results := make([]gin.H, 0, len(stats))
	for _, st := range stats {
		results = append(results, gin.H{
			"question_id": st.Question.ID,
			"fieldname":   st.Question.FieldName,
			"label":       st.Question.Label,
			"option_type": st.Question.OptionType,
			"counts":      st.Counts,
			"numeric":     st.Numeric,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"survey_id":          s.ID,
		"total_submissions":  total,
		"public_submissions": public,
		"is_open":            s.IsOpen(h.Now()),
		"results":            results,
	})
}
