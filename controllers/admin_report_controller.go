package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/vnkhanh/crowdsourcing/middleware"
	"github.com/vnkhanh/crowdsourcing/models"
	"github.com/vnkhanh/crowdsourcing/services"
	"github.com/vnkhanh/crowdsourcing/utils"
)

type displayReq struct {
	DisplayType string `json:"display_type" binding:"required"`
	Fieldnames  string `json:"fieldnames" binding:"required"`
	Annotation  string `json:"annotation"`
}

type createReportReq struct {
	Title                    string       `json:"title" binding:"required"`
	Slug                     string       `json:"slug" binding:"required"`
	Summary                  string       `json:"summary"`
	LimitResultsTo           int          `json:"limit_results_to" binding:"min=0"`
	DisplayIndividualResults *bool        `json:"display_individual_results"`
	MakeDefault              bool         `json:"make_default"`
	Displays                 []displayReq `json:"displays"`
}

var displayTypes = map[string]bool{
	models.DisplayText: true,
	models.DisplayPie:  true,
	models.DisplayBar:  true,
	models.DisplayMap:  true,
}

func (h *Handler) CreateReport(c *gin.Context) {
	s := c.MustGet(middleware.CtxSurvey).(*models.Survey)

	var req createReportReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid payload", "error": err.Error()})
		return
	}
	if !utils.ValidateSlug(req.Slug) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid slug"})
		return
	}

	db := h.DB.WithContext(c.Request.Context())
	var questions []models.Question
	if err := db.Where("survey_id = ?", s.ID).Find(&questions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not read questions"})
		return
	}
	known := map[string]bool{}
	for _, q := range questions {
		known[q.FieldName] = true
	}

	individual := true
	if req.DisplayIndividualResults != nil {
		individual = *req.DisplayIndividualResults
	}
	report := models.SurveyReport{
		SurveyID:                 s.ID,
		Title:                    req.Title,
		Slug:                     req.Slug,
		Summary:                  req.Summary,
		LimitResultsTo:           req.LimitResultsTo,
		DisplayIndividualResults: individual,
	}
	for i, d := range req.Displays {
		if !displayTypes[d.DisplayType] {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": fmt.Sprintf("Unknown display_type %q", d.DisplayType)})
			return
		}
		for _, name := range strings.FieldsFunc(d.Fieldnames, func(r rune) bool { return r == ',' || r == ' ' }) {
			if !known[name] {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"message": fmt.Sprintf("Unknown fieldname %q", name)})
				return
			}
		}
		report.Displays = append(report.Displays, models.SurveyReportDisplay{
			DisplayType: d.DisplayType,
			Fieldnames:  d.Fieldnames,
			Annotation:  d.Annotation,
			Order:       i + 1,
		})
	}

	var count int64
	db.Model(&models.SurveyReport{}).Where("survey_id = ? AND slug = ?", s.ID, req.Slug).Count(&count)
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"message": "Report slug already exists"})
		return
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&report).Error; err != nil {
			return err
		}
		if req.MakeDefault {
			return tx.Model(&models.Survey{}).Where("id = ?", s.ID).Update("default_report_id", report.ID).Error
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not create report"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"report": report,
		"url":    services.NamedReportURL(s.Slug, report.Slug),
	})
}

func (h *Handler) ListReports(c *gin.Context) {
	s := c.MustGet(middleware.CtxSurvey).(*models.Survey)
	var reports []models.SurveyReport
	err := h.DB.WithContext(c.Request.Context()).
		Preload("Displays", orderedQuestions).
		Where("survey_id = ?", s.ID).
		Order("id ASC").
		Find(&reports).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not list reports"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "default_report_id": s.DefaultReportID})
}

// PreviewDefaultReport shows the report a survey gets when none is configured.
func (h *Handler) PreviewDefaultReport(c *gin.Context) {
	s := c.MustGet(middleware.CtxSurvey).(*models.Survey)
	if err := h.DB.WithContext(c.Request.Context()).Preload("Questions", orderedQuestions).First(s, s.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not read survey"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": services.DefaultReport(s)})
}
