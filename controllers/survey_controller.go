package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/crowdsourcing/logger"
	"github.com/vnkhanh/crowdsourcing/models"
	"github.com/vnkhanh/crowdsourcing/services"
	"github.com/vnkhanh/crowdsourcing/templates"
	"github.com/vnkhanh/crowdsourcing/utils"
)

const msgCookiesRequired = "Cookies must be enabled to use this application."

// thanksCookie marks a fresh submission so the report page can say thanks once.
func thanksCookie(slug string) string {
	return "survey_thanks_" + slug
}

/* ========== Survey page: form, submit, redirect ========== */

// GET|POST /survey/:slug/
func (h *Handler) SurveyDetail(c *gin.Context) {
	ctx := c.Request.Context()
	survey, err := services.LoadLiveSurvey(ctx, h.DB, c.Param("slug"))
	if err != nil {
		h.fail(c, err)
		return
	}

	v := h.visitor(c)
	action, err := h.Gate.Decide(ctx, survey, v)
	if err != nil {
		h.fail(c, err)
		return
	}

	switch action {
	case services.ShowForm:
		if c.Request.Method == http.MethodPost {
			h.submitSurvey(c, survey, v)
			return
		}
		h.showForm(c, survey, services.FormInput{}, nil)
	case services.ShowLoginRequired:
		h.renderSurveyPage(c, http.StatusOK, survey, gin.H{
			"LoginRequired": true,
			"LoginURL":      services.LoginURL(h.Cfg.LoginURL, c.Request.URL.Path),
		})
	case services.ShowAlreadySubmitted:
		h.alreadySubmitted(c, survey)
	case services.RedirectToResults:
		c.Redirect(http.StatusFound, services.ReportURL(survey.Slug))
	default:
		c.HTML(http.StatusOK, templates.Pick(h.Templates, survey.Slug+"_closed.html", "closed.html"),
			h.page(c, survey.Title, gin.H{"Survey": survey}))
	}
}

func (h *Handler) submitSurvey(c *gin.Context, survey *models.Survey, v services.Visitor) {
	if v.SessionKey == "" {
		c.String(http.StatusForbidden, msgCookiesRequired)
		return
	}

	if err := c.Request.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		c.String(http.StatusBadRequest, "Invalid form data.")
		return
	}
	in := services.FormInput{Values: c.Request.PostForm}
	if c.Request.MultipartForm != nil {
		in.Files = c.Request.MultipartForm.File
	}

	answers, fieldErrs := services.ValidateSubmission(survey, in)
	if fieldErrs != nil {
		h.showForm(c, survey, in, fieldErrs)
		return
	}

	sub, err := h.Pipeline.Submit(c.Request.Context(), survey, services.SubmissionMeta{
		UserID:     v.UserID,
		SessionKey: v.SessionKey,
		IPAddress:  utils.RemoteIP(c.Request),
	}, answers)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.Notifier.Notify(survey, sub, utils.SiteURL(c.Request))

	if survey.CanHavePublicSubmissions(h.Now()) {
		c.SetCookie(thanksCookie(survey.Slug), "1", 300, "/", "", h.Cfg.IsProduction(), true)
		c.Redirect(http.StatusFound, services.ReportURL(survey.Slug))
		return
	}
	c.HTML(http.StatusOK, templates.Pick(h.Templates, survey.Slug+"_thanks.html", "thanks.html"),
		h.page(c, survey.Title, gin.H{"Survey": survey}))
}

func (h *Handler) showForm(c *gin.Context, survey *models.Survey, in services.FormInput, errs services.FieldErrors) {
	values := map[string]string{}
	for k := range in.Values {
		values[k] = in.Values.Get(k)
	}
	status := http.StatusOK
	if len(errs) > 0 {
		status = http.StatusBadRequest
		logger.WithFields(map[string]any{"survey": survey.Slug, "errors": len(errs)}).Debug("submission rejected")
	}
	h.renderSurveyPage(c, status, survey, gin.H{
		"Action": services.SurveyURL(survey.Slug),
		"Values": values,
		"Errors": errs,
	})
}

func (h *Handler) renderSurveyPage(c *gin.Context, status int, survey *models.Survey, data gin.H) {
	data["Survey"] = survey
	c.HTML(status, templates.Pick(h.Templates, survey.Slug+"_survey_detail.html", "survey_detail.html"),
		h.page(c, survey.Title, data))
}

func (h *Handler) alreadySubmitted(c *gin.Context, survey *models.Survey) {
	data := gin.H{"Survey": survey}
	if survey.CanHavePublicSubmissions(h.Now()) {
		data["ResultsURL"] = services.ReportURL(survey.Slug)
	}
	c.HTML(http.StatusOK, templates.Pick(h.Templates, survey.Slug+"_already_submitted.html", "already_submitted.html"),
		h.page(c, survey.Title, data))
}

/* ========== JSON helpers for embedding sites ========== */

// GET /survey/:slug/actions/
func (h *Handler) SurveyActions(c *gin.Context) {
	ctx := c.Request.Context()
	survey, err := services.LoadLiveSurvey(ctx, h.DB, c.Param("slug"))
	if err != nil {
		h.fail(c, err)
		return
	}
	enter, err := h.Gate.CanShowForm(ctx, survey, h.visitor(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"enter": enter,
		"view":  survey.CanHavePublicSubmissions(h.Now()),
	})
}

// GET /survey/:slug/questions/
func (h *Handler) SurveyQuestions(c *gin.Context) {
	survey, err := services.LoadLiveSurvey(c.Request.Context(), h.DB, c.Param("slug"))
	if err != nil {
		h.fail(c, err)
		return
	}

	questions := make([]gin.H, 0, len(survey.Questions))
	for _, q := range survey.Questions {
		questions = append(questions, gin.H{
			"id":               q.ID,
			"fieldname":        q.FieldName,
			"label":            q.Label,
			"help_text":        q.HelpText,
			"required":         q.Required,
			"order":            q.Order,
			"option_type":      q.OptionType,
			"options":          q.Options,
			"answer_is_public": q.AnswerIsPublic,
			"use_as_filter":    q.UseAsFilter,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"id":            survey.ID,
		"title":         survey.Title,
		"slug":          survey.Slug,
		"tease":         survey.Tease,
		"description":   survey.Description,
		"require_login": survey.RequireLogin,
		"starts_at":     survey.StartsAt,
		"ends_at":       survey.EndsAt,
		"is_open":       survey.IsOpen(h.Now()),
		"questions":     questions,
	})
}
