package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/vnkhanh/crowdsourcing/models"
	"github.com/vnkhanh/crowdsourcing/services"
)

// GET /submissions/?survey=&user=&submitted_from=&submitted_to=&featured=
func (h *Handler) Submissions(c *gin.Context) {
	filter, err := services.ParseSubmissionFilter(c.Request.URL.Query(), h.Now())
	if err != nil {
		h.fail(c, err)
		return
	}

	q := h.DB.WithContext(c.Request.Context()).Model(&models.Submission{}).
		Where("submissions.is_public = ?", true)
	q = filter.Apply(q)

	var subs []models.Submission
	err = q.Preload("Answers.Question").Preload("Survey").Preload("User").
		Order("submissions.submitted_at DESC, submissions.id DESC").
		Find(&subs).Error
	if err != nil {
		h.fail(c, fmt.Errorf("query submissions: %w", err))
		return
	}

	out := make([]map[string]any, 0, len(subs))
	for i := range subs {
		out = append(out, subs[i].JSONData())
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) publicSubmission(c *gin.Context) (*models.Submission, []models.Answer, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		h.fail(c, services.ErrNotFound)
		return nil, nil, false
	}
	var sub models.Submission
	err = h.DB.WithContext(c.Request.Context()).
		Preload("Survey").
		Preload("Answers.Question").
		Where("id = ? AND is_public = ?", id, true).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		h.fail(c, services.ErrNotFound)
		return nil, nil, false
	}
	if err != nil {
		h.fail(c, err)
		return nil, nil, false
	}

	var answers []models.Answer
	for _, a := range sub.Answers {
		if a.Question != nil && a.Question.AnswerIsPublic {
			answers = append(answers, a)
		}
	}
	return &sub, answers, true
}

// GET /submission/:id/
func (h *Handler) SubmissionDetail(c *gin.Context) {
	sub, answers, ok := h.publicSubmission(c)
	if !ok {
		return
	}
	title := ""
	if sub.Survey != nil {
		title = sub.Survey.Title
	}
	c.HTML(http.StatusOK, "submission.html", h.page(c, title, gin.H{
		"Submission": sub,
		"Answers":    answers,
	}))
}

// GET /submission/:id/map/ is the popup shown on map markers.
func (h *Handler) SubmissionForMap(c *gin.Context) {
	sub, answers, ok := h.publicSubmission(c)
	if !ok {
		return
	}
	c.HTML(http.StatusOK, "submission_for_map.html", gin.H{
		"Submission": sub,
		"Answers":    answers,
	})
}
