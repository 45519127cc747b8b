package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/vnkhanh/crowdsourcing/models"
)

// Visitor identifies who is looking at a survey: a logged in user, an
// anonymous session, or neither.
type Visitor struct {
	UserID     *uint
	SessionKey string
}

func (v Visitor) Authenticated() bool {
	return v.UserID != nil
}

type SurveyAction int

const (
	ShowForm SurveyAction = iota
	ShowLoginRequired
	ShowAlreadySubmitted
	ShowClosed
	RedirectToResults
)

func (a SurveyAction) String() string {
	switch a {
	case ShowForm:
		return "form"
	case ShowLoginRequired:
		return "login_required"
	case ShowAlreadySubmitted:
		return "already_submitted"
	case ShowClosed:
		return "closed"
	case RedirectToResults:
		return "results"
	}
	return "unknown"
}

type Gate struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewGate(db *gorm.DB) *Gate {
	return &Gate{DB: db, Now: time.Now}
}

// LoadLiveSurvey returns a published survey with its questions in order.
func LoadLiveSurvey(ctx context.Context, db *gorm.DB, slug string) (*models.Survey, error) {
	var s models.Survey
	err := db.WithContext(ctx).
		Where("slug = ? AND is_published = ?", slug, true).
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC, id ASC") }).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("survey %q: %w", slug, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Entered reports whether the visitor already has a submission on the survey.
// Anonymous visitors without a session never have one.
func (g *Gate) Entered(ctx context.Context, survey *models.Survey, v Visitor) (bool, error) {
	q := g.DB.WithContext(ctx).Model(&models.Submission{}).Where("survey_id = ?", survey.ID)
	switch {
	case v.Authenticated():
		q = q.Where("user_id = ?", *v.UserID)
	case v.SessionKey != "":
		q = q.Where("session_key = ?", v.SessionKey)
	default:
		return false, nil
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("count submissions: %w", err)
	}
	return count > 0, nil
}

// EnteredNoMoreAllowed: the visitor entered and the survey takes one entry each.
func (g *Gate) EnteredNoMoreAllowed(ctx context.Context, survey *models.Survey, v Visitor) (bool, error) {
	if survey.AllowMultipleSubmissions {
		return false, nil
	}
	return g.Entered(ctx, survey, v)
}

func (g *Gate) CanShowForm(ctx context.Context, survey *models.Survey, v Visitor) (bool, error) {
	if !survey.IsOpen(g.Now()) {
		return false, nil
	}
	if survey.RequireLogin && !v.Authenticated() {
		return false, nil
	}
	done, err := g.EnteredNoMoreAllowed(ctx, survey, v)
	if err != nil {
		return false, err
	}
	return !done, nil
}

// Decide picks what the survey page shows for this visitor.
func (g *Gate) Decide(ctx context.Context, survey *models.Survey, v Visitor) (SurveyAction, error) {
	now := g.Now()
	open := survey.IsOpen(now)
	public := survey.CanHavePublicSubmissions(now)

	done, err := g.EnteredNoMoreAllowed(ctx, survey, v)
	if err != nil {
		return ShowClosed, err
	}
	switch {
	case done:
		return ShowAlreadySubmitted, nil
	case !open && public:
		return RedirectToResults, nil
	case open && (v.Authenticated() || !survey.RequireLogin):
		return ShowForm, nil
	case open && survey.RequireLogin:
		return ShowLoginRequired, nil
	case public:
		return RedirectToResults, nil
	}
	return ShowClosed, nil
}
