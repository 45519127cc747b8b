package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/vnkhanh/crowdsourcing/models"
)

type MapEntry struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	URL  string  `json:"url"`
	Icon string  `json:"icon,omitempty"`
}

type MapRequest struct {
	QuestionID uint
	// SubmissionIDs narrows the result when non-empty.
	SubmissionIDs []uint
	// Limit <= 0 means unlimited.
	Limit int
	Query url.Values
}

type MapExtractor struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewMapExtractor(db *gorm.DB) *MapExtractor {
	return &MapExtractor{DB: db, Now: time.Now}
}

// ParseIDList reads "1,2,3". Blank items are skipped, anything else that is
// not a positive integer is an error.
func ParseIDList(s string) ([]uint, error) {
	var out []uint
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil || n == 0 {
			return nil, &FilterError{Message: fmt.Sprintf("Invalid submission id %q.", part)}
		}
		out = append(out, uint(n))
	}
	return out, nil
}

// Entries returns the located answers of a public question as map markers.
func (m *MapExtractor) Entries(ctx context.Context, req MapRequest) ([]MapEntry, error) {
	db := m.DB.WithContext(ctx)

	var q models.Question
	err := db.Preload("Survey.Questions").
		Where("id = ? AND answer_is_public = ?", req.QuestionID, true).
		First(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("question %d: %w", req.QuestionID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if q.Survey == nil || !q.Survey.CanHavePublicSubmissions(m.Now()) {
		return nil, fmt.Errorf("question %d has no public results: %w", req.QuestionID, ErrNotFound)
	}

	icons, err := m.iconLookup(db, q.Survey)
	if err != nil {
		return nil, err
	}

	var answers []models.Answer
	query := db.Model(&models.Answer{}).
		Where("answers.question_id = ?", q.ID).
		Where("answers.latitude IS NOT NULL AND answers.longitude IS NOT NULL").
		Where("answers.submission_id IN (?)", db.Session(&gorm.Session{NewDB: true}).
			Model(&models.Submission{}).Select("id").Where("is_public = ?", true))
	query = ApplyFieldFilters(query, "answers.submission_id", ParseFieldFilters(q.Survey.Questions, req.Query))
	if len(req.SubmissionIDs) > 0 {
		query = query.Where("answers.submission_id IN ?", req.SubmissionIDs)
	}
	if req.Limit > 0 {
		query = query.Limit(req.Limit)
	}
	if err := query.Order("answers.id ASC").Find(&answers).Error; err != nil {
		return nil, fmt.Errorf("load located answers: %w", err)
	}

	entries := make([]MapEntry, 0, len(answers))
	for _, a := range answers {
		entries = append(entries, MapEntry{
			Lat:  *a.Latitude,
			Lng:  *a.Longitude,
			URL:  SubmissionMapURL(a.SubmissionID),
			Icon: icons[a.SubmissionID],
		})
	}
	return entries, nil
}

// iconLookup maps submission id to the icon of the option it picked on any
// icon question of the survey.
func (m *MapExtractor) iconLookup(db *gorm.DB, survey *models.Survey) (map[uint]string, error) {
	lookup := map[uint]string{}
	for _, iq := range survey.IconQuestions() {
		byAnswer := map[string]string{}
		for _, pair := range iq.OptionIconPairs() {
			if pair[1] != "" {
				byAnswer[pair[0]] = pair[1]
			}
		}
		if len(byAnswer) == 0 {
			continue
		}
		var answers []models.Answer
		if err := db.Session(&gorm.Session{NewDB: true}).
			Where("question_id = ?", iq.ID).Find(&answers).Error; err != nil {
			return nil, fmt.Errorf("load icon answers: %w", err)
		}
		for i := range answers {
			if icon, ok := byAnswer[answers[i].Value()]; ok {
				lookup[answers[i].SubmissionID] = icon
			}
		}
	}
	return lookup, nil
}
