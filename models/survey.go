package models

import (
	"strings"
	"time"
)

const (
	ArchiveImmediate = "immediate"
	ArchivePostClose = "post_close"
	ArchiveNever     = "never"
)

type Survey struct {
	ID          uint       `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Title       string     `gorm:"column:title;size:255;not null" json:"title"`
	Slug        string     `gorm:"column:slug;size:80;uniqueIndex;not null" json:"slug"`
	Tease       string     `gorm:"column:tease;type:text" json:"tease"`
	Description string     `gorm:"column:description;type:text" json:"description"`
	Thanks      string     `gorm:"column:thanks;type:text" json:"thanks"`
	IsPublished bool       `gorm:"column:is_published" json:"is_published"`
	StartsAt    time.Time  `gorm:"column:starts_at" json:"starts_at"`
	EndsAt      *time.Time `gorm:"column:ends_at" json:"ends_at"`

	RequireLogin             bool   `gorm:"column:require_login" json:"require_login"`
	AllowMultipleSubmissions bool   `gorm:"column:allow_multiple_submissions" json:"allow_multiple_submissions"`
	ModerateSubmissions      bool   `gorm:"column:moderate_submissions" json:"moderate_submissions"`
	ArchivePolicy            string `gorm:"column:archive_policy;size:20;not null" json:"archive_policy"`

	// Email holds a comma separated list of notification recipients.
	Email           string    `gorm:"column:email;type:text" json:"email"`
	DefaultReportID *uint     `gorm:"column:default_report_id" json:"default_report_id"`
	CreatedByID     *uint     `gorm:"column:created_by_id" json:"created_by_id"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`

	Questions   []Question     `gorm:"foreignKey:SurveyID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
	Reports     []SurveyReport `gorm:"foreignKey:SurveyID;constraint:OnDelete:CASCADE" json:"-"`
	Submissions []Submission   `gorm:"foreignKey:SurveyID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Survey) TableName() string {
	return "surveys"
}

// IsOpen reports whether the survey accepts entries at now.
func (s *Survey) IsOpen(now time.Time) bool {
	if !s.IsPublished || now.Before(s.StartsAt) {
		return false
	}
	return s.EndsAt == nil || now.Before(*s.EndsAt)
}

// CanHavePublicSubmissions reports whether results may be shown to visitors.
func (s *Survey) CanHavePublicSubmissions(now time.Time) bool {
	switch s.ArchivePolicy {
	case ArchiveNever:
		return false
	case ArchivePostClose:
		return !s.IsOpen(now)
	default:
		return true
	}
}

// Recipients splits Email on commas, dropping blanks.
func (s *Survey) Recipients() []string {
	var out []string
	for _, part := range strings.Split(s.Email, ",") {
		if addr := strings.TrimSpace(part); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// PublicQuestions keeps declaration order; Questions must already be ordered.
func (s *Survey) PublicQuestions() []Question {
	var out []Question
	for _, q := range s.Questions {
		if q.AnswerIsPublic {
			out = append(out, q)
		}
	}
	return out
}

// IconQuestions are choice-like questions carrying map icons.
func (s *Survey) IconQuestions() []Question {
	var out []Question
	for _, q := range s.Questions {
		if len(q.MapIcons) > 0 && (q.OptionType == OptionSelect || q.OptionType == OptionChoice) {
			out = append(out, q)
		}
	}
	return out
}

func (s *Survey) QuestionByFieldName(name string) *Question {
	for i := range s.Questions {
		if s.Questions[i].FieldName == name {
			return &s.Questions[i]
		}
	}
	return nil
}
