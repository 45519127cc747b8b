package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vnkhanh/crowdsourcing/logger"
	"github.com/vnkhanh/crowdsourcing/models"
)

// Uploader stores a file and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, fh *multipart.FileHeader, folder, fileID string) (string, error)
}

var ErrUploadsDisabled = errors.New("photo uploads are not configured")

// SubmissionMeta is what the request knows about the submitter.
type SubmissionMeta struct {
	UserID     *uint
	SessionKey string
	IPAddress  string
}

type Pipeline struct {
	DB       *gorm.DB
	Uploader Uploader
	Now      func() time.Time
}

func NewPipeline(db *gorm.DB, up Uploader) *Pipeline {
	return &Pipeline{DB: db, Uploader: up, Now: time.Now}
}

// Submit stores uploads first, then writes the submission and all of its
// answers in a single transaction. The returned submission has Answers with
// their Question set.
func (p *Pipeline) Submit(ctx context.Context, survey *models.Survey, meta SubmissionMeta, values []AnswerValue) (*models.Submission, error) {
	batch := uuid.NewString()
	for _, v := range values {
		single, ok := v.(*SingleAnswer)
		if !ok || single.Upload == nil {
			continue
		}
		if p.Uploader == nil {
			return nil, ErrUploadsDisabled
		}
		fileID := fmt.Sprintf("%s_%d", batch, single.Question.ID)
		url, err := p.Uploader.Upload(ctx, single.Upload, "answers/"+survey.Slug, fileID)
		if err != nil {
			return nil, fmt.Errorf("upload %s: %w", single.Question.FieldName, err)
		}
		single.Answer.ImageAnswer = url
	}

	sub := models.Submission{
		SurveyID:    survey.ID,
		UserID:      meta.UserID,
		SessionKey:  meta.SessionKey,
		IPAddress:   meta.IPAddress,
		SubmittedAt: p.Now(),
		IsPublic:    !survey.ModerateSubmissions,
	}

	err := p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&sub).Error; err != nil {
			return fmt.Errorf("create submission: %w", err)
		}
		for _, v := range values {
			q := v.QuestionRef()
			for _, row := range v.Rows() {
				row.SubmissionID = sub.ID
				row.QuestionID = q.ID
				if err := tx.Create(&row).Error; err != nil {
					return fmt.Errorf("create answer %s: %w", q.FieldName, err)
				}
				row.Question = q
				sub.Answers = append(sub.Answers, row)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(map[string]any{
		"survey":     survey.Slug,
		"submission": sub.ID,
		"answers":    len(sub.Answers),
		"public":     sub.IsPublic,
	}).Info("submission stored")
	return &sub, nil
}
