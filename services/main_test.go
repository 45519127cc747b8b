package services

import (
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vnkhanh/crowdsourcing/config"
	"github.com/vnkhanh/crowdsourcing/models"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// one connection, otherwise every new connection gets its own empty database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := config.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// seedSurvey creates an open survey with one question of each kind the
// report, map and filter code cares about.
func seedSurvey(t *testing.T, db *gorm.DB, edit func(*models.Survey)) *models.Survey {
	t.Helper()
	s := models.Survey{
		Title:         "Potholes",
		Slug:          "potholes",
		Tease:         "Report a pothole",
		IsPublished:   true,
		StartsAt:      testNow.Add(-24 * time.Hour),
		ArchivePolicy: models.ArchiveImmediate,
		Questions: []models.Question{
			{FieldName: "name", Label: "Name", OptionType: models.OptionChar, Order: 1, AnswerIsPublic: true},
			{FieldName: "color", Label: "Color", OptionType: models.OptionSelect, Order: 2, AnswerIsPublic: true, UseAsFilter: true,
				Options: datatypes.JSONSlice[string]{"red", "blue"}, MapIcons: datatypes.JSONSlice[string]{"/red.png", "/blue.png"}},
			{FieldName: "where", Label: "Where", OptionType: models.OptionLocation, Order: 3, AnswerIsPublic: true},
			{FieldName: "secret", Label: "Secret", OptionType: models.OptionChar, Order: 4},
			{FieldName: "depth", Label: "Depth", OptionType: models.OptionInteger, Order: 5, AnswerIsPublic: true, UseAsFilter: true},
		},
	}
	if edit != nil {
		edit(&s)
	}
	if err := db.Create(&s).Error; err != nil {
		t.Fatalf("create survey: %v", err)
	}
	live, err := LoadLiveSurvey(t.Context(), db, s.Slug)
	if err != nil {
		// unpublished surveys are not live; hand back what was created
		return &s
	}
	return live
}

func question(t *testing.T, s *models.Survey, field string) *models.Question {
	t.Helper()
	q := s.QuestionByFieldName(field)
	if q == nil {
		t.Fatalf("survey %s has no question %q", s.Slug, field)
	}
	return q
}

func text(q *models.Question, v string) models.Answer {
	return models.Answer{QuestionID: q.ID, TextAnswer: v}
}

func integer(q *models.Question, n int64) models.Answer {
	return models.Answer{QuestionID: q.ID, IntegerAnswer: &n}
}

func located(q *models.Question, lat, lng float64) models.Answer {
	return models.Answer{QuestionID: q.ID, Latitude: &lat, Longitude: &lng}
}

func addSubmission(t *testing.T, db *gorm.DB, s *models.Survey, at time.Time, public bool, answers ...models.Answer) models.Submission {
	t.Helper()
	sub := models.Submission{
		SurveyID:    s.ID,
		SubmittedAt: at,
		IsPublic:    public,
		SessionKey:  "seed",
		Answers:     answers,
	}
	if err := db.Create(&sub).Error; err != nil {
		t.Fatalf("create submission: %v", err)
	}
	return sub
}
