package controllers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/api/idtoken"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vnkhanh/crowdsourcing/config"
	"github.com/vnkhanh/crowdsourcing/controllers"
	"github.com/vnkhanh/crowdsourcing/models"
	"github.com/vnkhanh/crowdsourcing/routes"
	"github.com/vnkhanh/crowdsourcing/templates"
	"github.com/vnkhanh/crowdsourcing/utils"
)

const testSecret = "test-secret"

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeGoogle struct{}

func (fakeGoogle) Validate(_ context.Context, token, _ string) (*idtoken.Payload, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return &idtoken.Payload{Claims: map[string]any{"email": "G.User@example.com", "name": "G User"}}, nil
}

type testServer struct {
	t      *testing.T
	db     *gorm.DB
	h      *controllers.Handler
	router *gin.Engine
}

func newServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := config.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	tmpl, err := templates.Load()
	if err != nil {
		t.Fatalf("templates: %v", err)
	}

	cfg := &config.Config{
		JWTSecret:      testSecret,
		GoogleClientID: "client-id",
		LoginURL:       "/login/",
		ExportDir:      t.TempDir(),
	}
	h := controllers.NewHandler(cfg, db, tmpl, controllers.Deps{Google: fakeGoogle{}})
	h.SetClock(func() time.Time { return testNow })

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	routes.SetupRoutes(r, h)
	return &testServer{t: t, db: db, h: h, router: r}
}

// seedSurvey creates the open "potholes" survey owned by owner (may be nil).
func (s *testServer) seedSurvey(owner *models.User, edit func(*models.Survey)) *models.Survey {
	s.t.Helper()
	survey := models.Survey{
		Title:         "Potholes",
		Slug:          "potholes",
		Description:   "Tell us about **potholes**.",
		IsPublished:   true,
		StartsAt:      testNow.Add(-time.Hour),
		ArchivePolicy: models.ArchiveImmediate,
		Questions: []models.Question{
			{FieldName: "name", Label: "Name", OptionType: models.OptionChar, Required: true, Order: 1, AnswerIsPublic: true},
			{FieldName: "color", Label: "Color", OptionType: models.OptionSelect, Order: 2, AnswerIsPublic: true,
				Options: datatypes.JSONSlice[string]{"red", "blue"}},
			{FieldName: "where", Label: "Where", OptionType: models.OptionLocation, Order: 3, AnswerIsPublic: true},
			{FieldName: "phone", Label: "Phone", OptionType: models.OptionChar, Order: 4},
		},
	}
	if owner != nil {
		survey.CreatedByID = &owner.ID
	}
	if edit != nil {
		edit(&survey)
	}
	if err := s.db.Create(&survey).Error; err != nil {
		s.t.Fatalf("create survey: %v", err)
	}
	return &survey
}

func (s *testServer) user(name string, admin bool) (*models.User, string) {
	s.t.Helper()
	u := models.User{Username: name, Name: name, Email: name + "@example.com", IsAdmin: admin}
	if err := s.db.Create(&u).Error; err != nil {
		s.t.Fatalf("create user: %v", err)
	}
	token, err := utils.GenerateToken(testSecret, u.ID, utils.RoleFor(admin))
	if err != nil {
		s.t.Fatal(err)
	}
	return &u, token
}

type requestOpt func(*http.Request)

func withCookies(cookies ...*http.Cookie) requestOpt {
	return func(r *http.Request) {
		for _, c := range cookies {
			r.AddCookie(c)
		}
	}
}

func withToken(token string) requestOpt {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func (s *testServer) do(method, target, body string, opts ...requestOpt) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		if strings.HasPrefix(body, "{") || strings.HasPrefix(body, "[") {
			req.Header.Set("Content-Type", "application/json")
		} else {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	for _, opt := range opts {
		opt(req)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) postForm(target string, values url.Values, opts ...requestOpt) *httptest.ResponseRecorder {
	return s.do(http.MethodPost, target, values.Encode(), opts...)
}

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
