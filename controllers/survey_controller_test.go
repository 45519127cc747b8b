package controllers_test

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/vnkhanh/crowdsourcing/middleware"
	"github.com/vnkhanh/crowdsourcing/models"
)

func TestSurveyFormAndSubmit(t *testing.T) {
	s := newServer(t)
	s.seedSurvey(nil, nil)

	w := s.do(http.MethodGet, "/survey/potholes/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET survey = %d", w.Code)
	}
	session := cookieNamed(w, middleware.SessionCookie)
	if session == nil || session.Value == "" {
		t.Fatalf("no session cookie issued")
	}
	body := w.Body.String()
	if !strings.Contains(body, `name="color"`) || !strings.Contains(body, "<strong>potholes</strong>") {
		t.Errorf("form not rendered:\n%s", body)
	}

	form := url.Values{"name": {"Ana"}, "color": {"red"}, "where": {"Main St"}, "where_lat": {"1.5"}, "where_lng": {"2.5"}, "phone": {"555"}}

	w = s.postForm("/survey/potholes/", form)
	if w.Code != http.StatusForbidden || !strings.Contains(w.Body.String(), "Cookies must be enabled") {
		t.Errorf("POST without session = %d %q", w.Code, w.Body.String())
	}

	w = s.postForm("/survey/potholes/", form, withCookies(session))
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/survey/potholes/report/" {
		t.Fatalf("POST = %d, Location %q, body %s", w.Code, w.Header().Get("Location"), w.Body.String())
	}
	thanks := cookieNamed(w, "survey_thanks_potholes")
	if thanks == nil {
		t.Errorf("thanks cookie not set")
	}

	var sub models.Submission
	if err := s.db.Preload("Answers").First(&sub).Error; err != nil {
		t.Fatalf("submission not stored: %v", err)
	}
	if sub.SessionKey != session.Value || len(sub.Answers) != 4 || !sub.IsPublic {
		t.Errorf("stored submission = %+v", sub)
	}

	w = s.do(http.MethodGet, "/survey/potholes/report/", "", withCookies(session, thanks))
	if w.Code != http.StatusOK {
		t.Fatalf("report = %d", w.Code)
	}
	body = w.Body.String()
	if !strings.Contains(body, "Ana") {
		t.Errorf("report does not list the new submission")
	}
	if strings.Contains(body, "555") {
		t.Errorf("private answer shown on the report")
	}
	if !strings.Contains(body, "Thanks") {
		t.Errorf("thanks banner missing")
	}

	w = s.do(http.MethodGet, "/survey/potholes/", "", withCookies(session))
	if !strings.Contains(w.Body.String(), "already entered") {
		t.Errorf("second visit should show already submitted, got %s", w.Body.String())
	}
	w = s.postForm("/survey/potholes/", form, withCookies(session))
	var n int64
	s.db.Model(&models.Submission{}).Count(&n)
	if n != 1 {
		t.Errorf("a second POST created another submission")
	}
}

func TestSurveySubmitInvalid(t *testing.T) {
	s := newServer(t)
	s.seedSurvey(nil, nil)
	session := cookieNamed(s.do(http.MethodGet, "/survey/potholes/", ""), middleware.SessionCookie)

	w := s.postForm("/survey/potholes/", url.Values{"color": {"green"}}, withCookies(session))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid POST = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "This field is required.") || !strings.Contains(body, "green is not one of the available choices") {
		t.Errorf("errors not rendered:\n%s", body)
	}
	var n int64
	s.db.Model(&models.Submission{}).Count(&n)
	if n != 0 {
		t.Errorf("invalid submission stored")
	}
}

func TestSurveyModeratedShowsThanksPage(t *testing.T) {
	s := newServer(t)
	s.seedSurvey(nil, func(sv *models.Survey) { sv.ArchivePolicy = models.ArchiveNever; sv.Thanks = "Much obliged" })
	session := cookieNamed(s.do(http.MethodGet, "/survey/potholes/", ""), middleware.SessionCookie)

	w := s.postForm("/survey/potholes/", url.Values{"name": {"Ana"}}, withCookies(session))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Much obliged") {
		t.Errorf("thanks page = %d %s", w.Code, w.Body.String())
	}
}

func TestSurveyGates(t *testing.T) {
	s := newServer(t)
	ended := testNow.Add(-time.Minute)
	s.seedSurvey(nil, func(sv *models.Survey) { sv.RequireLogin = true })
	s.seedSurvey(nil, func(sv *models.Survey) {
		sv.Slug = "closed"
		sv.EndsAt = &ended
	})
	s.seedSurvey(nil, func(sv *models.Survey) {
		sv.Slug = "archived"
		sv.EndsAt = &ended
		sv.ArchivePolicy = models.ArchiveNever
	})
	s.seedSurvey(nil, func(sv *models.Survey) { sv.Slug = "draft"; sv.IsPublished = false })

	w := s.do(http.MethodGet, "/survey/potholes/", "")
	if !strings.Contains(w.Body.String(), `href="/login/?next=%2Fsurvey%2Fpotholes%2F"`) {
		t.Errorf("login prompt missing:\n%s", w.Body.String())
	}
	_, token := s.user("ana", false)
	w = s.do(http.MethodGet, "/survey/potholes/", "", withToken(token))
	if !strings.Contains(w.Body.String(), "<form") {
		t.Errorf("logged in user should get the form")
	}

	w = s.do(http.MethodGet, "/survey/closed/", "")
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/survey/closed/report/" {
		t.Errorf("closed survey = %d %q", w.Code, w.Header().Get("Location"))
	}
	w = s.do(http.MethodGet, "/survey/archived/", "")
	if w.Code != http.StatusOK || strings.Contains(w.Body.String(), "<form") {
		t.Errorf("closed survey without results = %d", w.Code)
	}
	if w := s.do(http.MethodGet, "/survey/draft/", ""); w.Code != http.StatusNotFound {
		t.Errorf("unpublished survey = %d", w.Code)
	}
}

func TestSurveyJSONHelpers(t *testing.T) {
	s := newServer(t)
	s.seedSurvey(nil, nil)

	w := s.do(http.MethodGet, "/survey/potholes/actions/", "")
	var actions map[string]bool
	json.Unmarshal(w.Body.Bytes(), &actions)
	if !actions["enter"] || !actions["view"] {
		t.Errorf("actions = %v", actions)
	}

	w = s.do(http.MethodGet, "/survey/potholes/questions/", "")
	var detail struct {
		IsOpen    bool `json:"is_open"`
		Questions []struct {
			FieldName string `json:"fieldname"`
		} `json:"questions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatal(err)
	}
	if !detail.IsOpen || len(detail.Questions) != 4 || detail.Questions[0].FieldName != "name" {
		t.Errorf("questions = %+v", detail)
	}
}
