package controllers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/vnkhanh/crowdsourcing/models"
)

// seedResults stores n public submissions, newest last.
func (s *testServer) seedResults(survey *models.Survey, n int) []models.Submission {
	s.t.Helper()
	name, where := survey.Questions[0], survey.Questions[2]
	var out []models.Submission
	for i := 0; i < n; i++ {
		lat, lng := float64(i), float64(-i)
		sub := models.Submission{
			SurveyID:    survey.ID,
			SubmittedAt: testNow.Add(time.Duration(i-n) * time.Minute),
			IsPublic:    true,
			Answers: []models.Answer{
				{QuestionID: name.ID, TextAnswer: fmt.Sprintf("entry-%02d", i)},
				{QuestionID: where.ID, Latitude: &lat, Longitude: &lng},
			},
		}
		if err := s.db.Create(&sub).Error; err != nil {
			s.t.Fatal(err)
		}
		out = append(out, sub)
	}
	return out
}

func TestReportPaging(t *testing.T) {
	s := newServer(t)
	survey := s.seedSurvey(nil, nil)
	s.seedResults(survey, 45)

	w := s.do(http.MethodGet, "/survey/potholes/report/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("report = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "entry-44") || strings.Contains(body, "entry-24") {
		t.Errorf("first page should hold the 20 newest entries")
	}
	if !strings.Contains(body, `href="/survey/potholes/report/page/3/"`) {
		t.Errorf("page links missing")
	}

	w = s.do(http.MethodGet, "/survey/potholes/report/page/9/", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "entry-00") {
		t.Errorf("out of range page should clamp to the last page")
	}
	w = s.do(http.MethodGet, "/survey/potholes/report/page/0/", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "entry-00") || strings.Contains(w.Body.String(), "entry-44") {
		t.Errorf("page 0 should clamp to the last page")
	}
	if w := s.do(http.MethodGet, "/survey/potholes/report/page/last/", ""); w.Code != http.StatusNotFound {
		t.Errorf("non numeric page = %d", w.Code)
	}
	if w := s.do(http.MethodGet, "/survey/potholes/reports/nope/", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown report = %d", w.Code)
	}
	w = s.do(http.MethodGet, "/survey/potholes/embed/report/", "")
	if w.Code != http.StatusOK || strings.Contains(w.Body.String(), "<html") {
		t.Errorf("embedded report should be a bare fragment, got %d", w.Code)
	}
}

func TestReportDefaultRedirect(t *testing.T) {
	s := newServer(t)
	survey := s.seedSurvey(nil, nil)
	r := models.SurveyReport{SurveyID: survey.ID, Slug: "overview", Title: "Overview", DisplayIndividualResults: true}
	s.db.Create(&r)
	s.db.Model(&models.Survey{}).Where("id = ?", survey.ID).Update("default_report_id", r.ID)

	w := s.do(http.MethodGet, "/survey/potholes/report/", "")
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/survey/potholes/reports/overview/" {
		t.Errorf("default report redirect = %d %q", w.Code, w.Header().Get("Location"))
	}
	w = s.do(http.MethodGet, "/survey/potholes/reports/overview/", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Overview") {
		t.Errorf("named report = %d", w.Code)
	}
}

func TestSubmissionsQuery(t *testing.T) {
	s := newServer(t)
	survey := s.seedSurvey(nil, nil)
	subs := s.seedResults(survey, 2)
	s.db.Model(&models.Submission{}).Where("id = ?", subs[0].ID).Update("featured", true)
	s.db.Create(&models.Submission{SurveyID: survey.ID, SubmittedAt: testNow})

	w := s.do(http.MethodGet, "/submissions/?color=red", "")
	if w.Code != http.StatusBadRequest || !strings.HasPrefix(w.Body.String(), "You can't filter on color.") {
		t.Errorf("bad key = %d %q", w.Code, w.Body.String())
	}
	w = s.do(http.MethodGet, "/submissions/?submitted_from=yesterday", "")
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "2024-06-01T12:00:00") {
		t.Errorf("bad date = %d %q", w.Code, w.Body.String())
	}

	w = s.do(http.MethodGet, "/submissions/?survey=potholes", "")
	var all []struct {
		ID     uint           `json:"id"`
		Survey string         `json:"survey"`
		Data   map[string]any `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &all); err != nil {
		t.Fatalf("decode: %v (%s)", err, w.Body.String())
	}
	if len(all) != 2 || all[0].Survey != "potholes" || all[0].Data["name"] != "entry-01" {
		t.Errorf("submissions = %+v", all)
	}

	w = s.do(http.MethodGet, "/submissions/?featured=true", "")
	all = nil
	json.Unmarshal(w.Body.Bytes(), &all)
	if len(all) != 1 || all[0].ID != subs[0].ID {
		t.Errorf("featured = %+v", all)
	}
}

func TestSubmissionPages(t *testing.T) {
	s := newServer(t)
	survey := s.seedSurvey(nil, nil)
	subs := s.seedResults(survey, 1)
	hidden := models.Submission{SurveyID: survey.ID, SubmittedAt: testNow}
	s.db.Create(&hidden)

	w := s.do(http.MethodGet, fmt.Sprintf("/submission/%d/", subs[0].ID), "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "entry-00") {
		t.Errorf("submission page = %d", w.Code)
	}
	w = s.do(http.MethodGet, fmt.Sprintf("/submission/%d/map/", subs[0].ID), "")
	if w.Code != http.StatusOK {
		t.Errorf("map popup = %d", w.Code)
	}
	if w := s.do(http.MethodGet, fmt.Sprintf("/submission/%d/", hidden.ID), ""); w.Code != http.StatusNotFound {
		t.Errorf("moderated submission = %d", w.Code)
	}
}

func TestLocationQuestionResults(t *testing.T) {
	s := newServer(t)
	survey := s.seedSurvey(nil, nil)
	subs := s.seedResults(survey, 3)
	where := survey.Questions[2]
	base := fmt.Sprintf("/question/%d/map-results/", where.ID)

	var out struct {
		Entries []struct {
			Lat float64 `json:"lat"`
			URL string  `json:"url"`
		} `json:"entries"`
	}
	w := s.do(http.MethodGet, base, "")
	json.Unmarshal(w.Body.Bytes(), &out)
	if w.Code != http.StatusOK || len(out.Entries) != 3 {
		t.Fatalf("map results = %d %s", w.Code, w.Body.String())
	}

	w = s.do(http.MethodGet, fmt.Sprintf("%s?submissions=%d,%d&limit=1", base, subs[1].ID, subs[2].ID), "")
	out.Entries = nil
	json.Unmarshal(w.Body.Bytes(), &out)
	if len(out.Entries) != 1 || out.Entries[0].URL != fmt.Sprintf("/submission/%d/map/", subs[1].ID) {
		t.Errorf("subset = %+v", out.Entries)
	}

	if w := s.do(http.MethodGet, base+"?limit=ten", ""); w.Code != http.StatusBadRequest || w.Body.String() != "Invalid limit." {
		t.Errorf("bad limit = %d %q", w.Code, w.Body.String())
	}
	if w := s.do(http.MethodGet, base+"?submissions=1,x", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad ids = %d", w.Code)
	}
	private := survey.Questions[3]
	if w := s.do(http.MethodGet, fmt.Sprintf("/question/%d/map-results/", private.ID), ""); w.Code != http.StatusNotFound {
		t.Errorf("private question = %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	s.seedSurvey(nil, nil)
	w := s.do(http.MethodGet, "/health", "")
	var body struct {
		Status string `json:"status"`
		Live   int64  `json:"published_surveys"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || w.Code != http.StatusOK || body.Live != 1 {
		t.Errorf("health = %d %s", w.Code, w.Body.String())
	}
}
