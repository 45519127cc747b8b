package services

import (
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/vnkhanh/crowdsourcing/models"
)

func TestParseFlag(t *testing.T) {
	for _, v := range []string{"", "f", "False", "n", "NO", "0"} {
		if ParseFlag(v) {
			t.Errorf("ParseFlag(%q) = true", v)
		}
	}
	for _, v := range []string{"1", "t", "true", "yes", "on", "anything"} {
		if !ParseFlag(v) {
			t.Errorf("ParseFlag(%q) = false", v)
		}
	}
}

func TestParseSubmissionFilterUnknownKey(t *testing.T) {
	_, err := ParseSubmissionFilter(url.Values{"survey": {"potholes"}, "color": {"red"}}, testNow)
	var fe *FilterError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FilterError", err)
	}
	want := "You can't filter on color. Valid options are (survey, user, submitted_from, submitted_to, featured)."
	if fe.Message != want {
		t.Errorf("message = %q, want %q", fe.Message, want)
	}
}

func TestParseSubmissionFilterBadDate(t *testing.T) {
	_, err := ParseSubmissionFilter(url.Values{"submitted_from": {"2024-06-01"}}, testNow)
	var fe *FilterError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FilterError", err)
	}
	if !strings.HasPrefix(fe.Message, "Invalid submitted_from format. Try, for example, 2024-06-01T12:00:00") {
		t.Errorf("message = %q", fe.Message)
	}
}

func TestSubmissionFilterApply(t *testing.T) {
	db := newTestDB(t)
	s := seedSurvey(t, db, nil)
	other := seedSurvey(t, db, func(s *models.Survey) { s.Slug = "graffiti" })

	user := models.User{Username: "ana", Name: "Ana", Email: "ana@example.com"}
	db.Create(&user)

	a := addSubmission(t, db, s, testNow.Add(-3*time.Hour), true)
	addSubmission(t, db, s, testNow.Add(-1*time.Hour), true)
	addSubmission(t, db, other, testNow.Add(-2*time.Hour), true)
	db.Model(&a).Updates(map[string]any{"featured": true, "user_id": user.ID})

	count := func(values url.Values) int64 {
		t.Helper()
		f, err := ParseSubmissionFilter(values, testNow)
		if err != nil {
			t.Fatalf("parse %v: %v", values, err)
		}
		var n int64
		if err := f.Apply(db.Model(&models.Submission{})).Count(&n).Error; err != nil {
			t.Fatalf("count: %v", err)
		}
		return n
	}

	cases := []struct {
		values url.Values
		want   int64
	}{
		{url.Values{}, 3},
		{url.Values{"survey": {"potholes"}}, 2},
		{url.Values{"survey": {"nope"}}, 0},
		{url.Values{"featured": {"1"}}, 1},
		{url.Values{"featured": {"no"}}, 3},
		{url.Values{"user": {"ana"}}, 1},
		{url.Values{"user": {""}}, 2},
		{url.Values{"submitted_from": {"2024-06-01T10:00:00"}}, 2},
		{url.Values{"submitted_to": {"2024-06-01T10:00:00"}}, 2},
	}
	for _, c := range cases {
		if got := count(c.values); got != c.want {
			t.Errorf("filter %v matched %d, want %d", c.values, got, c.want)
		}
	}
}

func TestFieldFilters(t *testing.T) {
	db := newTestDB(t)
	s := seedSurvey(t, db, nil)
	color, depth := question(t, s, "color"), question(t, s, "depth")

	addSubmission(t, db, s, testNow, true, text(color, "red"), integer(depth, 3))
	addSubmission(t, db, s, testNow, true, text(color, "red"), integer(depth, 10))
	addSubmission(t, db, s, testNow, true, text(color, "blue"), integer(depth, 5))

	filters := ParseFieldFilters(s.Questions, url.Values{
		"color":      {"red"},
		"depth_from": {"4"},
		"name":       {"ignored, not a filter"},
	})
	if len(filters) != 2 {
		t.Fatalf("got %d filters, want 2 (only use_as_filter questions)", len(filters))
	}
	if !filters[1].IsRange() {
		t.Errorf("depth filter should be a range")
	}

	var ids []uint
	q := ApplyFieldFilters(db.Model(&models.Submission{}), "submissions.id", filters)
	if err := q.Pluck("submissions.id", &ids).Error; err != nil {
		t.Fatalf("pluck: %v", err)
	}
	if len(ids) != 1 {
		t.Errorf("matched %v, want the single red submission deeper than 4", ids)
	}

	bad := ParseFieldFilters(s.Questions, url.Values{"depth_from": {"deep"}})
	for _, f := range bad {
		if f.Active {
			t.Errorf("filter on %s should be inactive for malformed input", f.Question.FieldName)
		}
	}
}
