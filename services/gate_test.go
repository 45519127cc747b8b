package services

import (
	"errors"
	"testing"
	"time"

	"github.com/vnkhanh/crowdsourcing/models"
)

func TestGateDecide(t *testing.T) {
	past := testNow.Add(-time.Hour)
	uid := uint(42)

	cases := []struct {
		name    string
		edit    func(*models.Survey)
		visitor Visitor
		entered bool
		want    SurveyAction
	}{
		{name: "open anonymous", visitor: Visitor{SessionKey: "s1"}, want: ShowForm},
		{name: "open no session", want: ShowForm},
		{
			name:    "login required anonymous",
			edit:    func(s *models.Survey) { s.RequireLogin = true },
			visitor: Visitor{SessionKey: "s1"},
			want:    ShowLoginRequired,
		},
		{
			name:    "login required user",
			edit:    func(s *models.Survey) { s.RequireLogin = true },
			visitor: Visitor{UserID: &uid},
			want:    ShowForm,
		},
		{
			name:    "closed with public results",
			edit:    func(s *models.Survey) { s.EndsAt = &past },
			visitor: Visitor{SessionKey: "s1"},
			want:    RedirectToResults,
		},
		{
			name: "closed without results",
			edit: func(s *models.Survey) {
				s.EndsAt = &past
				s.ArchivePolicy = models.ArchiveNever
			},
			visitor: Visitor{SessionKey: "s1"},
			want:    ShowClosed,
		},
		{
			name:    "not started yet",
			edit:    func(s *models.Survey) { s.StartsAt = testNow.Add(time.Hour); s.ArchivePolicy = models.ArchivePostClose },
			visitor: Visitor{SessionKey: "s1"},
			want:    RedirectToResults,
		},
		{
			name:    "already entered",
			visitor: Visitor{SessionKey: "s1"},
			entered: true,
			want:    ShowAlreadySubmitted,
		},
		{
			name:    "already entered, closed",
			edit:    func(s *models.Survey) { s.EndsAt = &past },
			visitor: Visitor{SessionKey: "s1"},
			entered: true,
			want:    ShowAlreadySubmitted,
		},
		{
			name:    "multiple entries allowed",
			edit:    func(s *models.Survey) { s.AllowMultipleSubmissions = true },
			visitor: Visitor{SessionKey: "s1"},
			entered: true,
			want:    ShowForm,
		},
		{
			name:    "other session entered",
			visitor: Visitor{SessionKey: "s2"},
			entered: true,
			want:    ShowForm,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			db := newTestDB(t)
			s := seedSurvey(t, db, c.edit)
			if c.entered {
				db.Create(&models.Submission{SurveyID: s.ID, SessionKey: "s1", SubmittedAt: testNow})
			}
			g := NewGate(db)
			g.Now = fixedNow

			got, err := g.Decide(t.Context(), s, c.visitor)
			if err != nil {
				t.Fatalf("Decide: %v", err)
			}
			if got != c.want {
				t.Errorf("Decide = %s, want %s", got, c.want)
			}
		})
	}
}

func TestGateEnteredByUser(t *testing.T) {
	db := newTestDB(t)
	s := seedSurvey(t, db, nil)
	uid := uint(7)
	db.Create(&models.Submission{SurveyID: s.ID, UserID: &uid, SessionKey: "other", SubmittedAt: testNow})

	g := NewGate(db)
	g.Now = fixedNow
	ctx := t.Context()

	if ok, _ := g.Entered(ctx, s, Visitor{UserID: &uid, SessionKey: "fresh"}); !ok {
		t.Errorf("user with a submission should count as entered")
	}
	if ok, _ := g.Entered(ctx, s, Visitor{}); ok {
		t.Errorf("visitor without session or user can never have entered")
	}
	if ok, _ := g.CanShowForm(ctx, s, Visitor{UserID: &uid}); ok {
		t.Errorf("CanShowForm should be false after entering")
	}
}

func TestLoadLiveSurvey(t *testing.T) {
	db := newTestDB(t)
	seedSurvey(t, db, func(s *models.Survey) { s.Slug = "draft"; s.IsPublished = false })
	live := seedSurvey(t, db, nil)

	if _, err := LoadLiveSurvey(t.Context(), db, "draft"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unpublished survey err = %v, want ErrNotFound", err)
	}
	if len(live.Questions) != 5 || live.Questions[0].FieldName != "name" || live.Questions[4].FieldName != "depth" {
		t.Errorf("questions not loaded in order: %+v", live.Questions)
	}
}
