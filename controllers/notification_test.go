package controllers_test

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/vnkhanh/crowdsourcing/middleware"
	"github.com/vnkhanh/crowdsourcing/models"
)

type capturedMail struct {
	to   []string
	body string
}

type captureMailer struct {
	sent []capturedMail
}

func (m *captureMailer) Send(_ string, to []string, _, body string) error {
	m.sent = append(m.sent, capturedMail{to: to, body: body})
	return nil
}

var hrefRe = regexp.MustCompile(`href="([^"]+)"`)

func TestSubmissionNotificationLinks(t *testing.T) {
	s := newServer(t)
	mailer := &captureMailer{}
	s.h.Notifier.Mailer = mailer
	s.seedSurvey(nil, func(sv *models.Survey) { sv.Email = "editor@example.com" })
	_, adminToken := s.user("root", true)

	w := s.do(http.MethodGet, "/survey/potholes/", "")
	session := cookieNamed(w, middleware.SessionCookie)
	w = s.postForm("/survey/potholes/", url.Values{"name": {"Ana"}}, withCookies(session))
	if w.Code != http.StatusFound {
		t.Fatalf("POST = %d %s", w.Code, w.Body.String())
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d mails, want 1", len(mailer.sent))
	}

	hrefs := hrefRe.FindAllStringSubmatch(mailer.sent[0].body, -1)
	if len(hrefs) != 3 {
		t.Fatalf("want 3 links, body:\n%s", mailer.sent[0].body)
	}
	for _, m := range hrefs {
		href := strings.ReplaceAll(m[1], "&amp;", "&")
		u, err := url.Parse(href)
		if err != nil || u.Scheme != "http" || u.Host != "example.com" {
			t.Errorf("link %q is not absolute on the request host", href)
			continue
		}
		if w := s.do(http.MethodGet, u.RequestURI(), "", withToken(adminToken)); w.Code != http.StatusOK {
			t.Errorf("GET %s = %d", u.RequestURI(), w.Code)
		}
	}
}
