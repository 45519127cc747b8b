package services

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/vnkhanh/crowdsourcing/logger"
	"github.com/vnkhanh/crowdsourcing/models"
)

// Mailer sends one HTML message.
type Mailer interface {
	Send(from string, to []string, subject, htmlBody string) error
}

type Notifier struct {
	Mailer    Mailer
	From      string
	AdminSite string
	Now       func() time.Time
}

func NewNotifier(m Mailer, from, adminSite string) *Notifier {
	return &Notifier{Mailer: m, From: from, AdminSite: adminSite, Now: time.Now}
}

// EditURL joins path onto the admin site, or onto siteURL (the origin the
// submission came in on) when no admin site is configured. A bare host gets an
// http:// prefix.
func EditURL(adminSite, siteURL, path string) string {
	site := adminSite
	if site == "" {
		site = siteURL
	}
	return absURL(site, path)
}

func absURL(site, path string) string {
	site = strings.TrimRight(site, "/")
	if site != "" && !strings.HasPrefix(site, "http://") && !strings.HasPrefix(site, "https://") {
		site = "http://" + site
	}
	return site + path
}

// Body renders the notification html: admin links first, then one
// "label: value" line per answer, joined with <br/>. siteURL is the
// scheme and host of the public site.
func (n *Notifier) Body(survey *models.Survey, sub *models.Submission, siteURL string) string {
	lines := []string{
		link(EditURL(n.AdminSite, siteURL, AdminSubmissionURL(survey.ID, sub.ID)), "Edit Submission"),
		link(EditURL(n.AdminSite, siteURL, AdminSurveyURL(survey.ID)), "Edit Survey"),
	}
	if survey.CanHavePublicSubmissions(n.Now()) {
		lines = append(lines, link(absURL(siteURL, ReportURL(survey.Slug)), "View Survey"))
	}
	for _, a := range sub.Answers {
		label := ""
		if a.Question != nil {
			label = a.Question.Label
		}
		lines = append(lines, html.EscapeString(label)+": "+html.EscapeString(a.Value()))
	}
	return strings.Join(lines, "<br/>\n")
}

// Notify is best effort: failures are logged and never returned.
func (n *Notifier) Notify(survey *models.Survey, sub *models.Submission, siteURL string) {
	to := survey.Recipients()
	if len(to) == 0 || n.Mailer == nil {
		return
	}
	if err := n.Mailer.Send(n.From, to, survey.Title, n.Body(survey, sub, siteURL)); err != nil {
		logger.WithError(err).WithFields(map[string]any{
			"survey":     survey.Slug,
			"submission": sub.ID,
		}).Error("sending submission notification failed")
	}
}

func link(href, text string) string {
	return fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(href), text)
}
