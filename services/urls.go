package services

import (
	"fmt"
	"net/url"
	"strings"
)

func SurveyURL(slug string) string {
	return "/survey/" + slug + "/"
}

// ReportURL is the first page of the survey's default report.
func ReportURL(slug string) string {
	return "/survey/" + slug + "/report/"
}

func NamedReportURL(slug, report string) string {
	return "/survey/" + slug + "/reports/" + report + "/"
}

// ReportPageURL builds links for page n of either report flavour.
func ReportPageURL(slug, report string, n int) string {
	if report == "" {
		return fmt.Sprintf("/survey/%s/report/page/%d/", slug, n)
	}
	return fmt.Sprintf("/survey/%s/reports/%s/page/%d/", slug, report, n)
}

func SubmissionURL(id uint) string {
	return fmt.Sprintf("/submission/%d/", id)
}

func SubmissionMapURL(id uint) string {
	return fmt.Sprintf("/submission/%d/map/", id)
}

func MapResultsURL(questionID uint) string {
	return fmt.Sprintf("/question/%d/map-results/", questionID)
}

// LoginURL appends ?next=<path> to the configured login page.
func LoginURL(loginPage, next string) string {
	if loginPage == "" {
		return "/?login_required=true"
	}
	sep := "?"
	if strings.Contains(loginPage, "?") {
		sep = "&"
	}
	return loginPage + sep + "next=" + url.QueryEscape(next)
}

// AdminSurveyURL is the admin API resource of a survey.
func AdminSurveyURL(surveyID uint) string {
	return fmt.Sprintf("/api/admin/surveys/%d", surveyID)
}

func AdminSubmissionURL(surveyID, submissionID uint) string {
	return fmt.Sprintf("/api/admin/surveys/%d/submissions/%d", surveyID, submissionID)
}
