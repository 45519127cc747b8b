package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/crowdsourcing/services"
	"github.com/vnkhanh/crowdsourcing/templates"
)

// GET /survey/:slug/report/, /survey/:slug/report/page/:page/,
// /survey/:slug/reports/:report/ and /survey/:slug/reports/:report/page/:page/
func (h *Handler) SurveyReport(c *gin.Context) {
	slug := c.Param("slug")
	res, err := h.Reports.Assemble(c.Request.Context(), services.ReportRequest{
		Slug:       slug,
		ReportSlug: c.Param("report"),
		PageToken:  c.Param("page"),
		Query:      c.Request.URL.Query(),
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	pageURLs := map[int]string{}
	for _, l := range res.PageLinks {
		if !l.Gap {
			pageURLs[l.Number] = services.ReportPageURL(slug, c.Param("report"), l.Number)
		}
	}

	thanks := false
	if v, err := c.Cookie(thanksCookie(slug)); err == nil && v != "" {
		thanks = true
		c.SetCookie(thanksCookie(slug), "", -1, "/", "", h.Cfg.IsProduction(), true)
	}

	name := templates.Pick(h.Templates, "survey_report_"+slug+".html", "survey_report.html")
	c.HTML(http.StatusOK, name, h.page(c, res.Report.Title, gin.H{
		"Result":   res,
		"PageURLs": pageURLs,
		"Thanks":   thanks,
	}))
}

// GET /survey/:slug/embed/report/ and /survey/:slug/embed/reports/:report/
// always show the first page.
func (h *Handler) EmbeddedSurveyReport(c *gin.Context) {
	slug := c.Param("slug")
	res, err := h.Reports.Assemble(c.Request.Context(), services.ReportRequest{
		Slug:       slug,
		ReportSlug: c.Param("report"),
		Query:      c.Request.URL.Query(),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	name := templates.Pick(h.Templates, "embeded_survey_report_"+slug+".html", "embeded_survey_report.html")
	c.HTML(http.StatusOK, name, gin.H{"Result": res})
}
