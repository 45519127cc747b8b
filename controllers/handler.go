package controllers

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
	"google.golang.org/api/idtoken"
	"gorm.io/gorm"

	"github.com/vnkhanh/crowdsourcing/config"
	"github.com/vnkhanh/crowdsourcing/logger"
	"github.com/vnkhanh/crowdsourcing/middleware"
	"github.com/vnkhanh/crowdsourcing/services"
)

// IDTokenValidator checks Google sign-in tokens.
type IDTokenValidator interface {
	Validate(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

type googleValidator struct{}

func (googleValidator) Validate(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
	return idtoken.Validate(ctx, token, audience)
}

// Handler holds everything the routes need. It is built once in main.
type Handler struct {
	Cfg       *config.Config
	DB        *gorm.DB
	Templates *template.Template

	Gate     *services.Gate
	Pipeline *services.Pipeline
	Notifier *services.Notifier
	Reports  *services.ReportAssembler
	Maps     *services.MapExtractor
	Exporter *services.Exporter
	Google   IDTokenValidator

	Now func() time.Time
}

type Deps struct {
	Mailer    services.Mailer
	Uploader  services.Uploader
	PreReport services.PreReportFunc
	Google    IDTokenValidator
}

func NewHandler(cfg *config.Config, db *gorm.DB, tmpl *template.Template, deps Deps) *Handler {
	google := deps.Google
	if google == nil {
		google = googleValidator{}
	}
	return &Handler{
		Cfg:       cfg,
		DB:        db,
		Templates: tmpl,
		Gate:      services.NewGate(db),
		Pipeline:  services.NewPipeline(db, deps.Uploader),
		Notifier:  services.NewNotifier(deps.Mailer, cfg.SurveyEmailFrom, cfg.SurveyAdminSite),
		Reports:   services.NewReportAssembler(db, deps.PreReport),
		Maps:      services.NewMapExtractor(db),
		Exporter:  services.NewExporter(db, cfg.ExportDir),
		Google:    google,
		Now:       time.Now,
	}
}

// SetClock makes every service read time from now. Tests use it.
func (h *Handler) SetClock(now func() time.Time) {
	h.Now = now
	h.Gate.Now = now
	h.Pipeline.Now = now
	h.Notifier.Now = now
	h.Reports.Now = now
	h.Maps.Now = now
}

func (h *Handler) visitor(c *gin.Context) services.Visitor {
	v := services.Visitor{SessionKey: middleware.SessionKey(c)}
	if u, ok := middleware.CurrentUser(c); ok {
		id := u.ID
		v.UserID = &id
	}
	return v
}

// page fills the values every html page needs.
func (h *Handler) page(c *gin.Context, title string, data gin.H) gin.H {
	if data == nil {
		data = gin.H{}
	}
	data["Title"] = title
	data["CSRFField"] = csrf.TemplateField(c.Request)
	return data
}

// fail maps service errors on the public html/text pages.
func (h *Handler) fail(c *gin.Context, err error) {
	var redirect *services.RedirectError
	var filterErr *services.FilterError
	switch {
	case errors.As(err, &redirect):
		c.Redirect(http.StatusFound, redirect.URL)
	case errors.As(err, &filterErr):
		c.String(http.StatusBadRequest, filterErr.Message)
	case errors.Is(err, services.ErrNotFound):
		c.String(http.StatusNotFound, "Not Found")
	default:
		logger.WithError(err).WithFields(map[string]any{"path": c.Request.URL.Path}).Error("request failed")
		c.String(http.StatusInternalServerError, "Server Error")
	}
	c.Abort()
}
