package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/crowdsourcing/config"
	"github.com/vnkhanh/crowdsourcing/controllers"
	"github.com/vnkhanh/crowdsourcing/logger"
	"github.com/vnkhanh/crowdsourcing/middleware"
	"github.com/vnkhanh/crowdsourcing/routes"
	"github.com/vnkhanh/crowdsourcing/services"
	"github.com/vnkhanh/crowdsourcing/templates"
	"github.com/vnkhanh/crowdsourcing/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	db, err := config.ConnectDB(cfg)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}

	tmpl, err := templates.Load()
	if err != nil {
		logger.Fatalf("templates: %v", err)
	}

	preReport, err := services.LookupPreReport(cfg.PreReport)
	if err != nil {
		logger.Fatalf("PRE_REPORT: %v", err)
	}

	deps := controllers.Deps{PreReport: preReport}
	if cfg.SMTPHost != "" {
		deps.Mailer = utils.NewSMTPMailer(utils.SMTPConfig{
			Host:          cfg.SMTPHost,
			Port:          cfg.SMTPPort,
			User:          cfg.SMTPUser,
			Pass:          cfg.SMTPPass,
			SkipTLSVerify: cfg.SMTPSkipTLSVerify,
		})
	}
	if cfg.SupabaseURL != "" {
		deps.Uploader = utils.NewSupabaseUploader(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseBucket)
	} else {
		logger.Warn("SUPABASE_URL not set, photo questions will reject uploads")
	}
	h := controllers.NewHandler(cfg, db, tmpl, deps)

	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-CSRF-Token"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
		AllowWildcard:    true,
	}))
	if err := r.SetTrustedProxies(nil); err != nil {
		panic(err)
	}
	r.SetHTMLTemplate(tmpl)

	r.GET("/", func(c *gin.Context) {
		c.String(200, "Crowdsourcing survey server is running")
	})
	routes.SetupRoutes(r, h)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Infof("Server listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}
