package routes

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/crowdsourcing/controllers"
	"github.com/vnkhanh/crowdsourcing/middleware"
)

func SetupRoutes(r *gin.Engine, h *controllers.Handler) {
	secure := h.Cfg.IsProduction()
	limiter := middleware.NewIPRateLimiter(30, 10, 5*time.Minute)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})
	r.GET("/health", h.HealthCheck)

	// Public site: anonymous sessions, optional login, CSRF on the html form.
	site := r.Group("/")
	site.Use(middleware.Session(secure), middleware.OptionalAuth(h.DB, h.Cfg.JWTSecret))
	if h.Cfg.CSRFKey != "" {
		site.Use(middleware.CSRF([]byte(h.Cfg.CSRFKey), secure))
	}
	{
		site.GET("/survey/:slug/", h.SurveyDetail)
		site.POST("/survey/:slug/", middleware.RateLimitByIP(limiter), h.SurveyDetail)
		site.GET("/survey/:slug/actions/", h.SurveyActions)
		site.GET("/survey/:slug/questions/", h.SurveyQuestions)

		site.GET("/survey/:slug/report/", h.SurveyReport)
		site.GET("/survey/:slug/report/page/:page/", h.SurveyReport)
		site.GET("/survey/:slug/reports/:report/", h.SurveyReport)
		site.GET("/survey/:slug/reports/:report/page/:page/", h.SurveyReport)
		site.GET("/survey/:slug/embed/report/", h.EmbeddedSurveyReport)
		site.GET("/survey/:slug/embed/reports/:report/", h.EmbeddedSurveyReport)

		site.GET("/submissions/", h.Submissions)
		site.GET("/submission/:id/", h.SubmissionDetail)
		site.GET("/submission/:id/map/", h.SubmissionForMap)
		site.GET("/question/:id/map-results/", h.LocationQuestionResults)
	}

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		auth.Use(middleware.RateLimitByIP(limiter))
		{
			auth.POST("/register", h.Register)
			auth.POST("/login", h.Login)
			auth.POST("/google/login", h.GoogleLogin)
			auth.POST("/logout", h.Logout)
		}

		protected := api.Group("/")
		protected.Use(middleware.AuthJWT(h.DB, h.Cfg.JWTSecret))
		{
			protected.GET("/me", h.Me)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.AuthJWT(h.DB, h.Cfg.JWTSecret))
		{
			admin.GET("/users", middleware.RequireAdmin(), h.ListUsers)
			admin.PUT("/users/:uid/admin", middleware.RequireAdmin(), h.SetUserAdmin)

			admin.POST("/surveys", h.CreateSurvey)
			admin.GET("/surveys", h.ListSurveys)
			admin.GET("/exports/:job_id", h.GetExport)

			survey := admin.Group("/surveys/:id")
			survey.Use(middleware.CheckSurveyAdmin(h.DB))
			{
				survey.GET("", h.GetSurvey)
				survey.PUT("", h.UpdateSurvey)
				survey.DELETE("", h.DeleteSurvey)
				survey.POST("/publish", h.PublishSurvey)
				survey.POST("/unpublish", h.UnpublishSurvey)
				survey.GET("/dashboard", h.SurveyDashboard)

				survey.POST("/questions", h.AddQuestion)
				survey.PUT("/questions/reorder", h.ReorderQuestions)
				survey.PUT("/questions/:qid", h.UpdateQuestion)
				survey.DELETE("/questions/:qid", h.DeleteQuestion)

				survey.GET("/reports", h.ListReports)
				survey.POST("/reports", h.CreateReport)
				survey.GET("/reports/default", h.PreviewDefaultReport)

				survey.GET("/submissions", h.ListSubmissions)
				survey.GET("/submissions/:sub_id", h.GetSubmissionDetail)
				survey.PATCH("/submissions/:sub_id", h.ModerateSubmission)
				survey.DELETE("/submissions/:sub_id", h.DeleteSubmission)

				survey.POST("/export", h.CreateExport)
			}
		}
	}
}
