package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/vnkhanh/crowdsourcing/logger"
	"github.com/vnkhanh/crowdsourcing/models"
)

const CtxSurvey = "surveyObj"

// CheckSurveyAdmin loads the survey named by :id and lets admins through, plus
// the user that created it.
func CheckSurveyAdmin(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid survey id"})
			return
		}

		var s models.Survey
		if err := db.WithContext(c.Request.Context()).First(&s, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "Survey not found"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Could not read survey"})
			return
		}

		owner := s.CreatedByID != nil && *s.CreatedByID == user.ID
		if !user.IsAdmin && !owner {
			logger.WithFields(map[string]any{"user": user.ID, "survey": s.ID}).Warn("survey access denied")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "You cannot manage this survey"})
			return
		}

		c.Set(CtxSurvey, &s)
		c.Next()
	}
}
