package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/vnkhanh/crowdsourcing/models"
	"github.com/vnkhanh/crowdsourcing/utils"
)

const (
	CtxUser       = "user"
	CtxUserPublic = "userPublic"

	// TokenCookie carries the JWT for the html pages.
	TokenCookie = "access_token"
)

var errNoToken = errors.New("no token")

// tokenFromRequest prefers "Authorization: Bearer <token>" over the cookie.
func tokenFromRequest(c *gin.Context) (string, error) {
	if h := c.GetHeader("Authorization"); h != "" {
		if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
			return "", errors.New("invalid authorization header")
		}
		return strings.TrimSpace(h[7:]), nil
	}
	if v, err := c.Cookie(TokenCookie); err == nil && v != "" {
		return v, nil
	}
	return "", errNoToken
}

func loadUser(db *gorm.DB, secret, raw string) (*models.User, error) {
	claims, err := utils.VerifyToken(secret, raw)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := db.First(&user, claims.UserID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func setUser(c *gin.Context, user *models.User) {
	c.Set(CtxUser, user)
	c.Set(CtxUserPublic, gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"name":       user.Name,
		"email":      user.Email,
		"is_admin":   user.IsAdmin,
		"created_at": user.CreatedAt,
	})
}

// AuthJWT validates the token, loads the user and puts it in the context.
func AuthJWT(db *gorm.DB, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := tokenFromRequest(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Missing or invalid Authorization header"})
			return
		}
		user, err := loadUser(db.WithContext(c.Request.Context()), secret, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid token"})
			return
		}
		setUser(c, user)
		c.Next()
	}
}

// OptionalAuth resolves the user when a valid token is present and lets
// anonymous requests through untouched.
func OptionalAuth(db *gorm.DB, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, err := tokenFromRequest(c); err == nil {
			if user, err := loadUser(db.WithContext(c.Request.Context()), secret, raw); err == nil {
				setUser(c, user)
			}
		}
		c.Next()
	}
}

// RequireAdmin must run after AuthJWT.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}
		if !u.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Forbidden"})
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(CtxUser)
	if !ok {
		return nil, false
	}
	u, ok := v.(*models.User)
	return u, ok && u != nil
}
