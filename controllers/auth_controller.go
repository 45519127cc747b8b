package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/vnkhanh/crowdsourcing/logger"
	"github.com/vnkhanh/crowdsourcing/middleware"
	"github.com/vnkhanh/crowdsourcing/models"
	"github.com/vnkhanh/crowdsourcing/utils"
)

func userJSON(u *models.User) gin.H {
	return gin.H{
		"id":         u.ID,
		"username":   u.Username,
		"name":       u.Name,
		"email":      u.Email,
		"is_admin":   u.IsAdmin,
		"created_at": u.CreatedAt,
	}
}

// issueToken answers a successful login: JSON for API clients and a cookie
// for the html pages.
func (h *Handler) issueToken(c *gin.Context, u *models.User) {
	token, err := utils.GenerateToken(h.Cfg.JWTSecret, u.ID, utils.RoleFor(u.IsAdmin))
	if err != nil {
		logger.WithError(err).Error("generate token")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not issue token"})
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, token, int(utils.TokenTTL.Seconds()), "/", "", h.Cfg.IsProduction(), true)
	c.JSON(http.StatusOK, gin.H{"token": token, "user": userJSON(u)})
}

/* ========== Register ========== */

type registerReq struct {
	Username string `json:"username" binding:"required,min=1,max=150"`
	Name     string `json:"name" binding:"required,min=1"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if !utils.ValidateEmail(req.Email) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid email"})
		return
	}
	if ok, msg := utils.ValidatePassword(req.Password); !ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": msg})
		return
	}

	db := h.DB.WithContext(c.Request.Context())
	var count int64
	db.Model(&models.User{}).Where("email = ? OR username = ?", req.Email, req.Username).Count(&count)
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"message": "Email or username already exists"})
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not hash password"})
		return
	}

	u := models.User{
		Username:     req.Username,
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := db.Create(&u).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not create account"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": userJSON(&u)})
}

/* ========== Login ========== */

type loginReq struct {
	Login    string `json:"login" binding:"required"` // username or email
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
		return
	}

	login := strings.TrimSpace(req.Login)
	var u models.User
	err := h.DB.WithContext(c.Request.Context()).
		Where("username = ? OR email = ?", login, strings.ToLower(login)).
		First(&u).Error
	if err != nil || !utils.CheckPassword(u.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
		return
	}
	h.issueToken(c, &u)
}

/* ========== Google login ========== */

type googleLoginReq struct {
	IDToken string `json:"id_token" binding:"required"`
}

func (h *Handler) GoogleLogin(c *gin.Context) {
	if h.Cfg.GoogleClientID == "" {
		c.JSON(http.StatusNotImplemented, gin.H{"message": "Google login is not configured"})
		return
	}
	var req googleLoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
		return
	}

	payload, err := h.Google.Validate(c.Request.Context(), req.IDToken, h.Cfg.GoogleClientID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid Google token"})
		return
	}
	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Google account has no email"})
		return
	}

	db := h.DB.WithContext(c.Request.Context())
	var u models.User
	err = db.Where("email = ?", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if name == "" {
			name = email
		}
		u = models.User{Username: email, Name: name, Email: email}
		err = db.Create(&u).Error
	}
	if err != nil {
		logger.WithError(err).Error("google login")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not sign in"})
		return
	}
	h.issueToken(c, &u)
}

func (h *Handler) Logout(c *gin.Context) {
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", h.Cfg.IsProduction(), true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// GET /api/me
func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": c.MustGet(middleware.CtxUserPublic)})
}

/* ========== User management (admins only) ========== */

func (h *Handler) ListUsers(c *gin.Context) {
	var users []models.User
	if err := h.DB.WithContext(c.Request.Context()).Order("id ASC").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not list users"})
		return
	}
	out := make([]gin.H, 0, len(users))
	for i := range users {
		out = append(out, userJSON(&users[i]))
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

type setAdminReq struct {
	IsAdmin *bool `json:"is_admin" binding:"required"`
}

func (h *Handler) SetUserAdmin(c *gin.Context) {
	var req setAdminReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
		return
	}
	res := h.DB.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("id = ?", c.Param("uid")).Update("is_admin", *req.IsAdmin)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}
