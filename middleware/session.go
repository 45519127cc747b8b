package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	SessionCookie = "sessionid"
	CtxSessionKey = "sessionKey"

	sessionMaxAge = 60 * 60 * 24 * 365
)

// Session gives every visitor an anonymous session key. Safe requests without
// the cookie get a fresh one; unsafe requests never do, so a POST from a
// client that drops cookies arrives with an empty key.
func Session(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, err := c.Cookie(SessionCookie)
		if err != nil || key == "" {
			key = ""
			if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
				key = uuid.NewString()
				c.SetSameSite(http.SameSiteLaxMode)
				c.SetCookie(SessionCookie, key, sessionMaxAge, "/", "", secure, true)
			}
		}
		c.Set(CtxSessionKey, key)
		c.Next()
	}
}

func SessionKey(c *gin.Context) string {
	return c.GetString(CtxSessionKey)
}
