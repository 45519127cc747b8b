package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSessionIssuedOnSafeRequestsOnly(t *testing.T) {
	r := gin.New()
	r.Use(Session(false))
	r.Any("/", func(c *gin.Context) { c.String(http.StatusOK, SessionKey(c)) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	key := w.Body.String()
	if key == "" || !strings.Contains(w.Header().Get("Set-Cookie"), SessionCookie+"="+key) {
		t.Fatalf("GET did not issue a session: %q %q", key, w.Header().Get("Set-Cookie"))
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	w = serve(r, req)
	if w.Body.String() != "" || w.Header().Get("Set-Cookie") != "" {
		t.Errorf("POST without cookie got session %q", w.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: key})
	if got := serve(r, req).Body.String(); got != key {
		t.Errorf("POST with cookie = %q, want %q", got, key)
	}
}

func TestRateLimitByIP(t *testing.T) {
	rl := NewIPRateLimiter(1, 2, time.Minute)
	r := gin.New()
	r.Use(RateLimitByIP(rl))
	r.Any("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := []int{}
	for i := 0; i < 3; i++ {
		codes = append(codes, serve(r, httptest.NewRequest(http.MethodPost, "/", nil)).Code)
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusNoContent || codes[2] != http.StatusTooManyRequests {
		t.Errorf("POST codes = %v", codes)
	}
	if w := serve(r, httptest.NewRequest(http.MethodPost, "/", nil)); w.Header().Get("Retry-After") == "" {
		t.Errorf("throttled response has no Retry-After")
	}
	if w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil)); w.Code != http.StatusNoContent {
		t.Errorf("GET throttled: %d", w.Code)
	}
}

func TestRateLimiterForgetsIdleIPs(t *testing.T) {
	rl := NewIPRateLimiter(60, 1, time.Minute)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if ok, _ := rl.Allow("192.0.2.1"); !ok {
		t.Fatal("first request denied")
	}
	if ok, wait := rl.Allow("192.0.2.1"); ok || wait <= 0 {
		t.Errorf("second request = %v, wait %v", ok, wait)
	}
	now = now.Add(2 * time.Minute)
	if n := rl.forgetIdle(); n != 1 {
		t.Errorf("forgot %d buckets, want 1", n)
	}
}

func TestCSRF(t *testing.T) {
	r := gin.New()
	r.Use(CSRF([]byte("0123456789abcdef0123456789abcdef"), false))
	r.GET("/form", func(c *gin.Context) { c.String(http.StatusOK, csrf.Token(c.Request)) })
	r.POST("/form", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/form", nil))
	token := w.Body.String()
	cookies := w.Result().Cookies()
	if token == "" || len(cookies) == 0 {
		t.Fatalf("no token issued")
	}

	post := func(form url.Values) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/form", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		for _, c := range cookies {
			req.AddCookie(c)
		}
		return serve(r, req)
	}
	if w := post(url.Values{}); w.Code != http.StatusForbidden {
		t.Errorf("POST without token = %d", w.Code)
	}
	if w := post(url.Values{"gorilla.csrf.Token": {token}}); w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Errorf("POST with token = %d %q", w.Code, w.Body.String())
	}
}
