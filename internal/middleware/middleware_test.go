package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stemsi/pemetaan-keswa/internal/config"
	"github.com/stemsi/pemetaan-keswa/internal/response"
	"github.com/stemsi/pemetaan-keswa/internal/service"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) response.ErrCode {
	t.Helper()
	var body response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	if body.Error == nil {
		return ""
	}
	return body.Error.Code
}

func signToken(t *testing.T, expiresIn time.Duration, perms ...string) string {
	t.Helper()
	now := time.Now()
	claims := &service.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
		UserID:      5,
		RoleID:      2,
		Permissions: perms,
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestRequireJWT(t *testing.T) {
	auth := service.NewAuthService(&config.Config{JWTSecret: testSecret, JWTExpiry: time.Hour}, nil)

	r := gin.New()
	r.GET("/me", RequireJWT(auth), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetClaims(c).UserID})
	})

	valid := signToken(t, time.Hour)
	tests := []struct {
		name     string
		header   string
		query    string
		status   int
		wantCode response.ErrCode
	}{
		{"missing", "", "", http.StatusUnauthorized, response.ErrTokenRequired},
		{"bearer", "Bearer " + valid, "", http.StatusOK, ""},
		{"lowercase scheme", "bearer " + valid, "", http.StatusOK, ""},
		{"query fallback", "", "?token=" + valid, http.StatusOK, ""},
		{"garbage", "Bearer abc.def.ghi", "", http.StatusUnauthorized, response.ErrTokenInvalid},
		{"expired", "Bearer " + signToken(t, -time.Minute), "", http.StatusUnauthorized, response.ErrTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.status, w.Body.String())
			}
			if tt.wantCode != "" {
				if got := errorCode(t, w); got != tt.wantCode {
					t.Errorf("code = %s, want %s", got, tt.wantCode)
				}
			}
		})
	}
}

func TestRequireWSAuth_HeaderIgnored(t *testing.T) {
	auth := service.NewAuthService(&config.Config{JWTSecret: testSecret}, nil)
	r := gin.New()
	r.GET("/ws", RequireWSAuth(auth), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, time.Hour))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws?token="+signToken(t, time.Hour), nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
}

func withClaims(perms ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKeyClaims, &service.Claims{UserID: 1, Permissions: perms})
		c.Next()
	}
}

func TestRequirePermission(t *testing.T) {
	tests := []struct {
		name   string
		setup  gin.HandlerFunc
		guard  gin.HandlerFunc
		status int
	}{
		{"no claims", func(c *gin.Context) { c.Next() }, RequirePermission("templates:write"), http.StatusUnauthorized},
		{"granted", withClaims("templates:write"), RequirePermission("templates:write"), http.StatusOK},
		{"denied", withClaims("surveys:write"), RequirePermission("templates:write"), http.StatusForbidden},
		{"any granted", withClaims("surveys:read_all"), RequireAnyPermission("monitor:read", "surveys:read_all"), http.StatusOK},
		{"any denied", withClaims("surveys:write"), RequireAnyPermission("monitor:read", "surveys:read_all"), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/x", tt.setup, tt.guard, func(c *gin.Context) { c.Status(http.StatusOK) })
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.allow("a") || !rl.allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.allow("a") {
		t.Fatal("third request should be limited")
	}
	if !rl.allow("b") {
		t.Fatal("buckets are per key")
	}

	now = now.Add(30 * time.Second)
	if rl.allow("a") {
		t.Fatal("partial interval should not refill")
	}

	now = now.Add(31 * time.Second)
	if !rl.allow("a") {
		t.Fatal("bucket should refill after one interval")
	}

	now = now.Add(10 * time.Minute)
	rl.cleanup()
	rl.mu.Lock()
	n := len(rl.visitors)
	rl.mu.Unlock()
	if n != 0 {
		t.Errorf("visitors after cleanup = %d, want 0", n)
	}
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	r := gin.New()
	r.POST("/login", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("first status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", w.Header().Get("Retry-After"))
	}
	if got := errorCode(t, w); got != response.ErrRateLimitExceeded {
		t.Errorf("code = %s", got)
	}
}

func TestByUser(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "10.0.0.9:1234"
	if got := ByUser(c); got != "10.0.0.9" {
		t.Errorf("anonymous key = %q", got)
	}
	c.Set(ContextKeyClaims, &service.Claims{UserID: 42})
	if got := ByUser(c); got != "user:42" {
		t.Errorf("user key = %q", got)
	}
}

func TestBrotli(t *testing.T) {
	large := strings.Repeat("fasilitas kesehatan jiwa ", 200)

	r := gin.New()
	r.Use(Brotli())
	r.GET("/large", func(c *gin.Context) { c.String(http.StatusOK, large) })
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	t.Run("compressed", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/large", nil)
		req.Header.Set("Accept-Encoding", "gzip, br")
		r.ServeHTTP(w, req)

		if w.Header().Get("Content-Encoding") != "br" {
			t.Fatalf("Content-Encoding = %q", w.Header().Get("Content-Encoding"))
		}
		body, err := io.ReadAll(brotli.NewReader(bytes.NewReader(w.Body.Bytes())))
		if err != nil {
			t.Fatalf("decompress: %v", err)
		}
		if string(body) != large {
			t.Error("round-tripped body differs")
		}
	})

	t.Run("below threshold", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/small", nil)
		req.Header.Set("Accept-Encoding", "br")
		r.ServeHTTP(w, req)
		if w.Header().Get("Content-Encoding") != "" || w.Body.String() != "ok" {
			t.Errorf("small body altered: %q %q", w.Header().Get("Content-Encoding"), w.Body.String())
		}
	})

	t.Run("not accepted", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/large", nil)
		req.Header.Set("Accept-Encoding", "gzip, br;q=0")
		r.ServeHTTP(w, req)
		if w.Header().Get("Content-Encoding") != "" || w.Body.String() != large {
			t.Error("response compressed although br was refused")
		}
	})

	t.Run("event stream", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/large", nil)
		req.Header.Set("Accept-Encoding", "br")
		req.Header.Set("Accept", "text/event-stream")
		r.ServeHTTP(w, req)
		if w.Header().Get("Content-Encoding") != "" {
			t.Error("SSE request was compressed")
		}
	})
}

func TestNoStore(t *testing.T) {
	r := gin.New()
	r.GET("/x", NoStore(), func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("Cache-Control = %q", w.Header().Get("Cache-Control"))
	}
}
