package security

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestSecurityConfig(t *testing.T) {
	config := DefaultSecurityConfig()

	assert.Equal(t, int64(1<<20), config.MaxBodyBytes)
	assert.Equal(t, 10000, config.MaxTextLength)
	assert.Equal(t, 60*time.Second, config.RequestTimeout)

	sm := NewSecurityMiddleware(SecurityConfig{MaxTextLength: 5})
	assert.Equal(t, 5, sm.Config().MaxTextLength)
	assert.Equal(t, config.MaxBodyBytes, sm.Config().MaxBodyBytes)
}

func TestValidateText(t *testing.T) {
	sm := NewSecurityMiddleware(SecurityConfig{MaxTextLength: 20})

	tests := []struct {
		name     string
		input    string
		errorMsg string
	}{
		{name: "valid", input: "Fresh taste, 50% off"},
		{name: "counts runes not bytes", input: strings.Repeat("é", 20)},
		{name: "too long", input: strings.Repeat("a", 21), errorMsg: "exceeds maximum length"},
		{name: "null byte", input: "buy\x00now", errorMsg: "invalid characters"},
		{name: "invalid UTF-8", input: "buy\xff\xfe", errorMsg: "invalid UTF-8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sm.ValidateText(tt.input)
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestValidateRef(t *testing.T) {
	sm := NewSecurityMiddleware(DefaultSecurityConfig())

	tests := []struct {
		name    string
		ref     string
		wantErr bool
	}{
		{name: "empty", ref: ""},
		{name: "https url", ref: "https://cdn.example.com/ads/summer.png"},
		{name: "asset key", ref: "campaigns/summer/hero.mp4"},
		{name: "file scheme", ref: "file:///etc/passwd", wantErr: true},
		{name: "url without host", ref: "https:///x.png", wantErr: true},
		{name: "absolute path", ref: "/etc/passwd", wantErr: true},
		{name: "traversal", ref: "ads/../../secret", wantErr: true},
		{name: "header injection", ref: "a.png\r\nX-Evil: 1", wantErr: true},
		{name: "too long", ref: "a/" + strings.Repeat("x", 2100), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sm.ValidateRef(tt.ref)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSanitizeText(t *testing.T) {
	sm := NewSecurityMiddleware(DefaultSecurityConfig())

	assert.Equal(t, "Buy now\nToday", sm.SanitizeText("  Buy\x07 now\nToday\x1b "))
	assert.Equal(t, "a\tb", sm.SanitizeText("a\tb"))
}

func TestSecurityHeaders(t *testing.T) {
	sm := NewSecurityMiddleware(DefaultSecurityConfig())

	r := gin.New()
	r.Use(sm.SecurityHeaders)
	r.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "test"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	r.ServeHTTP(w, req)

	headers := w.Header()
	assert.Equal(t, "nosniff", headers.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", headers.Get("X-Frame-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", headers.Get("Referrer-Policy"))
	assert.Empty(t, headers.Get("Strict-Transport-Security"))
}

func TestValidateContentType(t *testing.T) {
	sm := NewSecurityMiddleware(DefaultSecurityConfig())

	r := gin.New()
	r.Use(sm.ValidateContentType)
	r.POST("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	tests := []struct {
		name           string
		contentType    string
		expectedStatus int
	}{
		{name: "json", contentType: "application/json", expectedStatus: http.StatusOK},
		{name: "json with charset", contentType: "application/json; charset=utf-8", expectedStatus: http.StatusOK},
		{name: "form", contentType: "application/x-www-form-urlencoded", expectedStatus: http.StatusUnsupportedMediaType},
		{name: "text", contentType: "text/plain", expectedStatus: http.StatusUnsupportedMediaType},
		{name: "none", contentType: "", expectedStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodPost, "/test", bytes.NewBufferString(`{"test": "data"}`))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}

			r.ServeHTTP(w, req)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestLimitBody(t *testing.T) {
	sm := NewSecurityMiddleware(SecurityConfig{MaxBodyBytes: 16})

	r := gin.New()
	r.Use(sm.LimitBody)
	r.POST("/test", func(c *gin.Context) {
		var body map[string]interface{}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	send := func(body string, chunked bool) int {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
		if chunked {
			req.ContentLength = -1
		}
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send(`{"a":1}`, false))
	assert.Equal(t, http.StatusRequestEntityTooLarge, send(`{"a":"`+strings.Repeat("x", 40)+`"}`, false))
	assert.Equal(t, http.StatusBadRequest, send(`{"a":"`+strings.Repeat("x", 40)+`"}`, true))
}

func TestRequestTimeout(t *testing.T) {
	sm := NewSecurityMiddleware(SecurityConfig{RequestTimeout: 5 * time.Millisecond})

	r := gin.New()
	r.Use(sm.RequestTimeout)
	r.GET("/test", func(c *gin.Context) {
		select {
		case <-c.Request.Context().Done():
			c.Status(http.StatusGatewayTimeout)
		case <-time.After(time.Second):
			c.Status(http.StatusOK)
		}
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/test", nil)

	start := time.Now()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, "0", w.Header().Get("X-Timeout"))
}
