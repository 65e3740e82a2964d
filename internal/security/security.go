package security

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/creative-scorer/internal/errors"
)

// SecurityConfig holds request hardening limits
type SecurityConfig struct {
	MaxBodyBytes   int64         `json:"max_body_bytes"`
	MaxTextLength  int           `json:"max_text_length"`
	MaxRefLength   int           `json:"max_ref_length"`
	RequestTimeout time.Duration `json:"request_timeout"`
}

// DefaultSecurityConfig returns secure defaults
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		MaxBodyBytes:   1 << 20,
		MaxTextLength:  10000,
		MaxRefLength:   2048,
		RequestTimeout: 60 * time.Second,
	}
}

// SecurityMiddleware hardens the HTTP surface
type SecurityMiddleware struct {
	config SecurityConfig
}

// NewSecurityMiddleware creates a new security middleware instance
func NewSecurityMiddleware(config SecurityConfig) *SecurityMiddleware {
	defaults := DefaultSecurityConfig()
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaults.MaxBodyBytes
	}
	if config.MaxTextLength <= 0 {
		config.MaxTextLength = defaults.MaxTextLength
	}
	if config.MaxRefLength <= 0 {
		config.MaxRefLength = defaults.MaxRefLength
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = defaults.RequestTimeout
	}
	return &SecurityMiddleware{config: config}
}

// Config returns the active limits
func (sm *SecurityMiddleware) Config() SecurityConfig {
	return sm.config
}

// ValidateText checks creative copy text
func (sm *SecurityMiddleware) ValidateText(text string) error {
	if utf8.RuneCountInString(text) > sm.config.MaxTextLength {
		return fmt.Errorf("text exceeds maximum length of %d characters", sm.config.MaxTextLength)
	}
	if strings.Contains(text, "\x00") {
		return fmt.Errorf("text contains invalid characters")
	}
	if !utf8.ValidString(text) {
		return fmt.Errorf("text contains invalid UTF-8 encoding")
	}
	return nil
}

// ValidateRef checks a creative reference handed to collaborators. Only
// http(s) URLs and plain relative asset keys are accepted.
func (sm *SecurityMiddleware) ValidateRef(ref string) error {
	if ref == "" {
		return nil
	}
	if len(ref) > sm.config.MaxRefLength {
		return fmt.Errorf("ref exceeds maximum length of %d characters", sm.config.MaxRefLength)
	}
	if strings.ContainsAny(ref, "\x00\r\n") || !utf8.ValidString(ref) {
		return fmt.Errorf("ref contains invalid characters")
	}

	if strings.Contains(ref, "://") {
		u, err := url.Parse(ref)
		if err != nil {
			return fmt.Errorf("ref is not a valid URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("unsupported ref scheme %q", u.Scheme)
		}
		if u.Host == "" {
			return fmt.Errorf("ref URL has no host")
		}
		return nil
	}

	if strings.HasPrefix(ref, "/") || strings.Contains(ref, "..") || strings.Contains(ref, ":") {
		return fmt.Errorf("ref must be a URL or a relative asset key")
	}
	return nil
}

// SanitizeText trims whitespace and drops control characters other than
// newlines and tabs
func (sm *SecurityMiddleware) SanitizeText(text string) string {
	text = strings.TrimSpace(text)
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, text)
}

// SecurityHeaders adds security headers to responses
func (sm *SecurityMiddleware) SecurityHeaders(c *gin.Context) {
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("X-Frame-Options", "DENY")
	c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
	c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

	if c.Request.TLS != nil {
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	}

	c.Next()
}

// ValidateContentType requires JSON bodies on requests that carry one
func (sm *SecurityMiddleware) ValidateContentType(c *gin.Context) {
	if c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPut {
		c.Next()
		return
	}

	contentType := strings.ToLower(c.GetHeader("Content-Type"))
	if contentType != "" && !strings.HasPrefix(contentType, "application/json") {
		appErr := errors.NewValidationError("unsupported content type", contentType)
		appErr.HTTPStatus = http.StatusUnsupportedMediaType
		c.AbortWithStatusJSON(appErr.HTTPStatus, appErr)
		return
	}

	c.Next()
}

// LimitBody caps the request body size
func (sm *SecurityMiddleware) LimitBody(c *gin.Context) {
	if c.Request.ContentLength > sm.config.MaxBodyBytes {
		appErr := errors.NewPayloadTooLargeError(sm.config.MaxBodyBytes)
		c.AbortWithStatusJSON(appErr.HTTPStatus, appErr)
		return
	}
	if c.Request.Body != nil {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, sm.config.MaxBodyBytes)
	}
	c.Next()
}

// RequestTimeout bounds the request context, which collaborator calls inherit
func (sm *SecurityMiddleware) RequestTimeout(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), sm.config.RequestTimeout)
	defer cancel()

	c.Request = c.Request.WithContext(ctx)
	c.Header("X-Timeout", strconv.Itoa(int(sm.config.RequestTimeout.Seconds())))

	c.Next()
}
