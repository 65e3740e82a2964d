package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(cm *CompressionMiddleware) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(cm.Handler())
	r.GET("/large", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"text": strings.Repeat("attention ", 300)})
	})
	r.GET("/small", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})
	r.GET("/empty", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestCompressionLargeJSON(t *testing.T) {
	cm := NewCompressionMiddleware(DefaultCompressionConfig())
	r := newRouter(cm)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/large", nil)
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	assert.Equal(t, "Accept-Encoding", w.Header().Get("Vary"))

	gz, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Contains(t, string(body), "attention attention")

	stats := cm.GetStats()
	assert.Equal(t, int64(1), stats["compressed_requests"])
	assert.Less(t, stats["compression_ratio"].(float64), 0.5)
}

func TestCompressionSkips(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		accept string
		status int
	}{
		{name: "small body", path: "/small", accept: "gzip", status: http.StatusCreated},
		{name: "client without gzip", path: "/large", accept: "", status: http.StatusOK},
		{name: "no content", path: "/empty", accept: "gzip", status: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cm := NewCompressionMiddleware(DefaultCompressionConfig())
			r := newRouter(cm)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.accept != "" {
				req.Header.Set("Accept-Encoding", tt.accept)
			}
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Empty(t, w.Header().Get("Content-Encoding"))
			assert.Equal(t, int64(0), cm.GetStats()["compressed_requests"])
		})
	}
}

func TestCompressionInvalidLevel(t *testing.T) {
	cm := NewCompressionMiddleware(CompressionConfig{CompressionLevel: 42, MinSize: 1, ContentTypes: []string{"application/json"}})
	out, err := cm.compress([]byte(`{"a":1}`))
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
