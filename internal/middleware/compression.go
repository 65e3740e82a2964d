package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// CompressionConfig holds configuration for response compression
type CompressionConfig struct {
	MinSize          int      // Minimum response size to compress (bytes)
	CompressionLevel int      // Gzip compression level (1-9, 9 is best compression)
	ContentTypes     []string // Content types to compress
}

// DefaultCompressionConfig returns the default compression configuration
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize:          1024,
		CompressionLevel: gzip.DefaultCompression,
		ContentTypes: []string{
			"application/json",
			"application/yaml",
			"text/plain",
		},
	}
}

// CompressionMiddleware gzips large responses for clients that accept it
type CompressionMiddleware struct {
	config CompressionConfig
	stats  *CompressionStats
	pool   sync.Pool
}

// NewCompressionMiddleware creates a new compression middleware
func NewCompressionMiddleware(config CompressionConfig) *CompressionMiddleware {
	if config.CompressionLevel < gzip.HuffmanOnly || config.CompressionLevel > gzip.BestCompression {
		config.CompressionLevel = gzip.DefaultCompression
	}

	cm := &CompressionMiddleware{
		config: config,
		stats:  NewCompressionStats(),
	}
	cm.pool.New = func() interface{} {
		gz, _ := gzip.NewWriterLevel(io.Discard, cm.config.CompressionLevel)
		return gz
	}
	return cm
}

// Handler buffers the response and compresses it once the handler chain has
// finished
func (cm *CompressionMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cm.clientAcceptsGzip(c.Request) {
			c.Next()
			cm.stats.RecordRequest(int64(c.Writer.Size()), 0, false)
			return
		}

		original := c.Writer
		bw := &bufferedWriter{ResponseWriter: original, status: http.StatusOK}
		c.Writer = bw
		defer func() { c.Writer = original }()

		c.Next()

		body := bw.buf.Bytes()
		header := original.Header()

		if len(body) < cm.config.MinSize || !cm.shouldCompress(header.Get("Content-Type")) ||
			header.Get("Content-Encoding") != "" || !bodyAllowed(bw.status) {
			original.WriteHeader(bw.status)
			if len(body) > 0 {
				_, _ = original.Write(body)
			} else {
				original.WriteHeaderNow()
			}
			cm.stats.RecordRequest(int64(len(body)), 0, false)
			return
		}

		compressed, err := cm.compress(body)
		if err != nil {
			original.WriteHeader(bw.status)
			_, _ = original.Write(body)
			cm.stats.RecordRequest(int64(len(body)), 0, false)
			return
		}

		header.Set("Content-Encoding", "gzip")
		header.Add("Vary", "Accept-Encoding")
		header.Del("Content-Length")
		original.WriteHeader(bw.status)
		_, _ = original.Write(compressed)
		cm.stats.RecordRequest(int64(len(body)), int64(len(compressed)), true)
	}
}

func (cm *CompressionMiddleware) compress(body []byte) ([]byte, error) {
	var out bytes.Buffer
	gz := cm.pool.Get().(*gzip.Writer)
	defer cm.pool.Put(gz)

	gz.Reset(&out)
	if _, err := gz.Write(body); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (cm *CompressionMiddleware) clientAcceptsGzip(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept-Encoding"), "gzip")
}

func (cm *CompressionMiddleware) shouldCompress(contentType string) bool {
	for _, ct := range cm.config.ContentTypes {
		if strings.Contains(contentType, ct) {
			return true
		}
	}
	return false
}

func bodyAllowed(status int) bool {
	return status >= 200 && status != http.StatusNoContent && status != http.StatusNotModified
}

// bufferedWriter holds the status and body until the chain returns
type bufferedWriter struct {
	gin.ResponseWriter
	buf    bytes.Buffer
	status int
}

func (w *bufferedWriter) WriteHeader(code int) {
	if code > 0 {
		w.status = code
	}
}

func (w *bufferedWriter) WriteHeaderNow() {}

func (w *bufferedWriter) Write(data []byte) (int, error) {
	return w.buf.Write(data)
}

func (w *bufferedWriter) WriteString(s string) (int, error) {
	return w.buf.WriteString(s)
}

func (w *bufferedWriter) Status() int {
	return w.status
}

func (w *bufferedWriter) Size() int {
	return w.buf.Len()
}

func (w *bufferedWriter) Written() bool {
	return w.buf.Len() > 0
}

func (w *bufferedWriter) Flush() {}

// CompressionStats tracks compression statistics
type CompressionStats struct {
	TotalRequests      int64
	CompressedRequests int64
	TotalBytes         int64
	CompressedBytes    int64
	mutex              sync.RWMutex
}

// NewCompressionStats creates new compression statistics
func NewCompressionStats() *CompressionStats {
	return &CompressionStats{}
}

// RecordRequest records a request's compression stats
func (cs *CompressionStats) RecordRequest(originalSize, compressedSize int64, compressed bool) {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	cs.TotalRequests++
	if originalSize > 0 {
		cs.TotalBytes += originalSize
	}
	if compressed {
		cs.CompressedRequests++
		cs.CompressedBytes += compressedSize
	} else if originalSize > 0 {
		cs.CompressedBytes += originalSize
	}
}

// GetStats returns current compression statistics
func (cs *CompressionStats) GetStats() map[string]interface{} {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	ratio := 1.0
	if cs.TotalBytes > 0 {
		ratio = float64(cs.CompressedBytes) / float64(cs.TotalBytes)
	}

	return map[string]interface{}{
		"total_requests":      cs.TotalRequests,
		"compressed_requests": cs.CompressedRequests,
		"total_bytes":         cs.TotalBytes,
		"bytes_sent":          cs.CompressedBytes,
		"compression_ratio":   ratio,
		"compression_savings": 1.0 - ratio,
	}
}

// GetStats returns compression statistics
func (cm *CompressionMiddleware) GetStats() map[string]interface{} {
	return cm.stats.GetStats()
}
