package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/creative-scorer/internal/monitoring"
)

// maxCachedBody bounds request bodies considered for caching
const maxCachedBody = 1 << 20

// Item is a cached response body with its expiry
type Item struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired reports whether the item is past its TTL
func (i *Item) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// Cache is a TTL cache for deterministic scoring responses. Identical
// request bodies always score identically, so a body hash is a safe key.
type Cache struct {
	mu    sync.RWMutex
	items map[string]*Item
	ttl   time.Duration
	now   func() time.Time

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// New creates a cache and starts its sweeper. Call Close to stop it.
func New(ttl time.Duration) *Cache {
	c := &Cache{
		items: make(map[string]*Item),
		ttl:   ttl,
		now:   time.Now,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go c.sweep(5 * time.Minute)
	return c
}

func (c *Cache) sweep(interval time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.Purge()
		}
	}
}

// Close stops the sweeper
func (c *Cache) Close() {
	c.once.Do(func() {
		close(c.stop)
		<-c.done
	})
}

// Key hashes a request body into a cache key
func Key(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Get returns an unexpired entry
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[key]
	if !ok || item.IsExpired(c.now()) {
		return nil, false
	}
	return item.Data, true
}

// Set stores data under key for the cache TTL
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = &Item{Data: data, ExpiresAt: c.now().Add(c.ttl)}
}

// Clear removes all entries and returns how many there were
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.items)
	c.items = make(map[string]*Item)
	return n
}

// Purge drops expired entries and returns how many were removed
func (c *Cache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, item := range c.items {
		if item.IsExpired(now) {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// Size returns the number of entries, expired ones included
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stats returns cache statistics
func (c *Cache) Stats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	expired := 0
	for _, item := range c.items {
		if item.IsExpired(now) {
			expired++
		}
	}

	return map[string]interface{}{
		"total_items":   len(c.items),
		"expired_items": expired,
		"active_items":  len(c.items) - expired,
		"ttl_seconds":   c.ttl.Seconds(),
	}
}

// Middleware serves cached 200 responses for POST requests to the given
// paths and stores fresh ones
func (c *Cache) Middleware(metrics *monitoring.Metrics, logger *monitoring.Logger, paths ...string) gin.HandlerFunc {
	cached := make(map[string]bool, len(paths))
	for _, p := range paths {
		cached[p] = true
	}

	return func(ctx *gin.Context) {
		if ctx.Request.Method != http.MethodPost || !cached[ctx.FullPath()] {
			ctx.Next()
			return
		}

		body, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxCachedBody+1))
		if err != nil || len(body) > maxCachedBody {
			ctx.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), ctx.Request.Body))
			ctx.Next()
			return
		}
		ctx.Request.Body = io.NopCloser(bytes.NewReader(body))

		key := Key(append([]byte(ctx.FullPath()+"\n"), body...))
		if data, ok := c.Get(key); ok {
			metrics.IncrementCacheHit()
			logger.CacheLogger("hit", key, true, c.Size())
			ctx.Header("X-Cache", "HIT")
			ctx.Data(http.StatusOK, "application/json; charset=utf-8", data)
			ctx.Abort()
			return
		}

		metrics.IncrementCacheMiss()
		logger.CacheLogger("miss", key, false, c.Size())
		ctx.Header("X-Cache", "MISS")

		w := &responseWriter{ResponseWriter: ctx.Writer, body: &bytes.Buffer{}}
		ctx.Writer = w
		ctx.Next()

		if w.Status() == http.StatusOK {
			c.Set(key, w.body.Bytes())
			logger.CacheLogger("store", key, false, c.Size())
		}
	}
}

// responseWriter captures the response body for caching
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
