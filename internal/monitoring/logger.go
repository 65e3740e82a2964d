package monitoring

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Logger provides structured logging with domain helpers
type Logger struct {
	*slog.Logger
}

// NewLogger creates a JSON logger on stdout at the given level name
func NewLogger(level string) *Logger {
	return NewLoggerTo(os.Stdout, level)
}

// NewLoggerTo creates a JSON logger writing to w
func NewLoggerTo(w io.Writer, level string) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{
					Key:   "timestamp",
					Value: slog.StringValue(a.Value.Time().Format(time.RFC3339)),
				}
			}
			return a
		},
	})
	return &Logger{Logger: slog.New(handler)}
}

// ParseLevel maps a level name to a slog level, defaulting to info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// RequestLogger logs HTTP request details
func (l *Logger) RequestLogger(method, path, ip, requestID string, statusCode int, duration time.Duration) {
	l.Info("HTTP Request",
		"method", method,
		"path", path,
		"ip", ip,
		"request_id", requestID,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
	)
}

// AnalysisLogger logs the outcome of one analysis run
func (l *Logger) AnalysisLogger(analysisID, status string, score float64, confidence string, tokens int, duration time.Duration) {
	level := slog.LevelInfo
	if status == "failed" {
		level = slog.LevelWarn
	}
	l.Log(context.Background(), level, "Analysis Completed",
		"analysis_id", analysisID,
		"status", status,
		"overall_score", score,
		"confidence", confidence,
		"tokens_used", tokens,
		"duration_ms", duration.Milliseconds(),
	)
}

// StageLogger logs a state transition inside an analysis
func (l *Logger) StageLogger(analysisID, stage, outcome string, duration time.Duration) {
	l.Debug("Analysis Stage",
		"analysis_id", analysisID,
		"stage", stage,
		"outcome", outcome,
		"duration_ms", duration.Milliseconds(),
	)
}

// CollaboratorLogger logs a call to a measurement or AI collaborator
func (l *Logger) CollaboratorLogger(name, endpoint string, statusCode int, duration time.Duration, success bool) {
	level := slog.LevelInfo
	if !success {
		level = slog.LevelWarn
	}
	l.Log(context.Background(), level, "Collaborator Call",
		"collaborator", name,
		"endpoint", endpoint,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
		"success", success,
	)
}

// CacheLogger logs cache operations
func (l *Logger) CacheLogger(operation, key string, hit bool, itemCount int) {
	if len(key) > 8 {
		key = key[:8] + "..."
	}
	l.Debug("Cache Operation",
		"operation", operation,
		"key_hash", key,
		"hit", hit,
		"cache_size", itemCount,
	)
}

// SystemLogger logs system-level events
func (l *Logger) SystemLogger(event, details string) {
	l.Info("System Event",
		"event", event,
		"details", details,
		"uptime", time.Since(startTime).String(),
	)
}

var startTime = time.Now()

// APIErrorLogger logs errors attached to a request
func (l *Logger) APIErrorLogger(err error, method, path, requestID string, statusCode int) {
	l.Error("API Error",
		"error", err.Error(),
		"method", method,
		"path", path,
		"request_id", requestID,
		"status_code", statusCode,
	)
}
