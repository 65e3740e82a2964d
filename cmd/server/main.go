// Command server exposes the creative scoring engine over HTTP.
//
// @title        Creative Scorer API
// @version      1.0
// @description  Scores ad creatives across measured, perceived and reasoned signals.
// @BasePath     /
package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	_ "github.com/ZanzyTHEbar/creative-scorer/docs"
	"github.com/ZanzyTHEbar/creative-scorer/internal/adapters"
	"github.com/ZanzyTHEbar/creative-scorer/internal/analysis"
	"github.com/ZanzyTHEbar/creative-scorer/internal/cache"
	"github.com/ZanzyTHEbar/creative-scorer/internal/config"
	"github.com/ZanzyTHEbar/creative-scorer/internal/database"
	"github.com/ZanzyTHEbar/creative-scorer/internal/differentiation"
	"github.com/ZanzyTHEbar/creative-scorer/internal/errors"
	"github.com/ZanzyTHEbar/creative-scorer/internal/monitoring"
	"github.com/ZanzyTHEbar/creative-scorer/internal/orchestrator"
	"github.com/ZanzyTHEbar/creative-scorer/internal/ratelimit"
	"github.com/ZanzyTHEbar/creative-scorer/internal/resilience"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", errors.Describe(err))
		os.Exit(1)
	}

	logger := monitoring.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger.Logger)
	metrics := monitoring.NewMetrics()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Benchmark store
	db, err := database.NewDB(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer errors.SafeClose(db, "database")

	ctx := context.Background()
	tables := database.NewTableService(database.NewRepository(db))
	if err := tables.Seed(ctx, database.DefaultTables(analysis.DefaultPillars()), nil); err != nil {
		slog.Error("Failed to seed benchmark store", "error", err)
		os.Exit(1)
	}
	if cfg.BenchmarksDir != "" {
		n, err := tables.ImportDir(ctx, cfg.BenchmarksDir)
		if err != nil {
			slog.Warn("Benchmark import failed", "dir", cfg.BenchmarksDir, "error", err)
		} else {
			slog.Info("Benchmarks imported", "dir", cfg.BenchmarksDir, "tables", n)
		}
	}

	// Redis is optional; the rate limiter falls back to in-process buckets
	redisClient, err := ratelimit.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		slog.Warn("Redis unavailable, using local rate limiting", "addr", cfg.RedisAddr, "error", err)
	}
	defer errors.SafeClose(redisClient, "redis")

	breakers := resilience.NewBreakerRegistry(resilience.BreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		SuccessThreshold: 1,
	})
	sidecar := func(name, url string) *adapters.HTTPSource {
		if url == "" {
			return nil
		}
		slog.Info("Collaborator configured", "name", name, "url", url)
		return adapters.NewHTTPSource(adapters.HTTPConfig{
			Name:    name,
			URL:     url,
			Timeout: cfg.CollaboratorTimeout,
			Breaker: breakers.Get(name),
			Logger:  logger,
		})
	}

	rules, err := differentiation.LoadRules(cfg.RulesFile)
	if err != nil {
		slog.Error("Failed to load differentiation rules", "file", cfg.RulesFile, "error", err)
		os.Exit(1)
	}
	differ := differentiation.NewAnalyzer(rules)
	analyzer := analysis.NewAnalyzer(analysis.DefaultOptions())

	opts := orchestrator.Options{
		Tables:          tables,
		Analyzer:        analyzer,
		Differentiation: differ,
		Logger:          logger,
		Metrics:         metrics,
		TokenBudget:     cfg.TokenBudget,
	}
	// Assigned one by one so an unset URL leaves a nil interface
	if src := sidecar("measurement", cfg.MeasurementURL); src != nil {
		opts.Measurement = src
	}
	if src := sidecar("perception", cfg.PerceptionURL); src != nil {
		opts.Perception = src
	}
	if src := sidecar("reasoning", cfg.ReasoningURL); src != nil {
		opts.Reasoning = src
	}
	orch, err := orchestrator.New(opts)
	if err != nil {
		slog.Error("Failed to build orchestrator", "error", err)
		os.Exit(1)
	}

	server, err := NewServer(Deps{
		Logger:           logger,
		Metrics:          metrics,
		Analyzer:         analyzer,
		Orchestrator:     orch,
		Differentiation:  differ,
		Tables:           tables,
		DB:               db,
		Breakers:         breakers,
		Cache:            cache.New(cfg.CacheTTL),
		Redis:            redisClient,
		CORSOrigins:      cfg.CORSOrigins,
		AnalyzePerMinute: cfg.RateLimitPerMin,
	})
	if err != nil {
		slog.Error("Failed to build server", "error", err)
		os.Exit(1)
	}
	defer server.Close()

	r := server.Router()
	if os.Getenv("ENABLE_PROFILING") == "true" {
		slog.Info("Enabling performance profiling endpoints")
		r.GET("/debug/pprof/*filepath", gin.WrapF(pprof.Index))
		r.GET("/debug/pprof/cmdline", gin.WrapF(pprof.Cmdline))
		r.GET("/debug/pprof/profile", gin.WrapF(pprof.Profile))
		r.GET("/debug/pprof/symbol", gin.WrapF(pprof.Symbol))
		r.GET("/debug/pprof/trace", gin.WrapF(pprof.Trace))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.SystemLogger("startup", "listening on :"+cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	slog.Info("Server exited")
}
