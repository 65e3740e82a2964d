package main

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/ZanzyTHEbar/creative-scorer/internal/analysis"
	"github.com/ZanzyTHEbar/creative-scorer/internal/cache"
	"github.com/ZanzyTHEbar/creative-scorer/internal/compare"
	"github.com/ZanzyTHEbar/creative-scorer/internal/database"
	"github.com/ZanzyTHEbar/creative-scorer/internal/differentiation"
	"github.com/ZanzyTHEbar/creative-scorer/internal/errors"
	"github.com/ZanzyTHEbar/creative-scorer/internal/middleware"
	"github.com/ZanzyTHEbar/creative-scorer/internal/monitoring"
	"github.com/ZanzyTHEbar/creative-scorer/internal/orchestrator"
	"github.com/ZanzyTHEbar/creative-scorer/internal/ratelimit"
	"github.com/ZanzyTHEbar/creative-scorer/internal/resilience"
	"github.com/ZanzyTHEbar/creative-scorer/internal/security"
	"github.com/ZanzyTHEbar/creative-scorer/internal/validation"
)

const version = "1.0.0"

// Deps are the components the HTTP service routes to. Nil optional fields
// disable the feature that needs them.
type Deps struct {
	Logger  *monitoring.Logger
	Metrics *monitoring.Metrics

	Analyzer        *analysis.Analyzer
	Orchestrator    *orchestrator.Orchestrator
	Validator       *validation.Validator
	Differentiation *differentiation.Analyzer
	Comparer        *compare.Engine

	// Tables is optional; without it scoring uses built-in averages
	Tables   *database.TableService
	DB       *database.DB
	Breakers *resilience.BreakerRegistry

	Cache       *cache.Cache
	Limiter     *ratelimit.Limiter
	Redis       *ratelimit.RedisClient
	Security    *security.SecurityMiddleware
	Compression *middleware.CompressionMiddleware

	CORSOrigins      []string
	AnalyzePerMinute int
}

// Server is the HTTP front of the scoring engine
type Server struct {
	Deps
}

// NewServer fills unset components with defaults
func NewServer(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		deps.Logger = monitoring.NewLogger("info")
	}
	if deps.Metrics == nil {
		deps.Metrics = monitoring.NewMetrics()
	}
	if deps.Analyzer == nil {
		deps.Analyzer = analysis.NewAnalyzer(analysis.DefaultOptions())
	}
	if deps.Validator == nil {
		deps.Validator = validation.NewValidator()
	}
	if deps.Differentiation == nil {
		rules, err := differentiation.DefaultRules()
		if err != nil {
			return nil, err
		}
		deps.Differentiation = differentiation.NewAnalyzer(rules)
	}
	if deps.Comparer == nil {
		deps.Comparer = compare.NewEngine(compare.DefaultThreshold)
	}
	if deps.Breakers == nil {
		deps.Breakers = resilience.NewBreakerRegistry(resilience.BreakerConfig{})
	}
	if deps.Orchestrator == nil {
		opts := orchestrator.Options{
			Analyzer:        deps.Analyzer,
			Validator:       deps.Validator,
			Differentiation: deps.Differentiation,
			Logger:          deps.Logger,
			Metrics:         deps.Metrics,
		}
		if deps.Tables != nil {
			opts.Tables = deps.Tables
		}
		orch, err := orchestrator.New(opts)
		if err != nil {
			return nil, err
		}
		deps.Orchestrator = orch
	}
	if deps.Cache == nil {
		deps.Cache = cache.New(5 * time.Minute)
	}
	if deps.Redis == nil {
		deps.Redis = ratelimit.WrapRedisClient(nil)
	}
	if deps.AnalyzePerMinute <= 0 {
		deps.AnalyzePerMinute = ratelimit.DefaultConfig().AnalyzePerMinute
	}
	if deps.Limiter == nil {
		cfg := ratelimit.DefaultConfig()
		cfg.AnalyzePerMinute = deps.AnalyzePerMinute
		deps.Limiter = ratelimit.NewLimiter(deps.Redis, cfg, deps.Metrics)
	}
	if deps.Security == nil {
		deps.Security = security.NewSecurityMiddleware(security.DefaultSecurityConfig())
	}
	if deps.Compression == nil {
		deps.Compression = middleware.NewCompressionMiddleware(middleware.DefaultCompressionConfig())
	}

	return &Server{Deps: deps}, nil
}

// Close stops background workers owned by the server
func (s *Server) Close() {
	s.Limiter.Close()
	s.Cache.Close()
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", monitoring.RequestIDHeader},
		ExposeHeaders: []string{monitoring.RequestIDHeader, "X-Cache", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}

	for _, o := range s.CORSOrigins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(s.CORSOrigins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = s.CORSOrigins
	return cfg
}

// Router builds the gin engine
func (s *Server) Router() *gin.Engine {
	r := gin.New()

	r.Use(monitoring.RequestIDMiddleware())
	r.Use(monitoring.MonitoringMiddleware(s.Metrics, s.Logger))
	r.Use(errors.RecoveryHandler())
	r.Use(errors.ErrorHandler())
	r.Use(cors.New(s.corsConfig()))
	r.Use(s.Security.SecurityHeaders)
	r.Use(s.Security.ValidateContentType)
	r.Use(s.Security.LimitBody)
	r.Use(s.Security.RequestTimeout)
	r.Use(s.Compression.Handler())
	r.Use(s.Cache.Middleware(s.Metrics, s.Logger, "/v1/score", "/v1/validate", "/v1/differentiation"))

	r.GET("/health", s.handleHealth)
	r.GET("/metrics", s.handleMetrics)
	r.GET("/cache/stats", s.handleCacheStats)
	r.DELETE("/cache", s.handleCacheClear)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/v1")
	{
		v1.POST("/score", s.handleScore)
		v1.POST("/analyze", s.Limiter.Middleware("analyze", ratelimit.PerMinute(s.AnalyzePerMinute)), s.handleAnalyze)
		v1.POST("/validate", s.handleValidate)
		v1.POST("/differentiation", s.handleDifferentiation)
		v1.POST("/compare", s.handleCompare)
		v1.POST("/percentile", s.handlePercentile)
		v1.GET("/rules", s.handleRules)
	}

	return r
}
