package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/creative-scorer/internal/analysis"
	"github.com/ZanzyTHEbar/creative-scorer/internal/benchmarks"
	"github.com/ZanzyTHEbar/creative-scorer/internal/compare"
	"github.com/ZanzyTHEbar/creative-scorer/internal/differentiation"
	"github.com/ZanzyTHEbar/creative-scorer/internal/errors"
	"github.com/ZanzyTHEbar/creative-scorer/internal/monitoring"
	"github.com/ZanzyTHEbar/creative-scorer/internal/orchestrator"
	"github.com/ZanzyTHEbar/creative-scorer/internal/signals"
	"github.com/ZanzyTHEbar/creative-scorer/internal/types"
)

// fail writes err as a structured error response
func (s *Server) fail(c *gin.Context, err error) {
	appErr := errors.ToAppError(err)
	appErr.RequestID = monitoring.RequestID(c)
	errors.LogError(c, appErr)
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr)
}

func (s *Server) bind(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		appErr := errors.ToAppError(err)
		if appErr.HTTPStatus != http.StatusRequestEntityTooLarge {
			appErr = errors.NewValidationError("invalid request body", err.Error())
		}
		s.fail(c, appErr)
		return false
	}
	return true
}

// tablesFor loads the stored benchmark table and weights for a context.
// Store errors degrade to built-in defaults.
func (s *Server) tablesFor(ctx context.Context, actx analysis.Context) (*benchmarks.Table, map[string]float64) {
	if s.Tables == nil {
		return nil, nil
	}

	table, err := s.Tables.Benchmarks(ctx, actx)
	if err != nil {
		s.Logger.Warn("Benchmark lookup failed, using defaults", "category", actx.Category, "error", err)
		table = nil
	}
	weights, err := s.Tables.WeightOverrides(ctx, actx)
	if err != nil {
		s.Logger.Warn("Weight override lookup failed, using defaults", "category", actx.Category, "error", err)
		weights = nil
	}
	return table, weights
}

// handleHealth godoc
// @Summary      Service health
// @Description  Collaborator health, circuit breakers and backing stores
// @Tags         system
// @Produce      json
// @Success      200  {object}  types.HealthResponse
// @Router       /health [get]
func (s *Server) handleHealth(c *gin.Context) {
	resp := types.HealthResponse{
		Status:        "ok",
		Timestamp:     time.Now().Format(time.RFC3339),
		Version:       version,
		Collaborators: s.Orchestrator.Health().All(),
		Breakers:      s.Breakers.Stats(),
		Redis:         s.Redis.PoolStats(),
	}
	if s.DB != nil {
		resp.Database = s.DB.GetPoolStats()
	}

	// Degraded collaborators only cost AI layers; scoring still works.
	if s.Orchestrator.Health().Degraded() {
		resp.Status = "degraded"
	}
	// Without Redis the limiter runs on local buckets
	if s.Redis.IsEnabled() {
		if err := s.Redis.HealthCheck(c.Request.Context()); err != nil {
			s.Logger.Warn("Redis health check failed", "error", err)
			resp.Status = "degraded"
		}
	}

	c.JSON(http.StatusOK, resp)
}

// handleMetrics godoc
// @Summary  Service metrics
// @Tags     system
// @Produce  json
// @Success  200  {object}  map[string]interface{}
// @Router   /metrics [get]
func (s *Server) handleMetrics(c *gin.Context) {
	stats := s.Metrics.GetStats()
	stats["compression"] = s.Compression.GetStats()
	stats["rate_limiter"] = s.Limiter.Stats()
	c.JSON(http.StatusOK, stats)
}

// handleCacheStats godoc
// @Summary  Response cache statistics
// @Tags     system
// @Produce  json
// @Success  200  {object}  map[string]interface{}
// @Router   /cache/stats [get]
func (s *Server) handleCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.Cache.Stats())
}

// handleCacheClear godoc
// @Summary  Drop every cached response
// @Tags     system
// @Produce  json
// @Success  200  {object}  map[string]interface{}
// @Router   /cache [delete]
func (s *Server) handleCacheClear(c *gin.Context) {
	n := s.Cache.Clear()
	s.Logger.CacheLogger("clear", "*", false, 0)
	c.JSON(http.StatusOK, gin.H{"cleared": n})
}

// handleScore godoc
// @Summary      Score measured signals
// @Description  Scores pre-measured signals in context and returns the final score, recommendations and the optimization simulation
// @Tags         scoring
// @Accept       json
// @Produce      json
// @Param        request  body      types.ScoreRequest  true  "Signals and context"
// @Success      200      {object}  analysis.Report
// @Failure      400      {object}  errors.AppError
// @Router       /v1/score [post]
func (s *Server) handleScore(c *gin.Context) {
	var req types.ScoreRequest
	if !s.bind(c, &req) {
		return
	}

	table, weights := s.tablesFor(c.Request.Context(), req.Context)
	if len(req.WeightOverrides) > 0 {
		weights = req.WeightOverrides
	}

	report, err := s.Analyzer.Score(c.Request.Context(), analysis.Request{
		Signals:         req.Signals,
		Context:         req.Context,
		Benchmarks:      table,
		WeightOverrides: weights,
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// handleAnalyze godoc
// @Summary      Run an orchestrated analysis
// @Description  Measures a creative through the configured collaborators within a token budget, then validates, scores and recommends. A failed run returns 422 with its partial result.
// @Tags         scoring
// @Accept       json
// @Produce      json
// @Param        request  body      orchestrator.Request  true  "Creative, context and token budget"
// @Success      200      {object}  orchestrator.Result
// @Failure      422      {object}  orchestrator.Result
// @Failure      429      {object}  errors.AppError
// @Router       /v1/analyze [post]
func (s *Server) handleAnalyze(c *gin.Context) {
	var req orchestrator.Request
	if !s.bind(c, &req) {
		return
	}

	req.Creative.Text = s.Security.SanitizeText(req.Creative.Text)
	if err := s.Security.ValidateText(req.Creative.Text); err != nil {
		s.fail(c, errors.NewValidationError("invalid creative text", err.Error()))
		return
	}
	if err := s.Security.ValidateRef(req.Creative.Ref); err != nil {
		s.fail(c, errors.NewValidationError("invalid creative ref", err.Error()))
		return
	}

	result := s.Orchestrator.Run(c.Request.Context(), req)
	if result.Failed() {
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleValidate godoc
// @Summary  Check signals for impossible values and contradictions
// @Tags     validation
// @Accept   json
// @Produce  json
// @Param    request  body      types.ValidateRequest  true  "Signals"
// @Success  200      {object}  types.ValidateResponse
// @Router   /v1/validate [post]
func (s *Server) handleValidate(c *gin.Context) {
	var req types.ValidateRequest
	if !s.bind(c, &req) {
		return
	}

	reg, issues := signals.NewRegistry(req.Signals)
	result := s.Validator.Validate(reg.Values())

	c.JSON(http.StatusOK, types.ValidateResponse{
		Result: result,
		Issues: append(issues, result.Issues()...),
	})
}

// handleDifferentiation godoc
// @Summary  Measure how distinct a creative is from category defaults
// @Tags     differentiation
// @Accept   json
// @Produce  json
// @Param    request  body      types.DifferentiationRequest  true  "Copy text and signals"
// @Success  200      {object}  differentiation.Result
// @Router   /v1/differentiation [post]
func (s *Server) handleDifferentiation(c *gin.Context) {
	var req types.DifferentiationRequest
	if !s.bind(c, &req) {
		return
	}

	text := s.Security.SanitizeText(req.Text)
	if err := s.Security.ValidateText(text); err != nil {
		s.fail(c, errors.NewValidationError("invalid text", err.Error()))
		return
	}

	reg, _ := signals.NewRegistry(req.Signals)
	c.JSON(http.StatusOK, s.Differentiation.Analyze(differentiation.Input{
		Text:      text,
		SceneType: req.SceneType,
		Values:    reg.Values(),
	}))
}

// handleCompare godoc
// @Summary      Compare two creatives
// @Description  Each side is either raw signals, scored in the request context, or an already scored result
// @Tags         comparison
// @Accept       json
// @Produce      json
// @Param        request  body      types.CompareRequest  true  "Two creatives"
// @Success      200      {object}  types.CompareResponse
// @Failure      400      {object}  errors.AppError
// @Router       /v1/compare [post]
func (s *Server) handleCompare(c *gin.Context) {
	var req types.CompareRequest
	if !s.bind(c, &req) {
		return
	}

	ctx := c.Request.Context()
	table, weights := s.tablesFor(ctx, req.Context)

	resolve := func(label string, side types.CompareSide) (*analysis.FinalScoreResult, error) {
		switch {
		case side.Result != nil:
			return side.Result, nil
		case side.Signals != nil:
			report, err := s.Analyzer.Score(ctx, analysis.Request{
				Signals:         *side.Signals,
				Context:         req.Context,
				Benchmarks:      table,
				WeightOverrides: weights,
			})
			if err != nil {
				return nil, err
			}
			return &report.Result, nil
		default:
			return nil, errors.NewValidationError("creative " + label + " needs signals or a result")
		}
	}

	a, err := resolve("a", req.A)
	if err != nil {
		s.fail(c, err)
		return
	}
	b, err := resolve("b", req.B)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, types.CompareResponse{
		Comparison: s.Comparer.Compare(a, b, table),
		A:          *a,
		B:          *b,
	})
}

// handlePercentile godoc
// @Summary  Place a score in its category distribution
// @Tags     comparison
// @Accept   json
// @Produce  json
// @Param    request  body      types.PercentileRequest  true  "Score and category"
// @Success  200      {object}  types.PercentileResponse
// @Router   /v1/percentile [post]
func (s *Server) handlePercentile(c *gin.Context) {
	var req types.PercentileRequest
	if !s.bind(c, &req) {
		return
	}

	resp := types.PercentileResponse{
		Score:    *req.Score,
		Category: strings.ToLower(req.Category),
		Source:   "score",
	}

	switch {
	case req.Quartiles != nil:
		resp.Quartiles = *req.Quartiles
		resp.Source = "request"
	default:
		table, _ := s.tablesFor(c.Request.Context(), analysis.Context{Category: req.Category})
		if table != nil && table.Overall != nil {
			resp.Quartiles = *table.Overall
			resp.Source = "stored"
		}
	}

	resp.Percentile = compare.Percentile(resp.Score, resp.Quartiles)
	c.JSON(http.StatusOK, resp)
}

// handleRules godoc
// @Summary  Active differentiation rule set
// @Tags     differentiation
// @Produce  json
// @Success  200  {object}  map[string]interface{}
// @Router   /v1/rules [get]
func (s *Server) handleRules(c *gin.Context) {
	rules := s.Differentiation.Rules()
	c.JSON(http.StatusOK, gin.H{
		"version": rules.Version,
		"counts":  rules.Counts(),
	})
}
