package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	internal "github.com/ZanzyTHEbar/intern-diary/diary"
	"github.com/ZanzyTHEbar/intern-diary/diary/generation/harness"
)

// endpoints is advertised by GET / and by the 404 body.
var endpoints = gin.H{
	"GET /":                 "API information",
	"GET /api/health":       "Health check",
	"POST /api/generate":    "Generate diary entry",
	"POST /api/cache/clear": "Clear cached diary entries",
}

// generateErrors documents the failure statuses of POST /api/generate.
var generateErrors = gin.H{
	"400": "Missing API key or work summary, or a malformed request body",
	"429": "Too many generations in flight; retry after the Retry-After delay",
	"500": "The upstream model call failed or timed out",
}

func (s *Server) setupRoutes() {
	s.Router.GET("/", s.index)

	api := s.Router.Group("/api")
	api.GET("/health", s.health)
	api.POST("/generate", s.generate)
	api.POST("/cache/clear", s.clearCache)

	s.Router.NoRoute(s.notFound)
}

// generateRequest is the POST /api/generate body.
type generateRequest struct {
	Summary string `json:"summary"`
	APIKey  string `json:"api_key"`
}

// generateResponse is the POST /api/generate success body.
type generateResponse struct {
	Success      bool                `json:"success"`
	FullResponse string              `json:"full_response"`
	Fields       harness.ParsedEntry `json:"fields"`
	Cached       bool                `json:"cached"`
}

// GET /
func (s *Server) index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   internal.DefaultServiceName,
		"version":   internal.Version,
		"endpoints": endpoints,
		"errors":    gin.H{"POST /api/generate": generateErrors},
		"status":    "running",
	})
}

// GET /api/health
func (s *Server) health(c *gin.Context) {
	stats := s.Generator.Healthcheck()
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"message":       "API is running",
		"cache_entries": stats.Entries,
		"cache":         stats,
	})
}

// POST /api/cache/clear
func (s *Server) clearCache(c *gin.Context) {
	n := s.Generator.ClearCache(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"message": "Cache cleared",
		"cleared": n,
	})
}

// POST /api/generate
func (s *Server) generate(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read request body"})
		return
	}
	if err := s.guardrails.ValidateJSON(body, harness.GenerateRequestSchema); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req generateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.Generator.Generate(c.Request.Context(), harness.Request{
		Summary:     req.Summary,
		Credentials: req.APIKey,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, generateResponse{
		Success:      true,
		FullResponse: result.FullResponse,
		Fields:       result.Fields,
		Cached:       result.Cached,
	})
}

func (s *Server) writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	var validation *harness.ValidationError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Message})
	case errors.Is(err, harness.ErrRateLimited):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusTooManyRequests, gin.H{"error": harness.ErrRateLimited.Error()})
	case harness.IsUpstream(err):
		// Already redacted by the orchestrator.
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		abortInternal(c)
	}
}

func (s *Server) notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"error":               "Not Found",
		"message":             "The requested endpoint does not exist.",
		"available_endpoints": endpoints,
	})
}

func abortInternal(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error":   "Internal Server Error",
		"message": "An error occurred on the server.",
	})
}
