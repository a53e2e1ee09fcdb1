package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/motospec/backend/internal/domain"
	"github.com/motospec/backend/internal/usecase"
	"github.com/rs/zerolog"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	similarityService *usecase.SimilarityService
	logger            zerolog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(similarityService *usecase.SimilarityService, logger zerolog.Logger) *Handler {
	return &Handler{
		similarityService: similarityService,
		logger:            logger,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "motospec-backend",
		"version": "1.0.0",
	})
}

// SimilarModels handles GET /api/v1/models/similar?name=...
// Optional query parameters: top_n, snapping, tolerance.
func (h *Handler) SimilarModels(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter 'name' is required"})
		return
	}

	opts, err := parseRankOptions(c, h.similarityService.BatchOptions())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.similarityService.SimilarModels(c.Request.Context(), name, opts)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !result.Found {
		c.JSON(http.StatusNotFound, gin.H{
			"error":  fmt.Sprintf("Model %q not found in catalog", name),
			"result": result,
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// CompareRecord handles POST /api/v1/similarity/compare.
// The body is a single catalog record; it is ranked against the catalog but not stored.
func (h *Handler) CompareRecord(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	var record domain.Record
	if err := c.ShouldBindJSON(&record); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	opts, err := parseRankOptions(c, h.similarityService.QueryOptions())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.similarityService.CompareRecord(c.Request.Context(), record, opts)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// SimilarityMatrix handles GET /api/v1/similarity/matrix
func (h *Handler) SimilarityMatrix(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	models, matrix, err := h.similarityService.SimilarityMatrix(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"models": models,
		"matrix": matrix,
	})
}

// AppendRecord handles POST /api/v1/catalog/records
func (h *Handler) AppendRecord(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	var record domain.Record
	if err := c.ShouldBindJSON(&record); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.similarityService.AcceptRecord(c.Request.Context(), record); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status": "appended",
		"model":  record.Name(),
	})
}

// FetchModel handles POST /api/v1/models/fetch.
// It fetches a record from the external source and compares it with the catalog.
// With ?format=csv the comparison table is returned as a CSV attachment.
func (h *Handler) FetchModel(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	var req domain.FetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	opts, err := parseRankOptions(c, h.similarityService.QueryOptions())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comparison, err := h.similarityService.FetchAndCompare(c.Request.Context(), &req, opts)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if c.Query("format") == "csv" {
		filename := strings.ReplaceAll(comparison.Record.Name(), " ", "_") + "_comparison.csv"
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Status(http.StatusOK)
		if err := comparison.Table.WriteCSV(c.Writer); err != nil {
			h.logger.Error().Err(err).Msg("failed to write comparison csv")
		}
		return
	}

	c.JSON(http.StatusOK, comparison)
}

// ready reports whether the similarity service is configured, writing 503 if not
func (h *Handler) ready(c *gin.Context) bool {
	if h.similarityService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Similarity service not configured",
		})
		return false
	}
	return true
}

// respondError maps service errors to HTTP status codes
func (h *Handler) respondError(c *gin.Context, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrInvalidRecord):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrModelNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSchemaMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrFetcherDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrFetchFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// parseRankOptions overrides defaults with the top_n, snapping and tolerance query parameters
func parseRankOptions(c *gin.Context, defaults usecase.RankOptions) (usecase.RankOptions, error) {
	opts := defaults

	if raw := c.Query("top_n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return opts, fmt.Errorf("top_n must be a non-negative integer, got %q", raw)
		}
		opts.TopN = n
	}

	if raw := c.Query("snapping"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return opts, fmt.Errorf("snapping must be a boolean, got %q", raw)
		}
		opts.Snapping = b
	}

	if raw := c.Query("tolerance"); raw != "" {
		tol, err := strconv.ParseFloat(raw, 64)
		if err != nil || tol <= 0 || tol >= 1 {
			return opts, fmt.Errorf("tolerance must be a number in (0, 1), got %q", raw)
		}
		opts.NearEqualTol = tol
	}

	return opts, nil
}
