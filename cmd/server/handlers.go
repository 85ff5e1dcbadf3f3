package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ZanzyTHEbar/similar-dev-search/internal/activity"
	"github.com/ZanzyTHEbar/similar-dev-search/internal/database"
	apperrors "github.com/ZanzyTHEbar/similar-dev-search/internal/errors"
	"github.com/ZanzyTHEbar/similar-dev-search/internal/similarity"
	"github.com/gin-gonic/gin"
)

// SimilarRequest is the body accepted by POST /similar
type SimilarRequest struct {
	Query    string          `json:"query"`
	Activity json.RawMessage `json:"activity"`
}

// ErrorResponse is the JSON body rendered for failed requests
type ErrorResponse struct {
	Error     string `json:"error"`
	Category  string `json:"category"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// SimilarResponse is the ranking returned by the similarity endpoints
type SimilarResponse struct {
	Query      string            `json:"query"`
	SnapshotID string            `json:"snapshot_id,omitempty"`
	Similar    similarity.Result `json:"similar"`
	Count      int               `json:"count"`
}

// HealthResponse reports service and store status
type HealthResponse struct {
	Status           string `json:"status"`
	Timestamp        string `json:"timestamp"`
	Version          string `json:"version"`
	Store            string `json:"store"`
	RateLimitBackend string `json:"rate_limit_backend"`
	Snapshots        int    `json:"snapshots"`
}

// SnapshotListResponse lists snapshot metadata, newest first
type SnapshotListResponse struct {
	Snapshots []database.Snapshot `json:"snapshots"`
	Count     int                 `json:"count"`
}

// readBody reads the request body, mapping oversize bodies to 413
func readBody(c *gin.Context) ([]byte, error) {
	body, err := c.GetRawData()
	if err == nil {
		return body, nil
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		appErr := apperrors.NewValidationError("request body too large", tooLarge.Limit)
		appErr.HTTPStatus = http.StatusRequestEntityTooLarge
		return nil, appErr
	}
	return nil, apperrors.NewValidationError("failed to read request body", err)
}

// handleHealth godoc
// @Summary Service health
// @Tags system
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (s *server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:           "ok",
		Timestamp:        time.Now().Format(time.RFC3339),
		Version:          version,
		Store:            "ok",
		RateLimitBackend: "memory",
	}
	if s.redis.Connected() {
		resp.RateLimitBackend = "redis"
	}

	status := http.StatusOK
	err := s.db.HealthCheck(ctx)
	if err == nil {
		resp.Snapshots, err = s.snapshots.Count(ctx)
	}
	if err != nil {
		s.logger.StoreLogger("health", "", 0, err)
		resp.Status = "degraded"
		resp.Store = "unavailable"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, resp)
}

// handleSimilar godoc
// @Summary Find similar developers
// @Tags similarity
// @Accept json
// @Produce json
// @Param request body SimilarRequest true "Query developer and activity"
// @Success 200 {object} SimilarResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /similar [post]
func (s *server) handleSimilar(c *gin.Context) {
	start := time.Now()

	body, err := readBody(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	req, err := activity.DecodeRequest(body)
	if err != nil {
		s.metrics.RecordRanking(false)
		_ = c.Error(err)
		return
	}

	result, err := similarity.FindSimilarDevelopers(req.Query, req.Activity)
	s.respondRanking(c, req.Query, "", len(req.Activity), result, err, start)
}

// handleSnapshotSimilar godoc
// @Summary Find similar developers in a stored snapshot
// @Tags snapshots
// @Produce json
// @Param id path string true "Snapshot ID or latest"
// @Param developer path string true "Query developer"
// @Success 200 {object} SimilarResponse
// @Failure 404 {object} ErrorResponse
// @Router /snapshots/{id}/similar/{developer} [get]
func (s *server) handleSnapshotSimilar(c *gin.Context) {
	start := time.Now()
	query := c.Param("developer")

	if err := s.security.ValidateDeveloperID(query); err != nil {
		_ = c.Error(err)
		return
	}

	result, snapshot, err := s.snapshots.Rank(c.Request.Context(), c.Param("id"), query)
	var snapshotID string
	var developers int
	if snapshot != nil {
		snapshotID = snapshot.ID
		developers = snapshot.Developers
	}
	s.respondRanking(c, query, snapshotID, developers, result, err, start)
}

func (s *server) respondRanking(c *gin.Context, query, snapshotID string, developers int, result similarity.Result, err error, start time.Time) {
	if err != nil {
		s.metrics.RecordRanking(false)
		_ = c.Error(err)
		return
	}
	s.metrics.RecordRanking(true)

	var topScore float64
	if len(result) > 0 {
		topScore = result[0].Score
	}
	source := "request"
	if snapshotID != "" {
		source = "snapshot"
	}
	s.logger.SimilarityLogger(query, developers, len(result), topScore, time.Since(start), source)

	c.JSON(http.StatusOK, SimilarResponse{
		Query:      query,
		SnapshotID: snapshotID,
		Similar:    result,
		Count:      len(result),
	})
}

// handleStoreSnapshot godoc
// @Summary Store an activity snapshot
// @Tags snapshots
// @Accept json
// @Produce json
// @Success 201 {object} database.Snapshot
// @Failure 400 {object} ErrorResponse
// @Router /snapshots [post]
func (s *server) handleStoreSnapshot(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	snapshot, err := s.snapshots.Store(c.Request.Context(), body, c.ClientIP())
	if err != nil {
		_ = c.Error(err)
		return
	}
	s.metrics.IncrementSnapshotsStored()

	c.JSON(http.StatusCreated, snapshot)
}

// handleListSnapshots godoc
// @Summary List stored snapshots
// @Tags snapshots
// @Produce json
// @Param limit query int false "Maximum entries (1-100)"
// @Success 200 {object} SnapshotListResponse
// @Router /snapshots [get]
func (s *server) handleListSnapshots(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		l, err := strconv.Atoi(raw)
		if err != nil || l < 1 {
			_ = c.Error(apperrors.NewValidationError("limit must be a positive integer"))
			return
		}
		limit = l
	}

	snapshots, err := s.snapshots.List(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, SnapshotListResponse{Snapshots: snapshots, Count: len(snapshots)})
}

// handleGetSnapshot godoc
// @Summary Snapshot metadata
// @Tags snapshots
// @Produce json
// @Param id path string true "Snapshot ID or latest"
// @Success 200 {object} database.Snapshot
// @Failure 404 {object} ErrorResponse
// @Router /snapshots/{id} [get]
func (s *server) handleGetSnapshot(c *gin.Context) {
	snapshot, err := s.snapshots.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// handleDeleteSnapshot godoc
// @Summary Delete a snapshot (admin)
// @Tags snapshots
// @Param id path string true "Snapshot ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /snapshots/{id} [delete]
func (s *server) handleDeleteSnapshot(c *gin.Context) {
	if err := s.snapshots.Delete(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) handleMetrics(c *gin.Context) {
	stats := s.metrics.GetStats()
	stats["database_pool"] = s.db.GetPoolStats()
	stats["redis_pool"] = s.redis.Stats()
	stats["compression"] = s.compress.GetStats()
	c.JSON(http.StatusOK, stats)
}

func (s *server) handleCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.cache.Stats())
}
