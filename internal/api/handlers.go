package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"equity-signal-engine/internal/knowledge"
	"equity-signal-engine/internal/pipeline"
)

func (s *Server) handleHealth(c *gin.Context) {
	status := "ok"
	dbStatus := "ok"
	if err := s.repo.HealthCheck(c.Request.Context()); err != nil {
		status = "degraded"
		dbStatus = err.Error()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"database": dbStatus,
	})
}

// ScanRequest selects a universe window and batch mode for one scan run.
// BatchNumber is the caller's ordinal for the window and is echoed back on
// the summary.
type ScanRequest struct {
	StartIndex  int    `json:"start_index"`
	EndIndex    int    `json:"end_index" binding:"required"`
	BatchNumber int    `json:"batch_number"`
	Mode        string `json:"mode"`
}

func (s *Server) handleScan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.EndIndex <= req.StartIndex {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_index must be greater than start_index"})
		return
	}

	mode := pipeline.ModeAppend
	switch req.Mode {
	case "", string(pipeline.ModeAppend):
	case string(pipeline.ModeFullReplace):
		mode = pipeline.ModeFullReplace
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be full_replace or append"})
		return
	}

	stocks, err := s.universe.GetBatch(req.StartIndex, req.EndIndex)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "universe fetch failed: " + err.Error()})
		return
	}
	if len(stocks) == 0 {
		c.JSON(http.StatusOK, gin.H{"message": "no stocks in window", "processed": 0})
		return
	}

	// A batch runs to completion once started; it is deliberately not tied
	// to the request context so a dropped connection cannot abort it
	// between a signal insert and its indicator rows.
	summary, err := s.orchestrator.RunBatch(context.Background(), stocks, mode)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	summary.BatchNumber = req.BatchNumber

	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleGetSignals(c *gin.Context) {
	limit := parseIntQuery(c, "limit", 100)
	offset := parseIntQuery(c, "offset", 0)
	if limit < 1 || limit > 500 {
		limit = 100
	}

	signals, err := s.repo.GetSignals(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"signals": signals,
		"count":   len(signals),
	})
}

func (s *Server) handleGetSignal(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	signal, err := s.repo.GetSignalByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "signal not found"})
		return
	}

	c.JSON(http.StatusOK, signal)
}

func (s *Server) handleGetSignalIndicators(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	records, err := s.repo.GetIndicatorsBySignalID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(records) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "signal not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"signal_id":  id,
		"indicators": records,
	})
}

func (s *Server) handleGetSignalMatches(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	report, err := s.matcher.Match(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, knowledge.ErrNoFingerprint) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "signal has no indicator data to match"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report)
}

func (s *Server) handleGetInsights(c *gin.Context) {
	insights, err := s.engine.Analyze(c.Request.Context())
	if err != nil {
		if errors.Is(err, knowledge.ErrInsufficientOutcomes) {
			c.JSON(http.StatusOK, gin.H{
				"message":  "not enough recorded outcomes yet",
				"insights": nil,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, insights)
}

func parseIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signal id"})
		return 0, false
	}
	return id, true
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
