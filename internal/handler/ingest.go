package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/logsense/backend/internal/model"
	"github.com/logsense/backend/internal/service"
)

// ingestService - 서비스 인터페이스
type ingestService interface {
	Ingest(ctx context.Context, entry model.IngestEntry) model.IngestResult
	IngestBatch(ctx context.Context, entries []model.IngestEntry) (*model.IngestBatchResponse, error)
	RecentLogs(ctx context.Context, limit int) ([]model.LogRecord, error)
}

// IngestHandler - 로그 수집 관련 핸들러
type IngestHandler struct {
	svc ingestService
}

func NewIngestHandler(svc ingestService) *IngestHandler {
	return &IngestHandler{svc: svc}
}

// Ingest - POST /ingest
// skip은 200으로 응답한다 (정상 필터링), malformed만 400
func (h *IngestHandler) Ingest(c *gin.Context) {
	var entry model.IngestEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	result := h.svc.Ingest(c.Request.Context(), entry)
	if result.Status == model.IngestStatusRejected {
		c.JSON(http.StatusBadRequest, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// IngestBatch - POST /ingest/batch
// 크기 한도 초과 시 배치 전체 거부
func (h *IngestHandler) IngestBatch(c *gin.Context) {
	var req model.IngestBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	resp, err := h.svc.IngestBatch(c.Request.Context(), req.Logs)
	if err != nil {
		if errors.Is(err, service.ErrBatchTooLarge) {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RecentLogs - GET /logs/recent
func (h *IngestHandler) RecentLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	records, err := h.svc.RecentLogs(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": records})
}
