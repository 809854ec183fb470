package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/logsense/backend/internal/model"
)

// pipelineStatus - health 집계에 필요한 파이프라인 상태 인터페이스
type pipelineStatus interface {
	OpenBatches() int
	PendingBatches() int
}

type aiStatus interface {
	IsReady() bool
	ConsecutiveFailures() int
}

type hubStatus interface {
	Subscribers() int
}

// HealthHandler - 상태 점검 핸들러
type HealthHandler struct {
	ai       aiStatus
	pipeline pipelineStatus
	hub      hubStatus
}

func NewHealthHandler(ai aiStatus, pipeline pipelineStatus, hub hubStatus) *HealthHandler {
	return &HealthHandler{ai: ai, pipeline: pipeline, hub: hub}
}

// Health - GET /health
// AI provider가 죽어 있어도 수집은 동작하므로 항상 200
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, model.HealthResponse{
		Status:                "healthy",
		AI:                    h.ai.IsReady(),
		AIConsecutiveFailures: h.ai.ConsecutiveFailures(),
		OpenBatches:           h.pipeline.OpenBatches(),
		PendingBatches:        h.pipeline.PendingBatches(),
		Subscribers:           h.hub.Subscribers(),
	})
}

// 헬스체크 엔드포인트
func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, model.PingResponse{Message: "pong"})
}

// 루트 엔드포인트
func Root(c *gin.Context) {
	c.JSON(http.StatusOK, model.RootResponse{
		Service: "logsense-backend",
		Status:  "ok",
		Message: "Log alerting pipeline is running",
	})
}
