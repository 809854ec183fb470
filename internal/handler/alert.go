package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/logsense/backend/internal/model"
	"github.com/logsense/backend/internal/service"
)

// SSE keepalive 주기 — 프록시의 idle timeout보다 짧게
const sseKeepalive = 30 * time.Second

// alertService - 서비스 인터페이스
type alertService interface {
	Get(ctx context.Context, id string) (*model.Alert, error)
	List(ctx context.Context, limit int, cursor string) (*model.AlertListResponse, error)
	Stats(ctx context.Context) (*model.StatsResponse, error)
	Related(ctx context.Context, id string, limit int) ([]model.RelatedAlert, error)
}

// subscriptionHub - SSE 구독 인터페이스
type subscriptionHub interface {
	Subscribe() (*service.Subscription, error)
	Unsubscribe(id int64)
}

// AlertHandler - 알림 조회/스트리밍 관련 핸들러
type AlertHandler struct {
	svc alertService
	hub subscriptionHub
}

func NewAlertHandler(svc alertService, hub subscriptionHub) *AlertHandler {
	return &AlertHandler{svc: svc, hub: hub}
}

// List - GET /alerts?limit=&cursor=
func (h *AlertHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	resp, err := h.svc.List(c.Request.Context(), limit, c.Query("cursor"))
	if err != nil {
		if errors.Is(err, service.ErrBadCursor) {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid cursor"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Get - GET /alerts/:id
func (h *AlertHandler) Get(c *gin.Context) {
	alert, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrAlertNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "alert not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, alert)
}

// Related - GET /alerts/:id/related
func (h *AlertHandler) Related(c *gin.Context) {
	related, err := h.svc.Related(c.Request.Context(), c.Param("id"), 5)
	if err != nil {
		if errors.Is(err, service.ErrAlertNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "alert not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": related})
}

// Stats - GET /alerts/stats
func (h *AlertHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Stream - GET /alerts/stream (SSE)
// 연결 시점 이후 생성된 알림만 전달한다
func (h *AlertHandler) Stream(c *gin.Context) {
	sub, err := h.hub.Subscribe()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": err.Error()})
		return
	}
	defer h.hub.Unsubscribe(sub.ID)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(sseKeepalive)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case alert, ok := <-sub.C:
			if !ok {
				return false
			}
			c.SSEvent("alert", alert)
			return true
		case <-ticker.C:
			_, err := w.Write([]byte(": keepalive\n\n"))
			return err == nil
		case <-c.Request.Context().Done():
			return false
		}
	})
}
