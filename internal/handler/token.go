package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/logsense/backend/internal/model"
)

// pushTargetWriter - DB 인터페이스 (토큰 등록 전용)
type pushTargetWriter interface {
	UpsertPushTarget(ctx context.Context, target model.PushTarget) error
	DeletePushTarget(ctx context.Context, token string) error
}

// TokenHandler - push 토큰 등록 관련 핸들러
type TokenHandler struct {
	db pushTargetWriter
}

func NewTokenHandler(db pushTargetWriter) *TokenHandler {
	return &TokenHandler{db: db}
}

// Register - POST /register-token
// 동일 토큰 재등록은 설정 갱신 (멱등)
func (h *TokenHandler) Register(c *gin.Context) {
	var req model.TokenRegistration
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	if req.MinSeverity == "" {
		req.MinSeverity = model.SeverityWarn
	}
	if model.SeverityRank(req.MinSeverity) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid min_severity"})
		return
	}
	if req.Platform == "" {
		req.Platform = "expo"
	}

	target := model.PushTarget{
		Token:       req.Token,
		MinSeverity: req.MinSeverity,
		Service:     req.Service,
		Platform:    req.Platform,
	}
	if err := h.db.UpsertPushTarget(c.Request.Context(), target); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, model.TokenRegisterResponse{Status: "registered", Token: maskToken(req.Token)})
}

// Unregister - DELETE /register-token?token=
func (h *TokenHandler) Unregister(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "token query parameter required"})
		return
	}
	if err := h.db.DeletePushTarget(c.Request.Context(), token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, model.StatusResponse{Status: "unregistered"})
}

// maskToken - 응답/로그용 토큰 축약
func maskToken(token string) string {
	if len(token) <= 12 {
		return token
	}
	return token[:12] + "..."
}
