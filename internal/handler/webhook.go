package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/logsense/backend/internal/model"
)

// webhookConfigStore - DB 인터페이스 (설정 CRUD 전용)
type webhookConfigStore interface {
	GetWebhookConfigs(ctx context.Context) ([]model.WebhookConfig, error)
	GetWebhookConfigByID(ctx context.Context, id int) (*model.WebhookConfig, error)
	CreateWebhookConfig(ctx context.Context, cfg model.WebhookConfig) (int, error)
	UpdateWebhookConfig(ctx context.Context, id int, cfg model.WebhookConfig) error
	DeleteWebhookConfig(ctx context.Context, id int) error
}

// WebhookHandler - 웹훅 설정 관련 핸들러
type WebhookHandler struct {
	db webhookConfigStore
}

func NewWebhookHandler(db webhookConfigStore) *WebhookHandler {
	return &WebhookHandler{db: db}
}

// List - GET /webhooks
func (h *WebhookHandler) List(c *gin.Context) {
	configs, err := h.db.GetWebhookConfigs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": configs})
}

// Get - GET /webhooks/:id
func (h *WebhookHandler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid id"})
		return
	}
	cfg, err := h.db.GetWebhookConfigByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// Create - POST /webhooks
func (h *WebhookHandler) Create(c *gin.Context) {
	var cfg model.WebhookConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}
	if cfg.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "url is required"})
		return
	}
	if cfg.Method == "" {
		cfg.Method = http.MethodPost
	}
	if cfg.MinSeverity != "" && model.SeverityRank(cfg.MinSeverity) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid min_severity"})
		return
	}

	id, err := h.db.CreateWebhookConfig(c.Request.Context(), cfg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, model.WebhookCreateResponse{Status: "created", ID: id})
}

// Update - PUT /webhooks/:id
func (h *WebhookHandler) Update(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid id"})
		return
	}
	var cfg model.WebhookConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}
	if cfg.MinSeverity != "" && model.SeverityRank(cfg.MinSeverity) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid min_severity"})
		return
	}
	if err := h.db.UpdateWebhookConfig(c.Request.Context(), id, cfg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, model.StatusResponse{Status: "updated"})
}

// Delete - DELETE /webhooks/:id
func (h *WebhookHandler) Delete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid id"})
		return
	}
	if err := h.db.DeleteWebhookConfig(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, model.StatusResponse{Status: "deleted"})
}
