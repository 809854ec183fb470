package service

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/logsense/backend/internal/model"
	tmpl "github.com/logsense/backend/internal/template"
	log "github.com/sirupsen/logrus"
)

// webhookConfigReader - DB 인터페이스 (delivery 전용)
type webhookConfigReader interface {
	GetWebhookConfigs(ctx context.Context) ([]model.WebhookConfig, error)
}

// WebhookDeliveryService - 사용자 설정 Webhook으로 알림을 전송하는 서비스
type WebhookDeliveryService struct {
	configDB   webhookConfigReader
	httpClient *http.Client
}

// NewWebhookDeliveryService 생성자
func NewWebhookDeliveryService(configDB webhookConfigReader) *WebhookDeliveryService {
	return &WebhookDeliveryService{
		configDB: configDB,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Deliver - 저장된 모든 webhook config에 렌더링된 body를 HTTP로 전송
//
// 개별 config 실패 시 로그만 남기고 나머지는 계속 전송합니다.
func (s *WebhookDeliveryService) Deliver(alert model.Alert) {
	ctx := context.Background()

	configs, err := s.configDB.GetWebhookConfigs(ctx)
	if err != nil {
		log.Errorf("Failed to load webhook configs: %v", err)
		return
	}
	if len(configs) == 0 {
		return
	}

	alertData := tmpl.AlertDataFromModel(alert)

	for _, cfg := range configs {
		if cfg.URL == "" {
			log.Warnf("Skipping webhook config id=%d: URL is empty", cfg.ID)
			continue
		}
		// min_severity 하한 미달 알림은 이 config로 보내지 않는다
		if cfg.MinSeverity != "" && model.SeverityRank(alert.Severity) < model.SeverityRank(cfg.MinSeverity) {
			log.Debugf("Skipping webhook config id=%d: alert severity %s below threshold %s", cfg.ID, alert.Severity, cfg.MinSeverity)
			continue
		}

		rendered := tmpl.RenderBody(cfg.Body, &alertData)

		if err := s.sendHTTP(cfg, rendered); err != nil {
			log.Errorf("Failed to deliver alert %s to %s (config id=%d): %v", alert.ID, cfg.URL, cfg.ID, err)
		} else {
			log.Infof("Delivered alert %s to %s (config id=%d)", alert.ID, cfg.URL, cfg.ID)
		}
	}
}

// sendHTTP - 단일 webhook config로 HTTP 요청 전송
func (s *WebhookDeliveryService) sendHTTP(cfg model.WebhookConfig, body string) error {
	req, err := http.NewRequest(cfg.Method, cfg.URL, bytes.NewBufferString(body))
	if err != nil {
		return err
	}

	// Content-Type 기본값 설정 (없으면 application/json)
	hasContentType := false
	for _, h := range cfg.Headers {
		if h.Key != "" {
			req.Header.Set(h.Key, h.Value)
		}
		if http.CanonicalHeaderKey(h.Key) == "Content-Type" {
			hasContentType = true
		}
	}
	if !hasContentType {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
