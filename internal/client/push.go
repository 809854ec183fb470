// 외부 Expo Push API와 통신하는 클라이언트 정의
//
// 티켓 단위 결과를 해석해 영구 실패(DeviceNotRegistered 등)와
// 일시 실패를 구분한다. 영구 실패는 호출 측에서 토큰 비활성화

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/logsense/backend/internal/model"
)

const expoPushURL = "https://exp.host/--/api/v2/push/send"

// ErrUnregisteredTarget - 수신 불가 대상 (재시도 금지, 토큰 비활성화 대상)
var ErrUnregisteredTarget = errors.New("push target no longer registered")

var severityEmoji = map[string]string{
	model.SeverityFatal:    "🔴",
	model.SeverityCritical: "🟠",
	model.SeverityWarn:     "🟡",
}

type expoPushMessage struct {
	To        string            `json:"to"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
	Sound     string            `json:"sound,omitempty"`
	Priority  string            `json:"priority,omitempty"`
	ChannelID string            `json:"channelId,omitempty"`
}

type expoPushTicket struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Details struct {
		Error string `json:"error,omitempty"`
	} `json:"details,omitempty"`
}

type expoPushResponse struct {
	Data []expoPushTicket `json:"data"`
}

// PushClient 구조체 정의
type PushClient struct {
	url        string
	httpClient *http.Client
}

// PushClient 객체 생성
func NewPushClient() *PushClient {
	return &PushClient{
		url:        expoPushURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send - 알림 한 건을 단일 토큰으로 전송
// 일시 오류는 일반 에러, 영구 오류는 ErrUnregisteredTarget으로 반환
func (p *PushClient) Send(ctx context.Context, token string, alert model.Alert) error {
	msg := expoPushMessage{
		To:    token,
		Title: buildPushTitle(alert),
		Body:  truncate(alert.Summary, 200),
		Data: map[string]string{
			"alert_id": alert.ID,
			"category": alert.Category,
			"severity": alert.Severity,
			"service":  alert.Service,
		},
		Sound:     "default",
		ChannelID: "alerts",
	}
	if model.SeverityRank(alert.Severity) >= model.SeverityRank(model.SeverityCritical) {
		msg.Priority = "high"
	}

	payload, err := json.Marshal([]expoPushMessage{msg})
	if err != nil {
		return fmt.Errorf("failed to marshal push message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("push service returned status %d", resp.StatusCode)
		}
		// 4xx는 payload 문제 — 재시도해도 소용없음
		return fmt.Errorf("%w: push service rejected request with status %d", ErrUnregisteredTarget, resp.StatusCode)
	}

	var ticketResp expoPushResponse
	if err := json.Unmarshal(body, &ticketResp); err != nil {
		return fmt.Errorf("failed to parse push tickets: %w", err)
	}

	for _, ticket := range ticketResp.Data {
		if ticket.Status == "ok" {
			continue
		}
		if ticket.Details.Error == "DeviceNotRegistered" {
			return fmt.Errorf("%w: %s", ErrUnregisteredTarget, ticket.Message)
		}
		return fmt.Errorf("push ticket error %q: %s", ticket.Details.Error, ticket.Message)
	}
	return nil
}

// IsUnregistered - 토큰 비활성화가 필요한 영구 실패 여부
func IsUnregistered(err error) bool {
	return errors.Is(err, ErrUnregisteredTarget)
}

func buildPushTitle(alert model.Alert) string {
	emoji, ok := severityEmoji[alert.Severity]
	if !ok {
		emoji = "⚪"
	}
	return fmt.Sprintf("%s %s: %s", emoji, strings.ToUpper(alert.Severity), alert.Category)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// rune 경계로 내려 멀티바이트 문자가 깨지지 않게 한다
	cut := max - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
