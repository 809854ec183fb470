// 사용자 정의 webhook 설정 구조체 정의

package model

import "time"

// WebhookHeader - webhook 요청에 추가할 헤더 한 쌍
type WebhookHeader struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// WebhookConfig - 알림 전달용 webhook 설정
// Body는 {{alert.*}} 변수를 포함할 수 있는 템플릿
// MinSeverity 미만의 알림은 이 webhook으로 전송하지 않는다 (빈 값 = 전부 수신)
type WebhookConfig struct {
	ID          int             `json:"id"`
	URL         string          `json:"url"`
	Method      string          `json:"method"`
	Headers     []WebhookHeader `json:"headers"`
	Body        string          `json:"body"`
	MinSeverity string          `json:"min_severity"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
