// Push 알림 대상 구조체 정의

package model

import "time"

// PushTarget - 등록된 push 알림 대상 (Expo 디바이스 토큰)
type PushTarget struct {
	Token string `json:"token"`

	// MinSeverity: 이 등급 이상일 때만 전송 (기본 warn = 전부)
	MinSeverity string `json:"min_severity"`

	// Service: 값이 있으면 해당 서비스 알림만 수신
	Service string `json:"service,omitempty"`

	Platform     string    `json:"platform"`
	Active       bool      `json:"active"`
	RegisteredAt time.Time `json:"registered_at"`
}

// TokenRegistration - push 토큰 등록 요청
// 같은 토큰 재등록은 기존 항목 갱신 (멱등)
type TokenRegistration struct {
	Token       string `json:"token" binding:"required"`
	MinSeverity string `json:"min_severity"`
	Service     string `json:"service"`
	Platform    string `json:"platform"`
}
