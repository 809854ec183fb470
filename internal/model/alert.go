// AI 분석 결과 및 Alert 구조체 정의

package model

import "time"

// Analysis - AI 분류 응답 스키마
// provider 응답은 이 구조체로 엄격하게 디코딩되며,
// 스키마 검증 실패 시 fallback 경로로 빠진다
type Analysis struct {
	// Category: database | network | auth | crash | performance | security | config | other
	Category string `json:"category"`

	// Severity: fatal | critical | warn (로그 severity와 동일 스케일)
	Severity string `json:"severity"`

	// Confidence: 0.0 ~ 1.0
	Confidence float64 `json:"confidence"`

	Summary   string `json:"summary"`
	RootCause string `json:"root_cause"`

	// RecommendedActions: 즉시 조치 항목 (순서 있음)
	RecommendedActions []string `json:"recommended_actions"`

	// VerificationSteps: 조치 후 확인 절차
	VerificationSteps []string `json:"verification_steps"`

	// NeedsHumanReview: 사람 개입 필요 여부 (fallback 시 항상 true)
	NeedsHumanReview bool `json:"needs_human_review"`
}

// AlertCandidate - 저장 전 알림 후보
// AI Orchestrator의 출력이며 Alert Store에 저장되면 Alert가 된다
type AlertCandidate struct {
	Analysis

	Fingerprint     string   `json:"fingerprint"`
	Service         string   `json:"service"`
	OccurrenceCount int      `json:"occurrence_count"`
	LogIDs          []string `json:"log_ids"`
}

// Alert - 저장된 알림
// 생성 후 notified 북키핑 외에는 불변
type Alert struct {
	ID string `json:"id"`

	AlertCandidate

	CreatedAt         time.Time  `json:"created_at"`
	NotifiedAt        *time.Time `json:"notified_at,omitempty"`
	NotificationCount int        `json:"notification_count"`
}

// AlertListResponse - 목록 조회 응답 (최신순, 커서 페이지네이션)
type AlertListResponse struct {
	Data       []Alert `json:"data"`
	Limit      int     `json:"limit"`
	NextCursor string  `json:"next_cursor,omitempty"`
}

// StatsResponse - severity/category별 집계
type StatsResponse struct {
	TotalAlerts    int            `json:"total_alerts"`
	SeverityCounts map[string]int `json:"severity_counts"`
	CategoryCounts map[string]int `json:"category_counts"`
}

// RelatedAlert - 임베딩 유사도 기반 연관 알림
type RelatedAlert struct {
	ID        string    `json:"id"`
	Summary   string    `json:"summary"`
	Category  string    `json:"category"`
	Severity  string    `json:"severity"`
	CreatedAt time.Time `json:"created_at"`
	Distance  float64   `json:"distance"`
}
