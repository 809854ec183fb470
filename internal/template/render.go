// Package template provides webhook body template rendering.
//
// 지원하는 변수 형식:
//
//	{{alert.id}}, {{alert.category}}, {{alert.severity}}, {{alert.service}},
//	{{alert.summary}}, {{alert.root_cause}}, {{alert.confidence}},
//	{{alert.fingerprint}}, {{alert.occurrences}}, {{alert.created_at}}
package template

import (
	"strconv"
	"strings"
	"time"

	"github.com/logsense/backend/internal/model"
)

// AlertData - 템플릿 렌더링에 사용할 Alert 데이터
type AlertData struct {
	ID          string
	Category    string
	Severity    string
	Service     string
	Summary     string
	RootCause   string
	Confidence  float64
	Fingerprint string
	Occurrences int
	CreatedAt   time.Time
}

// AlertDataFromModel - model.Alert에서 AlertData 생성
func AlertDataFromModel(alert model.Alert) AlertData {
	return AlertData{
		ID:          alert.ID,
		Category:    alert.Category,
		Severity:    alert.Severity,
		Service:     alert.Service,
		Summary:     alert.Summary,
		RootCause:   alert.RootCause,
		Confidence:  alert.Confidence,
		Fingerprint: alert.Fingerprint,
		Occurrences: alert.OccurrenceCount,
		CreatedAt:   alert.CreatedAt,
	}
}

// RenderBody - webhook body 템플릿의 변수를 실제 값으로 치환
//
// alert를 nil로 전달하면 모든 변수가 빈 문자열로 치환됩니다.
func RenderBody(body string, alert *AlertData) string {
	pairs := make([]string, 0, 20)

	if alert != nil {
		pairs = append(pairs,
			"{{alert.id}}", alert.ID,
			"{{alert.category}}", alert.Category,
			"{{alert.severity}}", alert.Severity,
			"{{alert.service}}", alert.Service,
			"{{alert.summary}}", alert.Summary,
			"{{alert.root_cause}}", alert.RootCause,
			"{{alert.confidence}}", strconv.FormatFloat(alert.Confidence, 'f', 2, 64),
			"{{alert.fingerprint}}", alert.Fingerprint,
			"{{alert.occurrences}}", strconv.Itoa(alert.Occurrences),
			"{{alert.created_at}}", alert.CreatedAt.Format(time.RFC3339),
		)
	} else {
		pairs = append(pairs,
			"{{alert.id}}", "",
			"{{alert.category}}", "",
			"{{alert.severity}}", "",
			"{{alert.service}}", "",
			"{{alert.summary}}", "",
			"{{alert.root_cause}}", "",
			"{{alert.confidence}}", "",
			"{{alert.fingerprint}}", "",
			"{{alert.occurrences}}", "",
			"{{alert.created_at}}", "",
		)
	}

	return strings.NewReplacer(pairs...).Replace(body)
}
