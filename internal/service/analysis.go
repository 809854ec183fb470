// AI 분석 오케스트레이션 비즈니스 로직 정의
//
// provider 실패가 파이프라인을 멈추지 않도록 재시도/타임아웃을 여기서
// 흡수한다. 최종 실패 시 규칙 기반 fallback 분석을 생성 — 호출자는
// 항상 AlertCandidate를 받는다

package service

import (
	"context"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/logsense/backend/internal/client"
	"github.com/logsense/backend/internal/metrics"
	"github.com/logsense/backend/internal/model"
	log "github.com/sirupsen/logrus"
)

// 프롬프트에 포함할 최대 로그 줄 수
const maxPromptLines = 30

// classifier - AI 클라이언트 인터페이스 (분석 전용)
type classifier interface {
	Classify(ctx context.Context, req client.ClassifyRequest) (*model.Analysis, error)
	IsReady() bool
}

// AnalysisService 구조체 정의
type AnalysisService struct {
	ai          classifier
	timeout     time.Duration
	maxAttempts int

	// backoff - 재시도 간격 기본값 (테스트에서 단축)
	backoff time.Duration

	consecutiveFailures atomic.Int64
	counters            *metrics.Counters
}

// AnalysisService 객체 생성
func NewAnalysisService(ai classifier, timeout time.Duration, maxAttempts int, counters *metrics.Counters) *AnalysisService {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &AnalysisService{
		ai:          ai,
		timeout:     timeout,
		maxAttempts: maxAttempts,
		backoff:     time.Second,
		counters:    counters,
	}
}

// Analyze - 배치 하나를 분석해 알림 후보 반환 (실패하지 않음)
func (s *AnalysisService) Analyze(ctx context.Context, batch model.FlushedBatch) model.AlertCandidate {
	rep := batch.Records[0]
	req := client.ClassifyRequest{
		Service:         rep.Service,
		Severity:        batchSeverity(batch.Records),
		OccurrenceCount: len(batch.Records),
		LogsText:        joinLogs(batch.Records),
		LineCount:       min(len(batch.Records), maxPromptLines),
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		analysis, err := s.ai.Classify(callCtx, req)
		cancel()

		if err == nil {
			s.consecutiveFailures.Store(0)
			return s.candidate(batch, *analysis)
		}
		lastErr = err
		if !client.IsTransient(err) {
			// 스키마 오류/미설정은 provider 장애 신호가 아님 — 카운터 제외
			break
		}
		s.consecutiveFailures.Add(1)
		log.Warnf("AI classify attempt %d/%d failed for batch %s: %v", attempt, s.maxAttempts, batch.Fingerprint, err)
		if attempt < s.maxAttempts {
			select {
			case <-time.After(s.backoff * time.Duration(attempt)):
			case <-ctx.Done():
				attempt = s.maxAttempts
			}
		}
	}

	log.Warnf("AI classification failed for batch %s, using fallback: %v", batch.Fingerprint, lastErr)
	s.counters.AIFallbacks.Inc()
	return s.candidate(batch, fallbackAnalysis(req))
}

func (s *AnalysisService) candidate(batch model.FlushedBatch, analysis model.Analysis) model.AlertCandidate {
	logIDs := make([]string, 0, len(batch.Records))
	for _, rec := range batch.Records {
		logIDs = append(logIDs, rec.ID)
	}
	return model.AlertCandidate{
		Analysis:        analysis,
		Fingerprint:     batch.Fingerprint,
		Service:         batch.Records[0].Service,
		OccurrenceCount: len(batch.Records),
		LogIDs:          logIDs,
	}
}

// IsReady - provider 설정 여부 (health endpoint용)
func (s *AnalysisService) IsReady() bool {
	return s.ai.IsReady()
}

// ConsecutiveFailures - 연속 provider 실패 횟수. 성공 시 0으로 리셋
func (s *AnalysisService) ConsecutiveFailures() int {
	return int(s.consecutiveFailures.Load())
}

// 규칙 기반 fallback 카테고리 키워드 (순서 중요 — 먼저 매칭된 것 우선)
var fallbackCategories = []struct {
	category string
	keywords []string
}{
	{"database", []string{"database", "sql", "connection pool", "deadlock", "postgres", "mysql"}},
	{"network", []string{"timeout", "connection refused", "unreachable", "dns", "socket"}},
	{"auth", []string{"unauthorized", "forbidden", "token", "authentication", "permission"}},
	{"crash", []string{"panic", "segfault", "oom", "out of memory", "killed", "fatal"}},
	{"performance", []string{"slow", "latency", "memory leak", "cpu", "throttl"}},
	{"security", []string{"injection", "xss", "csrf", "attack", "exploit"}},
	{"config", []string{"config", "env", "missing variable", "not set"}},
}

// fallbackAnalysis - provider 불가 시의 degraded 분석
// 항상 사람 확인 플래그를 켠다
func fallbackAnalysis(req client.ClassifyRequest) model.Analysis {
	lower := strings.ToLower(req.LogsText)
	category := "other"
	for _, fc := range fallbackCategories {
		for _, kw := range fc.keywords {
			if strings.Contains(lower, kw) {
				category = fc.category
				break
			}
		}
		if category != "other" {
			break
		}
	}

	severity := req.Severity
	if model.SeverityRank(severity) == 0 {
		severity = model.SeverityWarn
	}

	summary := strings.TrimSpace(req.LogsText)
	if idx := strings.IndexByte(summary, '\n'); idx >= 0 {
		summary = summary[:idx]
	}
	if len(summary) > 120 {
		// 멀티바이트 문자를 중간에서 자르지 않도록 rune 경계로 내린다
		cut := 117
		for cut > 0 && !utf8.RuneStart(summary[cut]) {
			cut--
		}
		summary = summary[:cut] + "..."
	}

	return model.Analysis{
		Category:           category,
		Severity:           severity,
		Confidence:         0.3,
		Summary:            summary,
		RootCause:          "Automated analysis unavailable; classified by keyword rules.",
		RecommendedActions: []string{"Inspect the raw logs manually."},
		VerificationSteps:  []string{"Confirm the error stops recurring after remediation."},
		NeedsHumanReview:   true,
	}
}

// batchSeverity - 배치 내 최고 severity
func batchSeverity(records []model.LogRecord) string {
	severity := records[0].Severity
	for _, rec := range records[1:] {
		if model.SeverityRank(rec.Severity) > model.SeverityRank(severity) {
			severity = rec.Severity
		}
	}
	return severity
}

func joinLogs(records []model.LogRecord) string {
	n := min(len(records), maxPromptLines)
	lines := make([]string, 0, n)
	for _, rec := range records[:n] {
		lines = append(lines, rec.RawLog)
	}
	return strings.Join(lines, "\n")
}
