// 원시 로그 라인을 필터링하고 LogRecord로 정규화하는 파서 정의
//
// 처리 흐름:
//  1. Sanitize: 시크릿/이메일/카드번호 등 민감정보 마스킹
//  2. 검증: 빈 본문, 길이 초과 → ErrMalformedInput
//  3. severity 분류: FATAL/ERROR/WARN 계열 키워드 매칭, 첫 매치 우선
//     매치 없으면 ErrNotActionable (INFO/DEBUG 노이즈 — 에러 아님)
//  4. 서비스 이름 추출: 로그 본문 → 컨테이너 이름 prefix → "unknown"

package parser

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/logsense/backend/internal/model"
)

var (
	// ErrMalformedInput - 빈 본문 또는 길이 초과. 수집 호출자에게 그대로 보고됨
	ErrMalformedInput = errors.New("malformed log input")

	// ErrNotActionable - 처리 대상 severity가 아님. 실패가 아니라 정상 필터링
	ErrNotActionable = errors.New("log is not actionable")
)

// severity 분류 규칙 (순서 중요 — 첫 매치 우선)
var severityRules = []struct {
	pattern  *regexp.Regexp
	severity string
}{
	{regexp.MustCompile(`(?i)\b(FATAL|PANIC)\b`), model.SeverityFatal},
	{regexp.MustCompile(`(?i)\b(ERROR|ERR|CRITICAL|EXCEPTION|TRACEBACK)\b`), model.SeverityCritical},
	{regexp.MustCompile(`(?i)\b(WARN|WARNING)\b`), model.SeverityWarn},
}

// 민감정보 마스킹 패턴 (AI 분석 전에 적용)
var sanitizePatterns = []struct {
	pattern *regexp.Regexp
	repl    string
}{
	{regexp.MustCompile(`(?i)(api[_-]?key|token|secret|password|passwd|pwd|authorization|bearer)\s*[=:]\s*\S+`), `$1=***REDACTED***`},
	{regexp.MustCompile(`eyJ[a-zA-Z0-9_-]{10,}\.eyJ[a-zA-Z0-9_-]{10,}\.[a-zA-Z0-9_-]+`), `***JWT***`},
	{regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`), `***EMAIL***`},
	{regexp.MustCompile(`\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`), `***CARD***`},
}

// 서비스 이름 후보 추출 패턴 (예: "[payment-service]", "auth-api:")
var servicePattern = regexp.MustCompile(`[\[\s]?(\w[\w\-.]+)[\]:\s]`)

// severity 키워드는 서비스 이름이 될 수 없음
var severityWords = map[string]struct{}{
	"fatal": {}, "panic": {}, "error": {}, "err": {}, "critical": {},
	"warn": {}, "warning": {}, "info": {}, "debug": {}, "exception": {}, "traceback": {},
}

// Parser 구조체 정의
type Parser struct {
	maxLineLength int
}

// Parser 객체 생성
func New(maxLineLength int) *Parser {
	return &Parser{maxLineLength: maxLineLength}
}

// Sanitize - 민감정보 마스킹
func (p *Parser) Sanitize(line string) string {
	for _, sp := range sanitizePatterns {
		line = sp.pattern.ReplaceAllString(line, sp.repl)
	}
	return line
}

// DetectSeverity - severity 분류. 매치 없으면 unknown
func (p *Parser) DetectSeverity(line string) string {
	for _, rule := range severityRules {
		if rule.pattern.MatchString(line) {
			return rule.severity
		}
	}
	return model.SeverityUnknown
}

// ExtractService - 로그 본문에서 서비스 이름 추출
// 본문에 후보가 없으면 컨테이너 이름 prefix, 그것도 없으면 "unknown"
func (p *Parser) ExtractService(line, container string) string {
	if m := servicePattern.FindStringSubmatch(line); m != nil {
		candidate := strings.ToLower(m[1])
		if _, reserved := severityWords[candidate]; !reserved {
			return candidate
		}
	}
	if container != "" && container != "unknown" {
		if idx := strings.Index(container, "-"); idx > 0 {
			return container[:idx]
		}
		return container
	}
	return "unknown"
}

// Normalize - 수집 요청 한 건을 LogRecord로 변환
//
// Returns:
//   - ErrMalformedInput: 거부 (호출자에게 보고)
//   - ErrNotActionable: 비대상 로그 (조용히 drop)
func (p *Parser) Normalize(entry model.IngestEntry) (*model.LogRecord, error) {
	text := strings.TrimSpace(entry.Log)
	if text == "" {
		return nil, ErrMalformedInput
	}
	if p.maxLineLength > 0 && len(text) > p.maxLineLength {
		return nil, ErrMalformedInput
	}

	text = p.Sanitize(text)

	severity := p.DetectSeverity(text)
	if severity == model.SeverityUnknown {
		return nil, ErrNotActionable
	}

	container := entry.Container
	if container == "" {
		container = "unknown"
	}
	source := entry.Source
	if source == "" {
		source = "api"
	}

	timestamp := time.Now().UTC()
	if entry.Timestamp != nil {
		timestamp = entry.Timestamp.UTC()
	}

	record := &model.LogRecord{
		ID:         uuid.NewString(),
		Source:     source,
		Container:  container,
		Service:    p.ExtractService(text, container),
		Severity:   severity,
		RawLog:     text,
		Timestamp:  timestamp,
		IngestedAt: time.Now().UTC(),
	}
	record.Fingerprint = Fingerprint(record)
	return record, nil
}
