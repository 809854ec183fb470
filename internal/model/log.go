// 파이프라인 전 구간에서 공유하는 로그 데이터 구조체 정의
// handler, parser, service, db 레이어에서 공통으로 사용하기 때문에 model 레이어에 별도로 정의

package model

import "time"

// Severity 등급 (로그와 알림 공통 스케일)
const (
	SeverityFatal    = "fatal"
	SeverityCritical = "critical"
	SeverityWarn     = "warn"
	SeverityUnknown  = "unknown"
)

// SeverityRank - severity 비교용 순위 반환
// 알 수 없는 값은 0 (가장 낮음)
func SeverityRank(severity string) int {
	switch severity {
	case SeverityFatal:
		return 3
	case SeverityCritical:
		return 2
	case SeverityWarn:
		return 1
	default:
		return 0
	}
}

// LogRecord - 정규화된 로그 한 건
// 수집 시점에 생성되며 이후 불변. 배치에 포함될 때까지 파이프라인이 소유
type LogRecord struct {
	ID        string `json:"id"`
	Source    string `json:"source"`
	Container string `json:"container"`

	// Service: 로그 본문 또는 컨테이너 이름에서 추출한 서비스 이름
	// 추출 실패 시 "unknown" — fingerprint 계산에 참여
	Service string `json:"service"`

	// Severity: fatal | critical | warn (unknown은 수집 단계에서 걸러짐)
	Severity string `json:"severity"`

	RawLog      string    `json:"raw_log"`
	Fingerprint string    `json:"fingerprint"`
	Timestamp   time.Time `json:"timestamp"`
	IngestedAt  time.Time `json:"ingested_at"`
}

// IngestEntry - 수집 API 요청 한 건
type IngestEntry struct {
	Log       string     `json:"log"`
	Source    string     `json:"source"`
	Container string     `json:"container"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// IngestBatchRequest - 수집 API 배치 요청
type IngestBatchRequest struct {
	Logs []IngestEntry `json:"logs"`
}

// 수집 결과 상태
const (
	IngestStatusIngested = "ingested" // 저장 + 배치 큐 등록 완료
	IngestStatusSkipped  = "skipped"  // INFO/DEBUG 등 비대상 로그 (에러 아님)
	IngestStatusRejected = "rejected" // 빈 본문, 길이 초과 등 malformed
)

// IngestResult - 로그 한 건의 수집 결과
type IngestResult struct {
	Status string `json:"status"`
	LogID  string `json:"log_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// FlushedBatch - Aggregator가 닫은 배치. AI 분석 워커로 전달되는 단위
type FlushedBatch struct {
	Fingerprint string      `json:"fingerprint"`
	Records     []LogRecord `json:"records"`
	OpenedAt    time.Time   `json:"opened_at"`

	// Reason: "window" 또는 "size" (로깅/메트릭용)
	Reason string `json:"reason"`
}
