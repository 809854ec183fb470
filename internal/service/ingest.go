// 로그 수집 비즈니스 로직 정의
//
// 수집 한 건 = 정규화 → 저장 → 배치 큐 등록
// 저장 실패는 로그만 남기고 배치 분석은 계속 진행한다

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/logsense/backend/internal/metrics"
	"github.com/logsense/backend/internal/model"
	"github.com/logsense/backend/internal/parser"
	log "github.com/sirupsen/logrus"
)

// ErrBatchTooLarge - 배치 요청 크기 초과 (전체 거부)
var ErrBatchTooLarge = errors.New("ingest batch exceeds maximum size")

// logStore - DB 인터페이스 (수집 전용)
type logStore interface {
	SaveLogRecord(ctx context.Context, rec *model.LogRecord) error
	GetRecentLogs(ctx context.Context, limit int) ([]model.LogRecord, error)
}

// IngestService 구조체 정의
type IngestService struct {
	parser   *parser.Parser
	logs     logStore
	agg      *Aggregator
	maxBatch int
	counters *metrics.Counters
}

// IngestService 객체 생성
func NewIngestService(p *parser.Parser, logs logStore, agg *Aggregator, maxBatch int, counters *metrics.Counters) *IngestService {
	return &IngestService{
		parser:   p,
		logs:     logs,
		agg:      agg,
		maxBatch: maxBatch,
		counters: counters,
	}
}

// Ingest - 로그 한 건 수집. 항상 결과를 반환 (skip/reject도 정상 흐름)
func (s *IngestService) Ingest(ctx context.Context, entry model.IngestEntry) model.IngestResult {
	record, err := s.parser.Normalize(entry)
	switch {
	case errors.Is(err, parser.ErrNotActionable):
		s.counters.RecordsSkipped.Inc()
		return model.IngestResult{Status: model.IngestStatusSkipped}
	case err != nil:
		s.counters.RecordsRejected.Inc()
		return model.IngestResult{Status: model.IngestStatusRejected, Error: err.Error()}
	}

	if err := s.logs.SaveLogRecord(ctx, record); err != nil {
		log.Errorf("Failed to save log record %s: %v", record.ID, err)
	}

	s.agg.Append(*record)
	s.counters.RecordsIngested.Inc(record.Service, record.Severity)
	return model.IngestResult{Status: model.IngestStatusIngested, LogID: record.ID}
}

// IngestBatch - 배치 수집. 한도 초과 시 전체 거부, 이외에는 건별 독립 처리
func (s *IngestService) IngestBatch(ctx context.Context, entries []model.IngestEntry) (*model.IngestBatchResponse, error) {
	if len(entries) > s.maxBatch {
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(entries), s.maxBatch)
	}

	resp := &model.IngestBatchResponse{Results: make([]model.IngestResult, 0, len(entries))}
	for _, entry := range entries {
		result := s.Ingest(ctx, entry)
		switch result.Status {
		case model.IngestStatusIngested:
			resp.Ingested++
		case model.IngestStatusSkipped:
			resp.Skipped++
		default:
			resp.Rejected++
		}
		resp.Results = append(resp.Results, result)
	}
	return resp, nil
}

// RecentLogs - 최근 수집 로그 조회 (디버깅 endpoint용)
func (s *IngestService) RecentLogs(ctx context.Context, limit int) ([]model.LogRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.logs.GetRecentLogs(ctx, limit)
}
