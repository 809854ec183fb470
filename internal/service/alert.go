// Alert 생성/조회 비즈니스 로직 정의
//
// 생성 경로는 fingerprint별 cool-down을 적용한다: 최근 알림이 있으면
// severity가 엄격히 상승한 경우에만 새 알림을 만든다.
// 저장은 지수 백오프로 재시도하고 최종 실패 시 ErrPersistence 반환

package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/logsense/backend/internal/metrics"
	"github.com/logsense/backend/internal/model"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrDeduped - cool-down에 걸려 버려진 후보 (에러 상황 아님)
	ErrDeduped = errors.New("alert suppressed by cool-down")

	// ErrAlertNotFound - 조회 대상 없음
	ErrAlertNotFound = errors.New("alert not found")

	// ErrPersistence - 재시도 소진 후 저장 실패
	ErrPersistence = errors.New("alert persistence failed")

	// ErrBadCursor - 해석 불가능한 페이지네이션 커서
	ErrBadCursor = errors.New("malformed pagination cursor")
)

// alertStore - DB 인터페이스 (alert 전용)
type alertStore interface {
	InsertAlert(ctx context.Context, alert *model.Alert) error
	GetAlert(ctx context.Context, id string) (*model.Alert, error)
	ListAlerts(ctx context.Context, limit int, before time.Time, beforeID string) ([]model.Alert, error)
	Stats(ctx context.Context) (*model.StatsResponse, error)
}

// embeddingStore - 연관 알림용 pgvector 저장소 인터페이스
type embeddingStore interface {
	InsertAlertEmbedding(ctx context.Context, alertID, summary, embeddingModel string, vec []float32) error
	GetAlertEmbedding(ctx context.Context, alertID string) ([]float32, error)
	FindRelatedAlerts(ctx context.Context, excludeAlertID string, vec []float32, limit int) ([]model.RelatedAlert, error)
}

// TextEmbedder - 임베딩 클라이언트 인터페이스
type TextEmbedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, string, error)
}

// alertNotifier - 생성 직후 전파 인터페이스 (nil이면 전파 없음)
type alertNotifier interface {
	Notify(alert model.Alert)
}

type cooldownEntry struct {
	severity  string
	createdAt time.Time
}

// AlertService 구조체 정의
type AlertService struct {
	store      alertStore
	embedStore embeddingStore
	embedder   TextEmbedder  // nil이면 연관 알림 비활성
	notifier   alertNotifier // nil이면 전파 없음

	cooldown      time.Duration
	insertRetries int
	retryBackoff  time.Duration

	defaultLimit int
	maxLimit     int

	mu     sync.Mutex
	recent map[string]cooldownEntry

	// orderMu - 생성 직렬화 락. 타임스탬프 부여, 저장, 구독자 전파를 한 임계
	// 구역에 묶어 구독자가 보는 순서와 created_at 순서를 일치시킨다
	orderMu sync.Mutex

	counters *metrics.Counters
}

// AlertService 객체 생성
func NewAlertService(store alertStore, embedStore embeddingStore, embedder TextEmbedder,
	notifier alertNotifier, cooldown time.Duration, defaultLimit, maxLimit int, counters *metrics.Counters) *AlertService {
	return &AlertService{
		store:         store,
		embedStore:    embedStore,
		embedder:      embedder,
		notifier:      notifier,
		cooldown:      cooldown,
		insertRetries: 3,
		retryBackoff:  200 * time.Millisecond,
		defaultLimit:  defaultLimit,
		maxLimit:      maxLimit,
		recent:        map[string]cooldownEntry{},
		counters:      counters,
	}
}

// Create - 후보를 검사해 알림으로 저장
// cool-down 검사와 슬롯 선점을 한 임계 구역에서 수행해 동시 후보의 중복 생성을 막는다
func (s *AlertService) Create(ctx context.Context, cand model.AlertCandidate) (*model.Alert, error) {
	now := time.Now().UTC()

	s.mu.Lock()
	if entry, ok := s.recent[cand.Fingerprint]; ok && s.cooldown > 0 &&
		now.Sub(entry.createdAt) < s.cooldown &&
		model.SeverityRank(cand.Severity) <= model.SeverityRank(entry.severity) {
		s.mu.Unlock()
		s.counters.AlertsDeduped.Inc()
		return nil, ErrDeduped
	}
	s.recent[cand.Fingerprint] = cooldownEntry{severity: cand.Severity, createdAt: now}
	s.mu.Unlock()

	// 저장과 전파는 orderMu 아래에서 직렬화 — 느린 insert가 끼어들어도
	// 구독자는 created_at 오름차순 그대로 알림을 받는다
	s.orderMu.Lock()
	alert := &model.Alert{
		ID:             uuid.NewString(),
		AlertCandidate: cand,
		CreatedAt:      time.Now().UTC(),
	}

	var err error
	for attempt := 1; attempt <= s.insertRetries; attempt++ {
		if err = s.store.InsertAlert(ctx, alert); err == nil {
			break
		}
		if attempt < s.insertRetries {
			time.Sleep(s.retryBackoff * time.Duration(1<<(attempt-1)))
		}
	}
	if err != nil {
		s.orderMu.Unlock()
		// 저장 실패 — 선점한 cool-down 슬롯 반납
		s.mu.Lock()
		if entry, ok := s.recent[cand.Fingerprint]; ok && entry.createdAt.Equal(now) {
			delete(s.recent, cand.Fingerprint)
		}
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	s.counters.AlertsCreated.Inc(alert.Severity, alert.Category)
	if s.notifier != nil {
		s.notifier.Notify(*alert)
	}
	s.orderMu.Unlock()

	if s.embedder != nil && s.embedStore != nil {
		go s.storeEmbedding(*alert)
	}
	return alert, nil
}

// storeEmbedding - 요약 임베딩 저장 (best-effort)
func (s *AlertService) storeEmbedding(alert model.Alert) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	vec, embeddingModel, err := s.embedder.EmbedText(ctx, alert.Summary)
	if err != nil {
		log.Warnf("Failed to embed alert %s summary: %v", alert.ID, err)
		return
	}
	if err := s.embedStore.InsertAlertEmbedding(ctx, alert.ID, alert.Summary, embeddingModel, vec); err != nil {
		log.Warnf("Failed to store embedding for alert %s: %v", alert.ID, err)
	}
}

func (s *AlertService) Get(ctx context.Context, id string) (*model.Alert, error) {
	alert, err := s.store.GetAlert(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, err
	}
	return alert, nil
}

// List - 최신순 목록 조회. 결과가 limit보다 많으면 다음 페이지 커서를 채운다
func (s *AlertService) List(ctx context.Context, limit int, cursor string) (*model.AlertListResponse, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}

	var before time.Time
	var beforeID string
	if cursor != "" {
		var err error
		before, beforeID, err = decodeCursor(cursor)
		if err != nil {
			return nil, err
		}
	}

	alerts, err := s.store.ListAlerts(ctx, limit+1, before, beforeID)
	if err != nil {
		return nil, err
	}

	resp := &model.AlertListResponse{Limit: limit}
	if len(alerts) > limit {
		alerts = alerts[:limit]
		last := alerts[len(alerts)-1]
		resp.NextCursor = encodeCursor(last.CreatedAt, last.ID)
	}
	resp.Data = alerts
	return resp, nil
}

func (s *AlertService) Stats(ctx context.Context) (*model.StatsResponse, error) {
	return s.store.Stats(ctx)
}

// Related - 임베딩 유사도 기반 연관 알림 조회
// 저장된 벡터가 없으면 요약을 즉석에서 임베딩한다
func (s *AlertService) Related(ctx context.Context, id string, limit int) ([]model.RelatedAlert, error) {
	if s.embedStore == nil {
		return []model.RelatedAlert{}, nil
	}

	alert, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	vec, err := s.embedStore.GetAlertEmbedding(ctx, id)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) || s.embedder == nil {
			return []model.RelatedAlert{}, nil
		}
		vec, _, err = s.embedder.EmbedText(ctx, alert.Summary)
		if err != nil {
			return nil, fmt.Errorf("failed to embed alert summary: %w", err)
		}
	}

	return s.embedStore.FindRelatedAlerts(ctx, id, vec, limit)
}

// encodeCursor - (created_at, id) 키셋 커서를 불투명 문자열로 인코딩
func encodeCursor(t time.Time, id string) string {
	raw := strconv.FormatInt(t.UnixNano(), 10) + ":" + id
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(cursor string) (time.Time, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: %v", ErrBadCursor, err)
	}
	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return time.Time{}, "", ErrBadCursor
	}
	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: %v", ErrBadCursor, err)
	}
	return time.Unix(0, nanos).UTC(), parts[1], nil
}
