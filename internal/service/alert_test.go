package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/logsense/backend/internal/metrics"
	"github.com/logsense/backend/internal/model"
)

type fakeAlertStore struct {
	inserted   []model.Alert
	insertErrs int                      // 처음 N번 InsertAlert 실패
	delayFor   map[string]time.Duration // fingerprint별 저장 지연
	calls      int
	alerts     map[string]model.Alert
}

func (f *fakeAlertStore) InsertAlert(ctx context.Context, alert *model.Alert) error {
	f.calls++
	if f.calls <= f.insertErrs {
		return errors.New("connection reset")
	}
	if d, ok := f.delayFor[alert.Fingerprint]; ok {
		time.Sleep(d)
	}
	f.inserted = append(f.inserted, *alert)
	return nil
}

func (f *fakeAlertStore) GetAlert(ctx context.Context, id string) (*model.Alert, error) {
	if a, ok := f.alerts[id]; ok {
		return &a, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeAlertStore) ListAlerts(ctx context.Context, limit int, before time.Time, beforeID string) ([]model.Alert, error) {
	out := []model.Alert{}
	for _, a := range f.inserted {
		if !before.IsZero() && !a.CreatedAt.Before(before) {
			continue
		}
		out = append(out, a)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeAlertStore) Stats(ctx context.Context) (*model.StatsResponse, error) {
	return &model.StatsResponse{TotalAlerts: len(f.inserted)}, nil
}

func candidate(fp, severity string) model.AlertCandidate {
	return model.AlertCandidate{
		Analysis: model.Analysis{
			Category:   "database",
			Severity:   severity,
			Confidence: 0.9,
			Summary:    "connection pool exhausted",
		},
		Fingerprint:     fp,
		Service:         "payment-service",
		OccurrenceCount: 3,
		LogIDs:          []string{"id1", "id2", "id3"},
	}
}

func newTestAlertService(store *fakeAlertStore, cooldown time.Duration) *AlertService {
	s := NewAlertService(store, nil, nil, nil, cooldown, 50, 200, metrics.NewTestCounters())
	s.retryBackoff = time.Millisecond
	return s
}

func TestCreateAlert(t *testing.T) {
	store := &fakeAlertStore{}
	s := newTestAlertService(store, time.Minute)

	alert, err := s.Create(context.Background(), candidate("fp1", model.SeverityCritical))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if alert.ID == "" {
		t.Error("alert id should be assigned")
	}
	if alert.CreatedAt.IsZero() {
		t.Error("created_at should be set")
	}
	if len(store.inserted) != 1 {
		t.Fatalf("inserted %d alerts, want 1", len(store.inserted))
	}
}

func TestCreateCooldownSuppressesSameSeverity(t *testing.T) {
	store := &fakeAlertStore{}
	s := newTestAlertService(store, time.Minute)

	if _, err := s.Create(context.Background(), candidate("fp1", model.SeverityCritical)); err != nil {
		t.Fatalf("first Create() error = %v", err)
	}
	_, err := s.Create(context.Background(), candidate("fp1", model.SeverityCritical))
	if !errors.Is(err, ErrDeduped) {
		t.Errorf("second Create() error = %v, want ErrDeduped", err)
	}
	_, err = s.Create(context.Background(), candidate("fp1", model.SeverityWarn))
	if !errors.Is(err, ErrDeduped) {
		t.Errorf("lower severity Create() error = %v, want ErrDeduped", err)
	}
	if len(store.inserted) != 1 {
		t.Errorf("inserted %d alerts, want 1", len(store.inserted))
	}
}

func TestCreateCooldownAllowsEscalation(t *testing.T) {
	store := &fakeAlertStore{}
	s := newTestAlertService(store, time.Minute)

	if _, err := s.Create(context.Background(), candidate("fp1", model.SeverityCritical)); err != nil {
		t.Fatalf("first Create() error = %v", err)
	}
	if _, err := s.Create(context.Background(), candidate("fp1", model.SeverityFatal)); err != nil {
		t.Errorf("escalated Create() error = %v, want nil", err)
	}
	if len(store.inserted) != 2 {
		t.Errorf("inserted %d alerts, want 2", len(store.inserted))
	}
}

func TestCreateCooldownExpires(t *testing.T) {
	store := &fakeAlertStore{}
	s := newTestAlertService(store, 10*time.Millisecond)

	if _, err := s.Create(context.Background(), candidate("fp1", model.SeverityCritical)); err != nil {
		t.Fatalf("first Create() error = %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, err := s.Create(context.Background(), candidate("fp1", model.SeverityCritical)); err != nil {
		t.Errorf("Create() after cool-down error = %v, want nil", err)
	}
}

func TestCreateDistinctFingerprintsNotSuppressed(t *testing.T) {
	store := &fakeAlertStore{}
	s := newTestAlertService(store, time.Minute)

	if _, err := s.Create(context.Background(), candidate("fp1", model.SeverityCritical)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := s.Create(context.Background(), candidate("fp2", model.SeverityCritical)); err != nil {
		t.Errorf("Create() for distinct fingerprint error = %v, want nil", err)
	}
}

func TestCreateRetriesInsertThenSucceeds(t *testing.T) {
	store := &fakeAlertStore{insertErrs: 2}
	s := newTestAlertService(store, time.Minute)

	if _, err := s.Create(context.Background(), candidate("fp1", model.SeverityCritical)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if store.calls != 3 {
		t.Errorf("insert calls = %d, want 3", store.calls)
	}
}

func TestCreatePersistenceFailureReleasesCooldown(t *testing.T) {
	store := &fakeAlertStore{insertErrs: 100}
	s := newTestAlertService(store, time.Minute)

	_, err := s.Create(context.Background(), candidate("fp1", model.SeverityCritical))
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("Create() error = %v, want ErrPersistence", err)
	}

	// 저장 실패는 cool-down을 점유하면 안 됨 — 다음 시도는 통과해야 한다
	store.insertErrs = 0
	store.calls = 0
	if _, err := s.Create(context.Background(), candidate("fp1", model.SeverityCritical)); err != nil {
		t.Errorf("Create() after persistence failure error = %v, want nil", err)
	}
}

// 느린 저장이 끼어들어도 구독자는 created_at 순서 그대로 수신해야 한다
func TestCreateBroadcastsInCreationOrder(t *testing.T) {
	store := &fakeAlertStore{delayFor: map[string]time.Duration{
		"fp-slow": 80 * time.Millisecond,
	}}
	hub := newTestHub(&fakePushSender{}, &fakeTargetStore{})
	s := NewAlertService(store, nil, nil, hub, time.Minute, 50, 200, metrics.NewTestCounters())
	s.retryBackoff = time.Millisecond

	sub, err := hub.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer hub.Unsubscribe(sub.ID)

	var wg sync.WaitGroup
	slowStarted := make(chan struct{})
	wg.Add(2)
	go func() {
		defer wg.Done()
		close(slowStarted)
		if _, err := s.Create(context.Background(), candidate("fp-slow", model.SeverityCritical)); err != nil {
			t.Errorf("slow Create() error = %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		<-slowStarted
		// 느린 저장이 먼저 임계 구역을 잡도록 잠시 양보
		time.Sleep(20 * time.Millisecond)
		if _, err := s.Create(context.Background(), candidate("fp-fast", model.SeverityCritical)); err != nil {
			t.Errorf("fast Create() error = %v", err)
		}
	}()
	wg.Wait()

	var got []model.Alert
	for i := 0; i < 2; i++ {
		select {
		case alert := <-sub.C:
			got = append(got, alert)
		case <-time.After(time.Second):
			t.Fatalf("received %d alerts, want 2", len(got))
		}
	}

	if got[0].Fingerprint != "fp-slow" || got[1].Fingerprint != "fp-fast" {
		t.Fatalf("broadcast order = [%s %s], want [fp-slow fp-fast]", got[0].Fingerprint, got[1].Fingerprint)
	}
	if got[1].CreatedAt.Before(got[0].CreatedAt) {
		t.Errorf("created_at out of order: %v before %v", got[1].CreatedAt, got[0].CreatedAt)
	}
}

func TestGetNotFound(t *testing.T) {
	s := newTestAlertService(&fakeAlertStore{}, time.Minute)
	_, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, ErrAlertNotFound) {
		t.Errorf("Get() error = %v, want ErrAlertNotFound", err)
	}
}

func TestListClampsLimitAndPaginates(t *testing.T) {
	store := &fakeAlertStore{}
	s := newTestAlertService(store, 0)

	base := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		store.inserted = append(store.inserted, model.Alert{
			ID:        string(rune('a' + i)),
			CreatedAt: base.Add(-time.Duration(i) * time.Minute),
		})
	}

	resp, err := s.List(context.Background(), 3, "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(resp.Data) != 3 {
		t.Errorf("page size = %d, want 3", len(resp.Data))
	}
	if resp.NextCursor == "" {
		t.Fatal("next_cursor should be set when more rows exist")
	}

	before, beforeID, err := decodeCursor(resp.NextCursor)
	if err != nil {
		t.Fatalf("decodeCursor() error = %v", err)
	}
	last := resp.Data[len(resp.Data)-1]
	if !before.Equal(last.CreatedAt) || beforeID != last.ID {
		t.Errorf("cursor = (%v, %s), want (%v, %s)", before, beforeID, last.CreatedAt, last.ID)
	}

	if _, err := s.List(context.Background(), 10, "not-base64!!"); !errors.Is(err, ErrBadCursor) {
		t.Errorf("List() with bad cursor error = %v, want ErrBadCursor", err)
	}

	resp, err = s.List(context.Background(), 10_000, "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if resp.Limit != 200 {
		t.Errorf("limit = %d, want clamp to 200", resp.Limit)
	}
}
