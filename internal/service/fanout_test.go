package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/logsense/backend/internal/client"
	"github.com/logsense/backend/internal/metrics"
	"github.com/logsense/backend/internal/model"
)

type fakePushSender struct {
	mu       sync.Mutex
	sent     []string // 토큰 순서 기록
	failWith map[string]error
	fails    map[string]int // 토큰별 남은 실패 횟수
}

func (f *fakePushSender) Send(ctx context.Context, token string, alert model.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failWith[token]; ok {
		if f.fails == nil || f.fails[token] > 0 {
			if f.fails != nil {
				f.fails[token]--
			}
			return err
		}
	}
	f.sent = append(f.sent, token)
	return nil
}

type fakeTargetStore struct {
	mu          sync.Mutex
	targets     []model.PushTarget
	deactivated []string
	notified    map[string]int
}

func (f *fakeTargetStore) GetActivePushTargets(ctx context.Context) ([]model.PushTarget, error) {
	return f.targets, nil
}

func (f *fakeTargetStore) DeactivatePushTarget(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deactivated = append(f.deactivated, token)
	return nil
}

func (f *fakeTargetStore) MarkAlertNotified(ctx context.Context, alertID string, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notified == nil {
		f.notified = map[string]int{}
	}
	f.notified[alertID] += count
	return nil
}

func severityAlert(id, severity string) model.Alert {
	return model.Alert{
		ID: id,
		AlertCandidate: model.AlertCandidate{
			Analysis: model.Analysis{Category: "crash", Severity: severity, Summary: "boom"},
			Service:  "payment-service",
		},
		CreatedAt: time.Now().UTC(),
	}
}

func newTestHub(sender pushSender, targets pushTargetStore) *FanoutHub {
	h := NewFanoutHub(sender, targets, nil, 4, 10, 4, 1, metrics.NewTestCounters())
	h.backoff = time.Millisecond
	return h
}

func TestSubscribeBroadcastOrder(t *testing.T) {
	h := newTestHub(&fakePushSender{}, &fakeTargetStore{})

	sub, err := h.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer h.Unsubscribe(sub.ID)

	for i := 0; i < 3; i++ {
		h.broadcast(severityAlert(fmt.Sprintf("a%d", i), model.SeverityWarn))
	}
	for i := 0; i < 3; i++ {
		got := <-sub.C
		if want := fmt.Sprintf("a%d", i); got.ID != want {
			t.Errorf("alert %d = %s, want %s", i, got.ID, want)
		}
	}
}

func TestBroadcastDropsOldestWhenFull(t *testing.T) {
	h := newTestHub(&fakePushSender{}, &fakeTargetStore{})
	h.queueSize = 2

	sub, err := h.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer h.Unsubscribe(sub.ID)

	// 큐 용량 2에 4건 — 블로킹 없이 끝나야 하고 최신 2건이 남아야 한다
	for i := 0; i < 4; i++ {
		h.broadcast(severityAlert(fmt.Sprintf("a%d", i), model.SeverityWarn))
	}

	first := <-sub.C
	second := <-sub.C
	if first.ID != "a2" || second.ID != "a3" {
		t.Errorf("got %s, %s, want a2, a3", first.ID, second.ID)
	}
}

func TestSubscribeLimit(t *testing.T) {
	h := newTestHub(&fakePushSender{}, &fakeTargetStore{})
	h.maxClients = 2

	for i := 0; i < 2; i++ {
		if _, err := h.Subscribe(); err != nil {
			t.Fatalf("Subscribe() error = %v", err)
		}
	}
	if _, err := h.Subscribe(); !errors.Is(err, ErrTooManySubscribers) {
		t.Errorf("Subscribe() error = %v, want ErrTooManySubscribers", err)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	h := newTestHub(&fakePushSender{}, &fakeTargetStore{})

	sub, _ := h.Subscribe()
	h.Unsubscribe(sub.ID)
	if _, ok := <-sub.C; ok {
		t.Error("channel should be closed after Unsubscribe")
	}
	if h.Subscribers() != 0 {
		t.Errorf("subscribers = %d, want 0", h.Subscribers())
	}
}

func TestDispatchPushSeverityAndServiceFilter(t *testing.T) {
	sender := &fakePushSender{}
	store := &fakeTargetStore{targets: []model.PushTarget{
		{Token: "all", MinSeverity: model.SeverityWarn, Active: true},
		{Token: "fatal-only", MinSeverity: model.SeverityFatal, Active: true},
		{Token: "other-svc", MinSeverity: model.SeverityWarn, Service: "auth-service", Active: true},
	}}
	h := newTestHub(sender, store)

	h.dispatchPush(context.Background(), severityAlert("a1", model.SeverityCritical))

	if len(sender.sent) != 1 || sender.sent[0] != "all" {
		t.Errorf("sent = %v, want [all]", sender.sent)
	}
	if store.notified["a1"] != 1 {
		t.Errorf("notified count = %d, want 1", store.notified["a1"])
	}
}

func TestDispatchPushRetriesTransient(t *testing.T) {
	sender := &fakePushSender{
		failWith: map[string]error{"tok1": errors.New("503")},
		fails:    map[string]int{"tok1": 1},
	}
	store := &fakeTargetStore{targets: []model.PushTarget{
		{Token: "tok1", MinSeverity: model.SeverityWarn, Active: true},
	}}
	h := newTestHub(sender, store)

	h.dispatchPush(context.Background(), severityAlert("a1", model.SeverityFatal))

	if len(sender.sent) != 1 {
		t.Errorf("sent = %v, want one delivery after retry", sender.sent)
	}
}

func TestDispatchPushDeactivatesUnregistered(t *testing.T) {
	sender := &fakePushSender{
		failWith: map[string]error{"gone": client.ErrUnregisteredTarget},
	}
	store := &fakeTargetStore{targets: []model.PushTarget{
		{Token: "gone", MinSeverity: model.SeverityWarn, Active: true},
		{Token: "ok", MinSeverity: model.SeverityWarn, Active: true},
	}}
	h := newTestHub(sender, store)

	h.dispatchPush(context.Background(), severityAlert("a1", model.SeverityFatal))

	if len(store.deactivated) != 1 || store.deactivated[0] != "gone" {
		t.Errorf("deactivated = %v, want [gone]", store.deactivated)
	}
	if len(sender.sent) != 1 || sender.sent[0] != "ok" {
		t.Errorf("sent = %v, want [ok]", sender.sent)
	}
	if store.notified["a1"] != 1 {
		t.Errorf("notified count = %d, want 1", store.notified["a1"])
	}
}
