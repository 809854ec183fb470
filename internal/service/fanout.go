// 신규 Alert 실시간 전파 비즈니스 로직 정의
//
// 세 경로로 전파한다:
//   - SSE 구독자 브로드캐스트 (느린 구독자는 오래된 항목부터 drop)
//   - Expo push (severity/service 필터, 동시성 제한, 일시 오류 재시도)
//   - 사용자 정의 webhook
//
// 느리거나 죽은 수신자가 파이프라인을 역압하지 않는다

package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/logsense/backend/internal/client"
	"github.com/logsense/backend/internal/metrics"
	"github.com/logsense/backend/internal/model"
	log "github.com/sirupsen/logrus"
)

// ErrTooManySubscribers - SSE 동시 구독 한도 초과
var ErrTooManySubscribers = errors.New("subscriber limit reached")

// pushSender - push 클라이언트 인터페이스
type pushSender interface {
	Send(ctx context.Context, token string, alert model.Alert) error
}

// pushTargetStore - DB 인터페이스 (fan-out 전용)
type pushTargetStore interface {
	GetActivePushTargets(ctx context.Context) ([]model.PushTarget, error)
	DeactivatePushTarget(ctx context.Context, token string) error
	MarkAlertNotified(ctx context.Context, alertID string, count int) error
}

// webhookDeliverer - webhook 전송 인터페이스 (nil이면 비활성)
type webhookDeliverer interface {
	Deliver(alert model.Alert)
}

// Subscription - SSE 구독 핸들. C에서 알림을 읽는다
type Subscription struct {
	ID int64
	C  <-chan model.Alert
}

// FanoutHub 구조체 정의
type FanoutHub struct {
	mu     sync.Mutex
	subs   map[int64]chan model.Alert
	nextID int64

	queueSize  int
	maxClients int

	sender   pushSender
	targets  pushTargetStore
	webhooks webhookDeliverer

	sem         chan struct{}
	pushRetries int
	backoff     time.Duration

	counters *metrics.Counters
}

// FanoutHub 객체 생성
func NewFanoutHub(sender pushSender, targets pushTargetStore, webhooks webhookDeliverer,
	queueSize, maxClients, concurrency, pushRetries int, counters *metrics.Counters) *FanoutHub {
	if concurrency < 1 {
		concurrency = 1
	}
	return &FanoutHub{
		subs:        map[int64]chan model.Alert{},
		queueSize:   queueSize,
		maxClients:  maxClients,
		sender:      sender,
		targets:     targets,
		webhooks:    webhooks,
		sem:         make(chan struct{}, concurrency),
		pushRetries: pushRetries,
		backoff:     time.Second,
		counters:    counters,
	}
}

// Subscribe - SSE 구독 등록
func (h *FanoutHub) Subscribe() (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.subs) >= h.maxClients {
		return nil, ErrTooManySubscribers
	}
	h.nextID++
	ch := make(chan model.Alert, h.queueSize)
	h.subs[h.nextID] = ch
	return &Subscription{ID: h.nextID, C: ch}, nil
}

// Unsubscribe - 구독 해제. 채널은 여기서만 닫힌다 (브로드캐스트와 같은 락)
func (h *FanoutHub) Unsubscribe(id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Subscribers - 현재 구독자 수 (health endpoint용)
func (h *FanoutHub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Notify - 저장 성공한 알림을 모든 경로로 전파. 블로킹하지 않음
func (h *FanoutHub) Notify(alert model.Alert) {
	h.broadcast(alert)
	go h.dispatchPush(context.Background(), alert)
	if h.webhooks != nil {
		go h.webhooks.Deliver(alert)
	}
}

// broadcast - 구독자 큐가 가득 차면 가장 오래된 항목을 버리고 최신을 넣는다
func (h *FanoutHub) broadcast(alert model.Alert) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subs {
		select {
		case ch <- alert:
		default:
			select {
			case <-ch:
				log.Debugf("Subscriber %d queue full, dropped oldest alert", id)
			default:
			}
			select {
			case ch <- alert:
			default:
			}
		}
	}
}

// dispatchPush - 필터를 통과한 활성 토큰 전체에 동시 전송
func (h *FanoutHub) dispatchPush(ctx context.Context, alert model.Alert) {
	targets, err := h.targets.GetActivePushTargets(ctx)
	if err != nil {
		log.Errorf("Failed to load push targets for alert %s: %v", alert.ID, err)
		return
	}

	var wg sync.WaitGroup
	var sent atomic.Int64
	for _, target := range targets {
		if !matchesTarget(target, alert) {
			continue
		}
		wg.Add(1)
		h.sem <- struct{}{}
		go func(target model.PushTarget) {
			defer wg.Done()
			defer func() { <-h.sem }()
			if h.sendWithRetry(ctx, target, alert) {
				sent.Add(1)
			}
		}(target)
	}
	wg.Wait()

	if n := int(sent.Load()); n > 0 {
		if err := h.targets.MarkAlertNotified(ctx, alert.ID, n); err != nil {
			log.Errorf("Failed to mark alert %s notified: %v", alert.ID, err)
		}
	}
}

// matchesTarget - severity 하한과 service 필터 검사
func matchesTarget(target model.PushTarget, alert model.Alert) bool {
	if model.SeverityRank(alert.Severity) < model.SeverityRank(target.MinSeverity) {
		return false
	}
	if target.Service != "" && target.Service != alert.Service {
		return false
	}
	return true
}

// sendWithRetry - 일시 오류는 재시도, 영구 오류는 토큰 비활성화
func (h *FanoutHub) sendWithRetry(ctx context.Context, target model.PushTarget, alert model.Alert) bool {
	attempts := h.pushRetries + 1
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = h.sender.Send(ctx, target.Token, alert)
		if err == nil {
			h.counters.PushSent.Inc()
			return true
		}
		if client.IsUnregistered(err) {
			log.Infof("Deactivating unregistered push token %s", truncateToken(target.Token))
			if derr := h.targets.DeactivatePushTarget(ctx, target.Token); derr != nil {
				log.Errorf("Failed to deactivate push token: %v", derr)
			}
			h.counters.PushFailed.Inc()
			return false
		}
		if attempt < attempts {
			time.Sleep(h.backoff * time.Duration(attempt))
		}
	}
	log.Warnf("Push to %s failed after %d attempts: %v", truncateToken(target.Token), attempts, err)
	h.counters.PushFailed.Inc()
	return false
}

func truncateToken(token string) string {
	if len(token) <= 12 {
		return token
	}
	return token[:12] + "..."
}
