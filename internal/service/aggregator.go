// 동일 fingerprint 로그를 배치로 묶는 Aggregator 정의
//
// 배치는 fingerprint별로 하나만 열리고, 첫 레코드 기준 고정 윈도우가
// 만료되거나 최대 크기에 도달하면 닫혀서 출력 채널로 전달된다.
// 닫힌 뒤 도착한 같은 fingerprint 로그는 새 배치를 연다

package service

import (
	"sync"
	"time"

	"github.com/logsense/backend/internal/metrics"
	"github.com/logsense/backend/internal/model"
	log "github.com/sirupsen/logrus"
)

type openBatch struct {
	records  []model.LogRecord
	openedAt time.Time
	timer    *time.Timer
}

// Aggregator 구조체 정의
type Aggregator struct {
	window  time.Duration
	maxSize int

	mu     sync.Mutex
	open   map[string]*openBatch
	closed bool

	out      chan model.FlushedBatch
	inflight sync.WaitGroup

	counters *metrics.Counters
}

// Aggregator 객체 생성
func NewAggregator(window time.Duration, maxSize, queueSize int, counters *metrics.Counters) *Aggregator {
	return &Aggregator{
		window:   window,
		maxSize:  maxSize,
		open:     map[string]*openBatch{},
		out:      make(chan model.FlushedBatch, queueSize),
		counters: counters,
	}
}

// Batches - 닫힌 배치가 전달되는 채널. Stop() 이후 close된다
func (a *Aggregator) Batches() <-chan model.FlushedBatch {
	return a.out
}

// Append - 레코드를 해당 fingerprint의 열린 배치에 추가
// 크기 도달 시 임계 구역 밖에서 배치를 내보낸다 (출력 채널이 가득 차도 락은 잡지 않음)
func (a *Aggregator) Append(record model.LogRecord) {
	fp := record.Fingerprint

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		log.Warnf("Dropping record %s: aggregator stopped", record.ID)
		return
	}

	b, ok := a.open[fp]
	if !ok {
		b = &openBatch{openedAt: time.Now().UTC()}
		a.open[fp] = b
		// 윈도우는 첫 레코드 기준 고정 — 지속 유입에도 최대 대기 시간 보장
		b.timer = time.AfterFunc(a.window, func() {
			a.flushExpired(fp, b)
		})
	}
	b.records = append(b.records, record)

	var flushed *model.FlushedBatch
	if len(b.records) >= a.maxSize {
		flushed = a.removeLocked(fp, b, "size")
		a.inflight.Add(1)
	}
	a.mu.Unlock()

	if flushed != nil {
		a.out <- *flushed
		a.inflight.Done()
	}
}

// flushExpired - 윈도우 타이머 콜백
// 크기 플러시와의 경합 대비: 여전히 같은 배치가 열려 있을 때만 닫는다
func (a *Aggregator) flushExpired(fp string, b *openBatch) {
	a.mu.Lock()
	cur, ok := a.open[fp]
	if !ok || cur != b {
		a.mu.Unlock()
		return
	}
	flushed := a.removeLocked(fp, b, "window")
	a.inflight.Add(1)
	a.mu.Unlock()

	a.out <- *flushed
	a.inflight.Done()
}

// removeLocked - 배치를 맵에서 제거하고 FlushedBatch로 변환. 호출자가 mu를 잡고 있어야 함
func (a *Aggregator) removeLocked(fp string, b *openBatch, reason string) *model.FlushedBatch {
	delete(a.open, fp)
	if b.timer != nil {
		b.timer.Stop()
	}
	a.counters.BatchesFlushed.Inc(reason)
	return &model.FlushedBatch{
		Fingerprint: fp,
		Records:     b.records,
		OpenedAt:    b.openedAt,
		Reason:      reason,
	}
}

// OpenBatches - 현재 열린 배치 수 (health endpoint용)
func (a *Aggregator) OpenBatches() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.open)
}

// PendingBatches - 아직 워커가 가져가지 않은 닫힌 배치 수
func (a *Aggregator) PendingBatches() int {
	return len(a.out)
}

// Stop - 열린 배치를 전부 내보내고 출력 채널을 닫는다
// 이후 Append는 레코드를 버린다. 두 번 호출하면 안 됨
func (a *Aggregator) Stop() {
	a.mu.Lock()
	a.closed = true
	var remaining []model.FlushedBatch
	for fp, b := range a.open {
		remaining = append(remaining, *a.removeLocked(fp, b, "shutdown"))
	}
	a.mu.Unlock()

	for _, fb := range remaining {
		a.out <- fb
	}
	a.inflight.Wait()
	close(a.out)
}
