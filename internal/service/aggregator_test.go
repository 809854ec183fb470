package service

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/logsense/backend/internal/metrics"
	"github.com/logsense/backend/internal/model"
)

func record(fp, id string) model.LogRecord {
	return model.LogRecord{
		ID:          id,
		Service:     "api",
		Severity:    model.SeverityCritical,
		RawLog:      "ERROR something broke",
		Fingerprint: fp,
		Timestamp:   time.Now().UTC(),
		IngestedAt:  time.Now().UTC(),
	}
}

func recvBatch(t *testing.T, ch <-chan model.FlushedBatch, timeout time.Duration) model.FlushedBatch {
	t.Helper()
	select {
	case fb := <-ch:
		return fb
	case <-time.After(timeout):
		t.Fatal("timed out waiting for flushed batch")
		return model.FlushedBatch{}
	}
}

func TestAggregatorSizeFlush(t *testing.T) {
	agg := NewAggregator(time.Hour, 3, 8, metrics.NewTestCounters())
	defer agg.Stop()

	for i := 0; i < 3; i++ {
		agg.Append(record("fp1", fmt.Sprintf("id%d", i)))
	}

	fb := recvBatch(t, agg.Batches(), time.Second)
	if fb.Fingerprint != "fp1" {
		t.Errorf("fingerprint = %q", fb.Fingerprint)
	}
	if len(fb.Records) != 3 {
		t.Errorf("records = %d, want 3", len(fb.Records))
	}
	if fb.Reason != "size" {
		t.Errorf("reason = %q, want size", fb.Reason)
	}
	if agg.OpenBatches() != 0 {
		t.Errorf("open batches = %d, want 0", agg.OpenBatches())
	}
}

func TestAggregatorWindowFlush(t *testing.T) {
	agg := NewAggregator(50*time.Millisecond, 100, 8, metrics.NewTestCounters())
	defer agg.Stop()

	agg.Append(record("fp1", "id1"))
	agg.Append(record("fp1", "id2"))

	fb := recvBatch(t, agg.Batches(), time.Second)
	if len(fb.Records) != 2 {
		t.Errorf("records = %d, want 2", len(fb.Records))
	}
	if fb.Reason != "window" {
		t.Errorf("reason = %q, want window", fb.Reason)
	}
}

func TestAggregatorSeparateFingerprints(t *testing.T) {
	agg := NewAggregator(50*time.Millisecond, 100, 8, metrics.NewTestCounters())
	defer agg.Stop()

	agg.Append(record("fp1", "id1"))
	agg.Append(record("fp2", "id2"))

	first := recvBatch(t, agg.Batches(), time.Second)
	second := recvBatch(t, agg.Batches(), time.Second)
	if first.Fingerprint == second.Fingerprint {
		t.Errorf("expected two distinct batches, got %q twice", first.Fingerprint)
	}
	if len(first.Records) != 1 || len(second.Records) != 1 {
		t.Errorf("record counts = %d, %d, want 1, 1", len(first.Records), len(second.Records))
	}
}

// 동시 Append N건이 정확히 한 배치에 N 레코드로 수렴해야 한다
func TestAggregatorConcurrentAppends(t *testing.T) {
	const n = 50
	agg := NewAggregator(100*time.Millisecond, n+1, 8, metrics.NewTestCounters())
	defer agg.Stop()

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			agg.Append(record("fp1", fmt.Sprintf("id%d", i)))
		}(i)
	}
	wg.Wait()

	fb := recvBatch(t, agg.Batches(), time.Second)
	if len(fb.Records) != n {
		t.Errorf("records = %d, want %d", len(fb.Records), n)
	}

	seen := map[string]bool{}
	for _, rec := range fb.Records {
		if seen[rec.ID] {
			t.Errorf("record %s appears twice", rec.ID)
		}
		seen[rec.ID] = true
	}
}

func TestAggregatorAppendAfterFlushOpensNewBatch(t *testing.T) {
	agg := NewAggregator(time.Hour, 2, 8, metrics.NewTestCounters())
	defer agg.Stop()

	agg.Append(record("fp1", "id1"))
	agg.Append(record("fp1", "id2"))
	recvBatch(t, agg.Batches(), time.Second)

	agg.Append(record("fp1", "id3"))
	if agg.OpenBatches() != 1 {
		t.Errorf("open batches = %d, want 1", agg.OpenBatches())
	}
	agg.Append(record("fp1", "id4"))

	fb := recvBatch(t, agg.Batches(), time.Second)
	if len(fb.Records) != 2 {
		t.Errorf("records = %d, want 2", len(fb.Records))
	}
	if fb.Records[0].ID != "id3" {
		t.Errorf("first record = %s, want id3", fb.Records[0].ID)
	}
}

func TestAggregatorStopFlushesOpenBatches(t *testing.T) {
	agg := NewAggregator(time.Hour, 100, 8, metrics.NewTestCounters())

	agg.Append(record("fp1", "id1"))
	agg.Append(record("fp2", "id2"))
	agg.Stop()

	count := 0
	for range agg.Batches() {
		count++
	}
	if count != 2 {
		t.Errorf("flushed %d batches on stop, want 2", count)
	}
}
