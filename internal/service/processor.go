// 배치 분석 워커 풀 정의
//
// Aggregator가 닫은 배치를 소비: AI 분석 → 알림 저장 → fan-out
// 입력 채널이 닫히면 남은 배치를 모두 처리하고 종료한다

package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/logsense/backend/internal/model"
	log "github.com/sirupsen/logrus"
)

// Processor 구조체 정의
type Processor struct {
	analysis *AnalysisService
	alerts   *AlertService
	in       <-chan model.FlushedBatch
	workers  int
}

// Processor 객체 생성
func NewProcessor(analysis *AnalysisService, alerts *AlertService,
	in <-chan model.FlushedBatch, workers int) *Processor {
	if workers < 1 {
		workers = 1
	}
	return &Processor{
		analysis: analysis,
		alerts:   alerts,
		in:       in,
		workers:  workers,
	}
}

// Run - 워커 기동. 입력 채널이 닫힐 때까지 블로킹
// ctx는 AI 호출에만 전파 — 종료 중에도 저장/전파는 완료시킨다
func (p *Processor) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range p.in {
				p.process(ctx, batch)
			}
		}()
	}
	wg.Wait()
}

func (p *Processor) process(ctx context.Context, batch model.FlushedBatch) {
	cand := p.analysis.Analyze(ctx, batch)

	// 전파는 AlertService가 저장과 같은 임계 구역에서 수행한다
	alert, err := p.alerts.Create(context.Background(), cand)
	switch {
	case err == nil:
		log.Infof("Alert %s created for batch %s (%d records, %s)", alert.ID, batch.Fingerprint, len(batch.Records), batch.Reason)
	case errors.Is(err, ErrDeduped):
		log.Debugf("Batch %s suppressed by cool-down", batch.Fingerprint)
	default:
		// 수동 복구를 위해 후보 전체를 남긴다
		raw, _ := json.Marshal(cand)
		log.WithField("candidate", string(raw)).Errorf("Failed to persist alert for batch %s: %v", batch.Fingerprint, err)
	}
}
