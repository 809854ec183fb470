package metrics

import "github.com/prometheus/client_golang/prometheus"

type Counter interface {
	Inc(labels ...string)
}

// Counters - 파이프라인 단계별 카운터 묶음
type Counters struct {
	RecordsIngested Counter // labels: service, severity
	RecordsSkipped  Counter
	RecordsRejected Counter

	BatchesFlushed Counter // labels: reason
	AIFallbacks    Counter

	AlertsCreated Counter // labels: severity, category
	AlertsDeduped Counter

	PushSent   Counter
	PushFailed Counter
}

type PrometheusCounter struct {
	counter *prometheus.CounterVec
}

func NewPrometheusCounter(reg prometheus.Registerer, name, help string, labels []string) *PrometheusCounter {
	c := &PrometheusCounter{
		counter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: name,
			Help: help,
		}, labels),
	}
	reg.MustRegister(c.counter)
	return c
}

func (p *PrometheusCounter) Inc(labels ...string) {
	p.counter.WithLabelValues(labels...).Inc()
}

func New() *Counters {
	return newCounters(prometheus.DefaultRegisterer)
}

// NewTestCounters - 전역 레지스트리를 오염시키지 않는 테스트용 카운터
func NewTestCounters() *Counters {
	return newCounters(prometheus.NewRegistry())
}

func newCounters(reg prometheus.Registerer) *Counters {
	return &Counters{
		RecordsIngested: NewPrometheusCounter(reg,
			"logsense_records_ingested_total",
			"수집되어 배치 큐에 등록된 로그 수",
			[]string{"service", "severity"},
		),
		RecordsSkipped: NewPrometheusCounter(reg,
			"logsense_records_skipped_total",
			"비대상(INFO/DEBUG 등)으로 drop된 로그 수",
			nil,
		),
		RecordsRejected: NewPrometheusCounter(reg,
			"logsense_records_rejected_total",
			"malformed로 거부된 로그 수",
			nil,
		),
		BatchesFlushed: NewPrometheusCounter(reg,
			"logsense_batches_flushed_total",
			"분석으로 넘어간 배치 수",
			[]string{"reason"},
		),
		AIFallbacks: NewPrometheusCounter(reg,
			"logsense_ai_fallbacks_total",
			"AI 실패로 degraded 분석이 생성된 횟수",
			nil,
		),
		AlertsCreated: NewPrometheusCounter(reg,
			"logsense_alerts_created_total",
			"저장된 알림 수",
			[]string{"severity", "category"},
		),
		AlertsDeduped: NewPrometheusCounter(reg,
			"logsense_alerts_deduped_total",
			"cool-down으로 버려진 알림 후보 수",
			nil,
		),
		PushSent: NewPrometheusCounter(reg,
			"logsense_push_sent_total",
			"전송 성공한 push 알림 수",
			nil,
		),
		PushFailed: NewPrometheusCounter(reg,
			"logsense_push_failed_total",
			"최종 실패한 push 알림 수",
			nil,
		),
	}
}
