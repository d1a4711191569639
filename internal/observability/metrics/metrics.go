package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
)

// Metrics exposes counters for reconciliation runs and ledger writes.
type Metrics struct {
	BatchRuns     *prometheus.CounterVec
	Tasks         *prometheus.CounterVec
	TaskWarnings  prometheus.Counter
	BalanceDeltas prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		BatchRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crewpay",
			Name:      "reconcile_batches_total",
			Help:      "Reconciliation batch runs by final status.",
		}, []string{"status"}),
		Tasks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crewpay",
			Name:      "reconcile_tasks_total",
			Help:      "Per-task reconciliation outcomes.",
		}, []string{"result"}),
		TaskWarnings: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "crewpay",
			Name:      "reconcile_task_warnings_total",
			Help:      "Data-quality warnings raised while computing commissions.",
		}),
		BalanceDeltas: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "crewpay",
			Name:      "balance_delta_writes_total",
			Help:      "Folded per-user balance updates applied by batches.",
		}),
	}
}

func (m *Metrics) RecordBatch(status string) {
	if m == nil {
		return
	}
	m.BatchRuns.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordTask(result string) {
	if m == nil {
		return
	}
	m.Tasks.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordWarnings(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.TaskWarnings.Add(float64(n))
}

func (m *Metrics) RecordBalanceWrites(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.BalanceDeltas.Add(float64(n))
}

// Module wires the metrics recorder.
var Module = fx.Module("observability.metrics",
	fx.Provide(New),
)
