package monitoring

import (
	"net/http"

	"github.com/mezonai/remit/logx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type OperationResult string

const (
	ResultOK       OperationResult = "ok"
	ResultRejected OperationResult = "rejected"
	ResultFailed   OperationResult = "failed"
)

type remitPromMetrics struct {
	ledgerOps        *prometheus.CounterVec
	pendingTransfers prometheus.Gauge
	eventHead        prometheus.Gauge
	viewApplied      prometheus.Counter
	viewDuplicates   prometheus.Counter
	viewBackfills    prometheus.Counter
	viewRetries      *prometheus.CounterVec
	viewHead         prometheus.Gauge
	wsClients        prometheus.Gauge
	panicCount       prometheus.Counter
}

func newRemitPromMetrics() *remitPromMetrics {
	return &remitPromMetrics{
		ledgerOps: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "remit_ledger_operations_total",
				Help: "Ledger operations by operation name and outcome (reason for rejections)",
			},
			[]string{"op", "result", "reason"},
		),
		pendingTransfers: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "remit_ledger_pending_transfers",
				Help: "Transfers currently held in custody",
			},
		),
		eventHead: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "remit_ledger_event_head",
				Help: "Sequence number of the last event appended to the ledger log",
			},
		),
		viewApplied: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "remit_view_applied_events_total",
				Help: "Events applied to the view projection",
			},
		),
		viewDuplicates: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "remit_view_duplicate_events_total",
				Help: "Events skipped because their sequence number was already applied",
			},
		),
		viewBackfills: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "remit_view_backfills_total",
				Help: "Historical range fetches triggered by bootstrap or a sequence gap",
			},
		),
		viewRetries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "remit_view_retries_total",
				Help: "Synchronizer phase restarts after a fetch or subscription error",
			},
			[]string{"phase"},
		),
		viewHead: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "remit_view_head",
				Help: "Sequence number of the last event applied to the projection",
			},
		),
		wsClients: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "remit_ws_clients",
				Help: "Connected live event stream clients",
			},
		),
		panicCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "remit_panic_count",
				Help: "Recovered panics in background goroutines",
			},
		),
	}
}

// Metrics register with the default registry exactly once per process.
var remitMetrics = newRemitPromMetrics()

func RegisterMetrics(mux *http.ServeMux) {
	logx.Info("MONITORING", "Registering prometheus metrics")
	mux.Handle("/metrics", promhttp.Handler())
}

func RecordLedgerOp(op string, result OperationResult, reason string) {
	remitMetrics.ledgerOps.With(prometheus.Labels{
		"op":     op,
		"result": string(result),
		"reason": reason,
	}).Inc()
}

func SetPendingTransfers(n uint64) {
	remitMetrics.pendingTransfers.Set(float64(n))
}

func SetEventHead(seq uint64) {
	remitMetrics.eventHead.Set(float64(seq))
}

func IncreaseViewApplied() {
	remitMetrics.viewApplied.Inc()
}

func IncreaseViewDuplicates() {
	remitMetrics.viewDuplicates.Inc()
}

func IncreaseViewBackfills() {
	remitMetrics.viewBackfills.Inc()
}

func IncreaseViewRetries(phase string) {
	remitMetrics.viewRetries.With(prometheus.Labels{"phase": phase}).Inc()
}

func SetViewHead(seq uint64) {
	remitMetrics.viewHead.Set(float64(seq))
}

func SetWSClients(n int) {
	remitMetrics.wsClients.Set(float64(n))
}

func IncreasePanicCount() {
	remitMetrics.panicCount.Inc()
}
