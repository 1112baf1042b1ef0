package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce            sync.Once
	httpDurationHistogram   *prometheus.HistogramVec
	idempotencyCounter      *prometheus.CounterVec
	lockCounter             *prometheus.CounterVec
	settlementCounter       *prometheus.CounterVec
	invariantViolationGauge prometheus.Gauge
	invariantCounter        prometheus.Counter
	realtimeClientsGauge    prometheus.Gauge
	workerRunCounter        *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Idempotency middleware outcomes",
		}, []string{"outcome"})

		lockCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "processing_lock_events_total",
			Help: "Processing lock outcomes by entity",
		}, []string{"entity", "outcome"})

		settlementCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_settlements_total",
			Help: "Payment settlement outcomes",
		}, []string{"outcome"})

		invariantViolationGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "redeem_ledger_violations",
			Help: "Redeem requests breaking the hold/paid invariant at the last audit",
		})

		invariantCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "redeem_ledger_violations_total",
			Help: "Redeem ledger violations observed by the auditor",
		})

		realtimeClientsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "realtime_clients",
			Help: "Connected realtime websocket clients",
		})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			idempotencyCounter,
			lockCounter,
			settlementCounter,
			invariantViolationGauge,
			invariantCounter,
			realtimeClientsGauge,
			workerRunCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

// IncrementLockEvent counts acquired, conflict, released and expired lock outcomes.
func IncrementLockEvent(entity, outcome string) {
	if lockCounter == nil {
		return
	}
	lockCounter.WithLabelValues(entity, outcome).Inc()
}

func AddLockEvents(entity, outcome string, n int) {
	if lockCounter == nil || n <= 0 {
		return
	}
	lockCounter.WithLabelValues(entity, outcome).Add(float64(n))
}

func IncrementSettlement(outcome string) {
	if settlementCounter == nil {
		return
	}
	settlementCounter.WithLabelValues(outcome).Inc()
}

func RecordInvariantViolations(n int) {
	if invariantViolationGauge == nil {
		return
	}
	invariantViolationGauge.Set(float64(n))
	if n > 0 {
		invariantCounter.Add(float64(n))
	}
}

func SetRealtimeClients(n int) {
	if realtimeClientsGauge == nil {
		return
	}
	realtimeClientsGauge.Set(float64(n))
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}
