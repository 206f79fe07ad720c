package preload

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes queue activity to Prometheus.
// All methods are nil-safe: calls on a nil *Metrics are no-ops.
type Metrics struct {
	loadsStarted *prometheus.CounterVec
	loadsTotal   *prometheus.CounterVec
	cacheHits    prometheus.Counter
	loading      prometheus.Gauge
	queued       prometheus.Gauge
}

// NewMetrics creates the preload collectors and registers them with reg.
// If reg is nil the collectors are created but not registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		loadsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "novafront",
			Subsystem: "preload",
			Name:      "loads_started_total",
			Help:      "Image loads issued by the preload queue",
		}, []string{"priority"}),
		loadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "novafront",
			Subsystem: "preload",
			Name:      "loads_total",
			Help:      "Image loads settled by the preload queue",
		}, []string{"priority", "result"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "novafront",
			Subsystem: "preload",
			Name:      "cache_hits_total",
			Help:      "Preload requests answered from the preloaded set",
		}),
		loading: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "novafront",
			Subsystem: "preload",
			Name:      "loading",
			Help:      "Image loads currently in flight",
		}),
		queued: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "novafront",
			Subsystem: "preload",
			Name:      "queued",
			Help:      "Tasks waiting for a free slot",
		}),
	}

	if reg != nil {
		m.loadsStarted = registerOrReuse(reg, m.loadsStarted).(*prometheus.CounterVec)
		m.loadsTotal = registerOrReuse(reg, m.loadsTotal).(*prometheus.CounterVec)
		m.cacheHits = registerOrReuse(reg, m.cacheHits).(prometheus.Counter)
		m.loading = registerOrReuse(reg, m.loading).(prometheus.Gauge)
		m.queued = registerOrReuse(reg, m.queued).(prometheus.Gauge)
	}
	return m
}

func registerOrReuse(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector
		}
		panic(err)
	}
	return c
}

func (m *Metrics) recordStart(p Priority) {
	if m == nil {
		return
	}
	m.loadsStarted.WithLabelValues(string(p)).Inc()
}

func (m *Metrics) recordFinish(p Priority, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.loadsTotal.WithLabelValues(string(p), result).Inc()
}

func (m *Metrics) recordCacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Metrics) observe(loading, queued int) {
	if m == nil {
		return
	}
	m.loading.Set(float64(loading))
	m.queued.Set(float64(queued))
}
