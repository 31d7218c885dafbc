package monitor

import "github.com/prometheus/client_golang/prometheus"

const (
	pollResultOk        = "ok"
	pollResultError     = "error"
	pollResultBootstrap = "bootstrap"
)

// Metrics 轮询引擎指标
type Metrics struct {
	Ticks            prometheus.Counter
	TickFailures     prometheus.Counter
	TickDuration     prometheus.Histogram
	Polls            *prometheus.CounterVec // labels: result
	Events           *prometheus.CounterVec // labels: category
	DeliveryFailures *prometheus.CounterVec // labels: category
	InFlight         prometheus.Gauge
}

// NewMetrics reg 为 nil 时不注册
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "watcher_ticks_total",
			Help: "Total polling ticks started",
		}),
		TickFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "watcher_tick_failures_total",
			Help: "Ticks that failed before any account was polled",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "watcher_tick_duration_seconds",
			Help:    "Wall time of one polling tick",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		Polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "watcher_account_polls_total",
			Help: "Account polls by result",
		}, []string{"result"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "watcher_events_total",
			Help: "Events dispatched by category",
		}, []string{"category"}),
		DeliveryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "watcher_delivery_failures_total",
			Help: "Events whose delivery reported an error",
		}, []string{"category"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "watcher_account_polls_in_flight",
			Help: "Account polls currently running",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Ticks, m.TickFailures, m.TickDuration, m.Polls, m.Events, m.DeliveryFailures, m.InFlight)
	}
	return m
}
