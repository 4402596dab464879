package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	ticksTotal   *prometheus.CounterVec
	lastPrice    *prometheus.GaugeVec
	lastVolume   *prometheus.GaugeVec
	tickDuration prometheus.Histogram
	ordersTotal  *prometheus.CounterVec
	fillsTotal   *prometheus.CounterVec
	rejections   *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	activeEvents prometheus.Gauge
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		ticksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memex_ticks_total",
				Help: "Total number of simulated ticks produced",
			},
			[]string{"symbol"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "memex_last_price",
				Help: "Last simulated price for a symbol",
			},
			[]string{"symbol"},
		),
		lastVolume: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "memex_last_volume",
				Help: "Last simulated per-tick volume for a symbol",
			},
			[]string{"symbol"},
		),
		tickDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "memex_tick_duration_seconds",
				Help:    "Duration of a full tick pipeline step in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		ordersTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memex_orders_total",
				Help: "Total number of orders submitted, by terminal status",
			},
			[]string{"status"},
		),
		fillsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memex_fills_total",
				Help: "Total number of fills, by side",
			},
			[]string{"side"},
		),
		rejections: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memex_rejections_total",
				Help: "Total number of rejected order attempts",
			},
			[]string{"reason"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memex_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		activeEvents: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "memex_active_events",
				Help: "Number of news events currently decaying",
			},
		),
	}
}

// RecordTick records one produced tick and its price/volume gauges.
func (r *Recorder) RecordTick(symbol string, price, volume float64) {
	r.ticksTotal.WithLabelValues(symbol).Inc()
	r.lastPrice.WithLabelValues(symbol).Set(price)
	r.lastVolume.WithLabelValues(symbol).Set(volume)
}

// RecordTickDuration records how long one pipeline step took.
func (r *Recorder) RecordTickDuration(seconds float64) {
	r.tickDuration.Observe(seconds)
}

// RecordOrder records a submitted order by its status after submission.
func (r *Recorder) RecordOrder(status string) {
	r.ordersTotal.WithLabelValues(status).Inc()
}

// RecordFill records an executed fill.
func (r *Recorder) RecordFill(side string) {
	r.fillsTotal.WithLabelValues(side).Inc()
}

// RecordRejection records a rejected order attempt.
func (r *Recorder) RecordRejection(reason string) {
	r.rejections.WithLabelValues(reason).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordActiveEvents records the current active event count.
func (r *Recorder) RecordActiveEvents(n int) {
	r.activeEvents.Set(float64(n))
}

// Nop is a no-op recorder for tests and disabled metrics.
type Nop struct{}

func (Nop) RecordTick(string, float64, float64) {}
func (Nop) RecordTickDuration(float64)          {}
func (Nop) RecordOrder(string)                  {}
func (Nop) RecordFill(string)                   {}
func (Nop) RecordRejection(string)              {}
func (Nop) RecordError(string)                  {}
func (Nop) RecordActiveEvents(int)              {}
