package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/tournevent/shiprates/pkg/shipper"
)

// Metrics holds the Prometheus metrics recorded by the rate manager.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	CarrierErrors   *prometheus.CounterVec
	RatesReturned   *prometheus.CounterVec
}

// NewMetrics creates the metrics and registers them with reg. A nil reg
// uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shiprates_requests_total",
				Help: "Total number of carrier requests by operation, carrier, and status",
			},
			[]string{"operation", "carrier", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shiprates_request_duration_seconds",
				Help:    "Carrier request duration in seconds by operation and carrier",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "carrier"},
		),
		CarrierErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shiprates_carrier_errors_total",
				Help: "Total carrier failures by carrier and error kind",
			},
			[]string{"carrier", "error_type"},
		),
		RatesReturned: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shiprates_rates_returned_total",
				Help: "Total rates returned by carrier",
			},
			[]string{"carrier"},
		),
	}
}

// RecordRequest records a request metric.
func (m *Metrics) RecordRequest(operation, carrier, status string, duration float64) {
	m.RequestsTotal.WithLabelValues(operation, carrier, status).Inc()
	m.RequestDuration.WithLabelValues(operation, carrier).Observe(duration)
}

// RecordError records a carrier error metric.
func (m *Metrics) RecordError(carrier, errorType string) {
	m.CarrierErrors.WithLabelValues(carrier, errorType).Inc()
}

// RecordRates records how many rates a carrier returned.
func (m *Metrics) RecordRates(carrier string, count int) {
	m.RatesReturned.WithLabelValues(carrier).Add(float64(count))
}

// Push sends everything gathered by g to a Prometheus Pushgateway under the
// given job name, replacing the job's previous metrics.
func Push(ctx context.Context, url, job string, g prometheus.Gatherer) error {
	return push.New(url, job).Gatherer(g).PushContext(ctx)
}

var _ shipper.Recorder = (*Metrics)(nil)
