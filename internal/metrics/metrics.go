// Package metrics implements pkg/newcamd.Metrics over Prometheus,
// grounded on marmos91-dittofs's internal/adapter/nlm.Metrics: a struct of
// registered collectors built by a constructor that takes a
// prometheus.Registerer and panics on registration failure.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks gateway-wide Prometheus metrics, all under the ncamd_
// prefix.
type Metrics struct {
	ConnsOpenedTotal prometheus.Counter
	ConnsClosedTotal prometheus.Counter
	ConnsActive      prometheus.Gauge
	ECMTotal         *prometheus.CounterVec // label: result = "ok" | "fail"
	CacheTotal       *prometheus.CounterVec // label: result = "hit" | "miss"
	BansIssuedTotal  prometheus.Counter
}

// New builds and registers the gateway's metrics against reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnsOpenedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ncamd_connections_opened_total",
			Help: "Total accepted connections.",
		}),
		ConnsClosedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ncamd_connections_closed_total",
			Help: "Total connections that finished their dispatch loop.",
		}),
		ConnsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ncamd_connections_active",
			Help: "Currently registered connections.",
		}),
		ECMTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ncamd_ecm_total",
			Help: "Total ECM frames processed, by decode result.",
		}, []string{"result"}),
		CacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ncamd_cw_cache_total",
			Help: "Total CW cache lookups, by result.",
		}, []string{"result"}),
		BansIssuedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ncamd_bans_issued_total",
			Help: "Total fail-ban activations.",
		}),
	}

	reg.MustRegister(
		m.ConnsOpenedTotal,
		m.ConnsClosedTotal,
		m.ConnsActive,
		m.ECMTotal,
		m.CacheTotal,
		m.BansIssuedTotal,
	)
	return m
}

// ConnOpened satisfies pkg/newcamd.Metrics.
func (m *Metrics) ConnOpened() {
	m.ConnsOpenedTotal.Inc()
	m.ConnsActive.Inc()
}

// ConnClosed satisfies pkg/newcamd.Metrics.
func (m *Metrics) ConnClosed() {
	m.ConnsClosedTotal.Inc()
	m.ConnsActive.Dec()
}

// ECMDecoded satisfies pkg/newcamd.Metrics.
func (m *Metrics) ECMDecoded(hit bool) {
	m.ECMTotal.WithLabelValues(resultLabel(hit)).Inc()
}

// CacheHit satisfies pkg/newcamd.Metrics.
func (m *Metrics) CacheHit() { m.CacheTotal.WithLabelValues("hit").Inc() }

// CacheMiss satisfies pkg/newcamd.Metrics.
func (m *Metrics) CacheMiss() { m.CacheTotal.WithLabelValues("miss").Inc() }

// BanIssued satisfies pkg/newcamd.Metrics.
func (m *Metrics) BanIssued() { m.BansIssuedTotal.Inc() }

func resultLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "fail"
}
