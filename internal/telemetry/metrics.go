// Package telemetry exports Prometheus metrics for bridging stores and sheet
// controllers.
//
// One Metrics value observes every store and controller in a process:
//
//	m := telemetry.New(prometheus.DefaultRegisterer)
//	store := bridge.New(snap, doc, bridge.WithObserver(m))
//	ctrl, _ := sheet.New(sheet.Config[entity.Snapshot]{..., Observer: m})
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/sheetbridge/internal/bridge"
	"github.com/roach88/sheetbridge/internal/sheet"
)

const namespace = "sheetbridge"

var (
	_ bridge.Observer = (*Metrics)(nil)
	_ sheet.Observer  = (*Metrics)(nil)
)

// Metrics implements bridge.Observer and sheet.Observer.
//
// Thread-safety: Metrics is safe for concurrent use.
type Metrics struct {
	commits       *prometheus.CounterVec
	notifications prometheus.Counter
	skipped       prometheus.Counter
	renders       *prometheus.CounterVec
	renderErrors  prometheus.Counter
	mounted       prometheus.Gauge
}

// New creates the collectors and registers them on reg.
// Panics if a collector with the same name is already registered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commits_total",
			Help:      "Commit attempts made by bridging stores, by result.",
		}, []string{"result"}),
		notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Subscriber notifications delivered by bridging stores.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_sets_total",
			Help:      "Store sets whose notification was suppressed.",
		}),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Sheet render calls, by lifecycle branch.",
		}, []string{"branch"}),
		renderErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_errors_total",
			Help:      "First renders that failed and left the sheet in its error state.",
		}),
		mounted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mounted_sheets",
			Help:      "Sheets currently holding a live store and view.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.commits, m.notifications, m.skipped, m.renders, m.renderErrors, m.mounted)
	}
	return m
}

// Committed implements bridge.Observer.
func (m *Metrics) Committed(ok bool) {
	result := "rejected"
	if ok {
		result = "accepted"
	}
	m.commits.WithLabelValues(result).Inc()
}

// Notified implements bridge.Observer.
func (m *Metrics) Notified(subscribers int) {
	m.notifications.Add(float64(subscribers))
}

// Skipped implements bridge.Observer.
func (m *Metrics) Skipped() { m.skipped.Inc() }

// Rendered implements sheet.Observer.
func (m *Metrics) Rendered(branch sheet.Branch) {
	m.renders.WithLabelValues(string(branch)).Inc()
}

// RenderFailed implements sheet.Observer.
func (m *Metrics) RenderFailed() { m.renderErrors.Inc() }

// Mounted implements sheet.Observer.
func (m *Metrics) Mounted() { m.mounted.Inc() }

// Unmounted implements sheet.Observer.
func (m *Metrics) Unmounted() { m.mounted.Dec() }
