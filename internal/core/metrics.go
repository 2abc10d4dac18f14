package core

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the hub's Prometheus collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	connections prometheus.Gauge
	rooms       prometheus.Gauge
	broadcasts  prometheus.Counter
	deliveries  prometheus.Counter
	drops       prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ordercast_ws_connections",
			Help: "Current number of registered websocket connections.",
		}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ordercast_ws_rooms",
			Help: "Current number of store rooms with at least one member.",
		}),
		broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ordercast_broadcasts_total",
			Help: "Total new-order events accepted by the hub.",
		}),
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ordercast_events_delivered_total",
			Help: "Total events queued to connections.",
		}),
		drops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ordercast_events_dropped_total",
			Help: "Total events dropped because a connection queue was full.",
		}),
	}
	reg.MustRegister(m.connections, m.rooms, m.broadcasts, m.deliveries, m.drops)
	return m
}

func (m *Metrics) connected() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) disconnected() {
	if m != nil {
		m.connections.Dec()
	}
}

func (m *Metrics) setRooms(n int) {
	if m != nil {
		m.rooms.Set(float64(n))
	}
}

func (m *Metrics) broadcast() {
	if m != nil {
		m.broadcasts.Inc()
	}
}

func (m *Metrics) delivered(delivered, dropped int) {
	if m == nil {
		return
	}
	if delivered > 0 {
		m.deliveries.Add(float64(delivered))
	}
	if dropped > 0 {
		m.drops.Add(float64(dropped))
	}
}
