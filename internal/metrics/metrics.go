package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "pagebridge"

// Bridge counts what the analytics bridge did with each page event.
type Bridge struct {
	events      prometheus.Counter
	forwarded   prometheus.Counter
	failures    *prometheus.CounterVec
	unavailable prometheus.Counter
}

func NewBridge(reg prometheus.Registerer) *Bridge {
	m := &Bridge{
		events: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "events_total",
			Help:      "Page events received from the application.",
		}),
		forwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "forwarded_total",
			Help:      "Page events forwarded to the analytics client without error.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "client_failures_total",
			Help:      "Analytics client calls that returned an error or panicked.",
		}, []string{"op"}),
		unavailable: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "unavailable_total",
			Help:      "Page events dropped because no analytics client was loaded.",
		}),
	}
	reg.MustRegister(m.events, m.forwarded, m.failures, m.unavailable)
	return m
}

func (m *Bridge) Event() {
	if m == nil {
		return
	}
	m.events.Inc()
}

func (m *Bridge) Forwarded() {
	if m == nil {
		return
	}
	m.forwarded.Inc()
}

func (m *Bridge) Failure(op string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(op).Inc()
}

func (m *Bridge) Unavailable() {
	if m == nil {
		return
	}
	m.unavailable.Inc()
}

// Ingress counts page events between the HTTP handlers and the port.
type Ingress struct {
	queued  prometheus.Counter
	dropped prometheus.Counter
}

func NewIngress(reg prometheus.Registerer) *Ingress {
	m := &Ingress{
		queued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingress",
			Name:      "queued_total",
			Help:      "Page events accepted onto the delivery queue.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingress",
			Name:      "dropped_total",
			Help:      "Page events dropped because the delivery queue was full.",
		}),
	}
	reg.MustRegister(m.queued, m.dropped)
	return m
}

func (m *Ingress) Queued() {
	if m == nil {
		return
	}
	m.queued.Inc()
}

func (m *Ingress) Dropped() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}
