package metrics

import (
	"github.com/layer-3/starnotary/ports"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "starnotary"

// Prometheus records protocol outcomes as Prometheus counters
type Prometheus struct {
	sessions        prometheus.Counter
	authentications *prometheus.CounterVec
	stars           prometheus.Counter
}

// NewPrometheus registers the notary counters on reg
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	m := &Prometheus{
		sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_issued_total",
			Help:      "Ownership challenges issued.",
		}),
		authentications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authentications_total",
			Help:      "Signature checks by outcome.",
		}, []string{"outcome"}),
		stars: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stars_registered_total",
			Help:      "Star records appended to the ledger.",
		}),
	}

	for _, c := range []prometheus.Collector{m.sessions, m.authentications, m.stars} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Prometheus) SessionIssued() {
	m.sessions.Inc()
}

func (m *Prometheus) Authenticated(ok bool) {
	outcome := "invalid"
	if ok {
		outcome = "valid"
	}
	m.authentications.WithLabelValues(outcome).Inc()
}

func (m *Prometheus) StarRegistered() {
	m.stars.Inc()
}

// Nop discards all measurements
type Nop struct{}

func (Nop) SessionIssued()     {}
func (Nop) Authenticated(bool) {}
func (Nop) StarRegistered()    {}

var (
	_ ports.Metrics = (*Prometheus)(nil)
	_ ports.Metrics = Nop{}
)
