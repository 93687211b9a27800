package jobs

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts handled jobs by type and outcome. A nil *Metrics records
// nothing.
type Metrics struct {
	processed *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reign",
			Subsystem: "jobs",
			Name:      "processed_total",
			Help:      "Background jobs handled, by type and outcome.",
		}, []string{"type", "outcome"}),
	}
	if err := reg.Register(m.processed); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, fmt.Errorf("register job metrics: %w", err)
		}
		m.processed = are.ExistingCollector.(*prometheus.CounterVec)
	}
	return m, nil
}

func (m *Metrics) observe(jobType, outcome string) {
	if m == nil {
		return
	}
	m.processed.WithLabelValues(jobType, outcome).Inc()
}
