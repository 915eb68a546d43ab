package noteservice

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/starford/scribe/internal/apperr"
)

// Metrics counts note operations by outcome.
type Metrics struct {
	ops *prometheus.CounterVec
}

// NewMetrics creates and registers the note operation counters on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scribe",
			Name:      "note_operations_total",
			Help:      "Count of note operations by outcome",
		}, []string{"op", "outcome"}),
	}
	if err := reg.Register(m.ops); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) observe(op string, err error) {
	if m == nil {
		return
	}
	m.ops.With(prometheus.Labels{"op": op, "outcome": Outcome(err)}).Inc()
}

// Outcome maps an operation error to a metric label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperr.ErrValidation):
		return "invalid"
	case errors.Is(err, apperr.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, apperr.ErrForbidden):
		return "forbidden"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
