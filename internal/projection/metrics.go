package projection

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts reconciliation diagnostics. Turn desyncs in particular are
// the observable trace of the authority overriding local rotation.
type Metrics struct {
	MovesApplied      prometheus.Counter
	DuplicatesDropped prometheus.Counter
	TurnDesyncs       prometheus.Counter
	Disconnects       prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Metrics{
		MovesApplied: factory.NewCounter(prometheus.CounterOpts{
			Name: "game_moves_applied_total",
			Help: "Move events applied to the projected game state.",
		}),
		DuplicatesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "game_duplicate_moves_dropped_total",
			Help: "Move events dropped by the deduplication key.",
		}),
		TurnDesyncs: factory.NewCounter(prometheus.CounterOpts{
			Name: "game_turn_desyncs_total",
			Help: "Authority-declared next turns that contradicted round-robin rotation.",
		}),
		Disconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "game_transport_disconnects_total",
			Help: "Transport disconnect events observed by the projection engine.",
		}),
	}
}
