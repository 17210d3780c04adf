package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the counters the billing core reports on. Batch operations
// count affected rows so partial retries are visible in dashboards.
type Metrics struct {
	Registry *prometheus.Registry

	ChargesGenerated *prometheus.CounterVec
	ChargesFrozen    prometheus.Counter
	ChargesSynced    prometheus.Counter
	WorkflowMoves    *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		ChargesGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plantel",
			Subsystem: "billing",
			Name:      "charges_generated_total",
			Help:      "Monthly charges created by the generator.",
		}, []string{"school_year"}),
		ChargesFrozen: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "plantel",
			Subsystem: "billing",
			Name:      "charges_frozen_total",
			Help:      "Charges snapshotted by freeze-month.",
		}),
		ChargesSynced: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "plantel",
			Subsystem: "billing",
			Name:      "charges_synced_total",
			Help:      "Charges re-priced by update-prices.",
		}),
		WorkflowMoves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plantel",
			Subsystem: "billing",
			Name:      "workflow_transitions_total",
			Help:      "Charge workflow transitions by outcome.",
		}, []string{"transition"}),
	}
}
