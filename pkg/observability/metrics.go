package observability

import (
	"context"
	"net/http"

	"github.com/aretw0/stateflow/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the orchestrator's Prometheus collectors.
type Metrics struct {
	DefinitionsCreated prometheus.Counter
	InstancesStarted   *prometheus.CounterVec
	ActionsExecuted    *prometheus.CounterVec
	ActionsRejected    *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg uses a fresh private registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		DefinitionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stateflow_definitions_created_total",
			Help: "Total number of workflow definitions created",
		}),
		InstancesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stateflow_instances_started_total",
			Help: "Total number of workflow instances started",
		}, []string{"definition"}),
		ActionsExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stateflow_actions_executed_total",
			Help: "Total number of actions executed",
		}, []string{"definition", "action"}),
		ActionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stateflow_actions_rejected_total",
			Help: "Total number of actions rejected, by reason",
		}, []string{"kind"}),
		gatherer: reg,
	}

	reg.MustRegister(m.DefinitionsCreated, m.InstancesStarted, m.ActionsExecuted, m.ActionsRejected)
	return m
}

// Hooks returns lifecycle hooks that update the counters.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnDefinitionCreated: func(_ context.Context, _ *domain.DefinitionEvent) {
			m.DefinitionsCreated.Inc()
		},
		OnInstanceStarted: func(_ context.Context, e *domain.InstanceEvent) {
			m.InstancesStarted.WithLabelValues(e.DefinitionID).Inc()
		},
		OnActionExecuted: func(_ context.Context, e *domain.InstanceEvent) {
			m.ActionsExecuted.WithLabelValues(e.DefinitionID, e.Action).Inc()
		},
		OnActionRejected: func(_ context.Context, e *domain.InstanceEvent) {
			kind := string(e.Kind)
			if kind == "" {
				kind = "unknown"
			}
			m.ActionsRejected.WithLabelValues(kind).Inc()
		},
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
