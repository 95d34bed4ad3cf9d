package observability_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/stateflow/pkg/domain"
	"github.com/aretw0/stateflow/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	m := observability.NewMetrics(prometheus.NewRegistry())
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnDefinitionCreated(ctx, &domain.DefinitionEvent{DefinitionID: "def-1"})
	hooks.OnInstanceStarted(ctx, &domain.InstanceEvent{DefinitionID: "def-1"})
	hooks.OnInstanceStarted(ctx, &domain.InstanceEvent{DefinitionID: "def-1"})
	hooks.OnActionExecuted(ctx, &domain.InstanceEvent{DefinitionID: "def-1", Action: "submit"})
	hooks.OnActionRejected(ctx, &domain.InstanceEvent{Kind: domain.ActionDisabled})
	hooks.OnActionRejected(ctx, &domain.InstanceEvent{})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DefinitionsCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.InstancesStarted.WithLabelValues("def-1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActionsExecuted.WithLabelValues("def-1", "submit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActionsRejected.WithLabelValues(string(domain.ActionDisabled))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActionsRejected.WithLabelValues("unknown")))
}

func TestMetrics_Handler(t *testing.T) {
	m := observability.NewMetrics(nil)
	m.DefinitionsCreated.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "stateflow_definitions_created_total 1")
}
