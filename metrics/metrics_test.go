package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestEstimatorCollectorsRegister(t *testing.T) {
	e := NewEstimator("olken", "trace-a")
	e.SetCardinality(42)
	e.IncEvictions(3)
	e.IncPromotions()
	e.IncMerges(2)
	e.IncThresholdShrinks()
	e.IncRequestsProcessed(100)

	reg := prometheus.NewRegistry()
	for _, c := range e.PrometheusCollectors() {
		require.NoError(t, reg.Register(c))
	}

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}
