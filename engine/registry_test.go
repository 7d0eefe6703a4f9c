package engine

import (
	"testing"

	"github.com/cachesight/wssmrc/config"
	"github.com/cachesight/wssmrc/wss"
	"github.com/stretchr/testify/require"
)

func TestRegistryGetOlkenIsSingleton(t *testing.T) {
	r := NewRegistry()
	a, err := r.GetOlken("trace-a")
	require.NoError(t, err)
	b, err := r.GetOlken("trace-a")
	require.NoError(t, err)
	require.Same(t, a, b)
}

func TestRegistryDifferentNamesDifferentInstances(t *testing.T) {
	r := NewRegistry()
	a, _ := r.GetOlken("a")
	b, _ := r.GetOlken("b")
	require.NotSame(t, a, b)
}

func TestRegistryTypeMismatchErrors(t *testing.T) {
	r := NewRegistry()
	_, err := r.GetOlken("x")
	require.NoError(t, err)
	_, err = r.GetShardsFixedRate("x")
	require.Error(t, err)
}

func TestRegistryUsesRegisteredConfig(t *testing.T) {
	r := NewRegistry()
	cfg := config.HiFiPreset()
	require.NoError(t, r.RegisterConfig("y", cfg))

	s, err := r.GetShardsFixedSize("y")
	require.NoError(t, err)
	require.Zero(t, s.Stats().SampleSize)

	require.Error(t, r.RegisterConfig("y", cfg))
}

func TestRegistryAllStats(t *testing.T) {
	r := NewRegistry()
	o, _ := r.GetOlken("o")
	o.Add(1, 0, 100, 0)
	o.Add(1, 1, 100, 0)

	stats := r.AllStats()
	require.Contains(t, stats, "o")
}

func TestRegistryGetWSS(t *testing.T) {
	r := NewRegistry()
	w, err := r.GetWSS("w", wss.VariableBlock)
	require.NoError(t, err)
	require.NotNil(t, w)

	again, err := r.GetWSS("w", wss.VariableBlock)
	require.NoError(t, err)
	require.Same(t, w, again)
}
