package config

import (
	"testing"

	"github.com/cachesight/wssmrc/mrc"
	"github.com/stretchr/testify/require"
)

func TestPresetsAreDistinct(t *testing.T) {
	def := DefaultPreset()
	hi := HiFiPreset()
	lo := LoFiPreset()

	require.Equal(t, mrc.HiFi, hi.Fidelity)
	require.Equal(t, mrc.LoFi, lo.Fidelity)
	require.NotEqual(t, hi.Precision, lo.Precision)
	require.NotEqual(t, def.CounterCapacity, lo.CounterCapacity)
}

func TestClampBlock(t *testing.T) {
	e := DefaultPreset()
	e.MinBlock = 100
	e.MaxBlock = 1000

	require.EqualValues(t, 100, e.ClampBlock(10))
	require.EqualValues(t, 1000, e.ClampBlock(5000))
	require.EqualValues(t, 500, e.ClampBlock(500))
}
