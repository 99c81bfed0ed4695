package money

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{name: "down", in: 2.390625, want: 2.39},
		{name: "up", in: 2.440625 + 0.005, want: 2.45},
		{name: "half away from zero", in: 0.125, want: 0.13},
		{name: "negative", in: -1.005, want: -1.01},
		{name: "whole", in: 16, want: 16},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Round(tc.in))
		})
	}
}

func TestSumAndSubAreExact(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0.3, Sum(0.1, 0.2))
	require.Equal(t, 0.1, Sub(0.3, 0.2))

	var acc Accumulator
	for i := 0; i < 10; i++ {
		acc.Add(0.1)
	}
	require.Equal(t, 1.0, acc.Total())
}

func TestPercentGuardsZeroDenominator(t *testing.T) {
	t.Parallel()

	require.Nil(t, Percent(5, 0))

	p := Percent(2.44, 16)
	require.NotNil(t, p)
	require.Equal(t, 15.25, *p)
}

func TestPercentChange(t *testing.T) {
	t.Parallel()

	require.Nil(t, PercentChange(100, 0))

	up := PercentChange(150, 100)
	require.NotNil(t, up)
	require.Equal(t, 50.0, *up)

	fromLoss := PercentChange(50, -100)
	require.NotNil(t, fromLoss)
	require.Equal(t, 150.0, *fromLoss)
}
