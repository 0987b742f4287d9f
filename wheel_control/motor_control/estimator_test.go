package control

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEstimatorResetReturnsZero(t *testing.T) {
	var e VelocityEstimator

	out := e.Estimate(1000, true)
	require.Equal(t, 0.0, out)

	for _, c := range e.changes {
		require.Equal(t, uint16(1000), c.count)
		require.Equal(t, uint16(dwellCap), c.dwell)
	}

	// A following tick with the same count observes no change.
	require.Equal(t, 0.0, e.Estimate(1000, false))
}

func TestEstimatorDwellDisambiguation(t *testing.T) {
	// A count constant for N ticks then stepping by delta must report
	// delta/N at the change tick, up to the dwell cap.
	const delta = 3.0

	for n := 1; n <= dwellCap; n++ {
		var e VelocityEstimator
		e.Estimate(0, true)

		for i := 0; i < n-1; i++ {
			require.Equal(t, 0.0, e.Estimate(0, false), "n=%d tick=%d", n, i)
		}

		out := e.Estimate(delta, false)
		require.InDelta(t, delta/float64(n), out, 1e-12, "n=%d", n)
	}
}

func TestEstimatorWraparoundInvariance(t *testing.T) {
	feed := func(start float64, steps []float64) []float64 {
		var e VelocityEstimator
		e.Estimate(start, true)
		out := make([]float64, len(steps))
		for i, c := range steps {
			out[i] = e.Estimate(c, false)
		}
		return out
	}

	// One sequence crosses the 16-bit counter boundary, the other does
	// not; both advance one count per tick.
	wrapped := feed(65533, []float64{65534, 65535, 0, 1, 2})
	plain := feed(997, []float64{998, 999, 1000, 1001, 1002})

	require.Equal(t, plain, wrapped)
}

func TestEstimatorSanityClamp(t *testing.T) {
	var e VelocityEstimator

	// A 200-count jump in one period is past the plausibility bound.
	e.Estimate(0, true)
	require.Equal(t, 0.0, e.Estimate(200, false))

	e.Estimate(0, true)
	require.Equal(t, 0.0, e.Estimate(-200, false))
}

func TestEstimatorStallDecay(t *testing.T) {
	var e VelocityEstimator
	e.Estimate(0, true)

	// Step of 5 with dwell 1.
	require.InDelta(t, 5.0, e.Estimate(5, false), 1e-12)

	// While the count stalls, the running dwell overtakes the recorded
	// one and the estimate decays instead of holding 5.
	want := []float64{5.0, 2.5, 5.0 / 3.0, 1.25, 1.0}
	for i, w := range want {
		require.InDelta(t, w, e.Estimate(5, false), 1e-12, "stall tick %d", i)
	}
}

func TestEstimatorDwellCap(t *testing.T) {
	var e VelocityEstimator
	e.Estimate(0, true)
	e.Estimate(5, false)

	var last float64
	for i := 0; i < 3*dwellCap; i++ {
		last = e.Estimate(5, false)
	}

	// The dwell counter saturates, bounding the minimum representable
	// speed at delta/dwellCap.
	require.InDelta(t, 5.0/float64(dwellCap), last, 1e-12)
	require.False(t, math.Signbit(last))
}

func TestEstimatorNegativeDirection(t *testing.T) {
	var e VelocityEstimator
	e.Estimate(1000, true)

	require.InDelta(t, -2.0, e.Estimate(998, false), 1e-12)
	// Still reporting the last step while the count holds.
	require.InDelta(t, -2.0, e.Estimate(998, false), 1e-12)
	require.InDelta(t, -1.0, e.Estimate(996, false), 1e-12)
}
