package control

import "math"

const (
	estimatorDepth = 10

	// dwellCap bounds the dwell counter during a stall. It also sets the
	// minimum representable speed: 1 count per 100 periods.
	dwellCap = 100

	// derivativeLimit marks physically impossible outputs. A fresh count
	// change paired with a stale dwell can momentarily produce a huge
	// quotient; anything past this is reported as zero.
	derivativeLimit = 100.0
)

type countChange struct {
	count uint16
	dwell uint16 // control periods the previous count persisted
}

// VelocityEstimator turns a low-resolution pulse counter into a velocity
// estimate, in counts per control period. Differencing the counter over
// one period is hopeless at low speed: the counter barely moves, so the
// quantization noise swamps the signal. Instead the estimator records how
// many control periods the counter dwells between changes and divides the
// count step by that dwell, trading a little latency for precision.
//
// Counts are truncated to the sensor's 16-bit width before comparison, so
// hardware counter wraparound needs no special casing: the 16-bit
// subtraction wraps the same way the counter does.
//
// The histories are fixed-capacity rings; head indexes the most recent
// entry. Stateful: step exactly once per control tick, in tick order.
type VelocityEstimator struct {
	changes    [estimatorDepth]countChange
	changeHead int

	derivatives [estimatorDepth]float64
	derivHead   int

	// sinceChange counts control periods since the counter last moved,
	// including the current one.
	sinceChange uint16
}

// Reset fills the change log with the current count at maximal dwell and
// clears the derivative history, so the next ticks start from zero
// velocity instead of a startup transient.
func (e *VelocityEstimator) Reset(rawCount float64) {
	c := truncCount(rawCount)
	for i := range e.changes {
		e.changes[i] = countChange{count: c, dwell: dwellCap}
	}
	for i := range e.derivatives {
		e.derivatives[i] = 0
	}
	e.changeHead = 0
	e.derivHead = 0
	e.sinceChange = 1
}

// Estimate steps the estimator with this tick's raw count and returns the
// velocity in counts per control period. With reset set it reinitializes
// and returns 0.
func (e *VelocityEstimator) Estimate(rawCount float64, reset bool) float64 {
	if reset {
		e.Reset(rawCount)
		return 0.0
	}

	count := truncCount(rawCount)
	latest := &e.changes[e.changeHead]
	if count != latest.count {
		e.changeHead = (e.changeHead + 1) % estimatorDepth
		e.changes[e.changeHead] = countChange{count: count, dwell: e.sinceChange}
		e.sinceChange = 1
	} else {
		// A read that is still stalled can already prove a longer dwell
		// than the one recorded at the last change; publishing it now
		// lets the estimate decay during the stall instead of holding a
		// stale speed.
		if e.sinceChange > latest.dwell {
			latest.dwell = e.sinceChange
		}
		if e.sinceChange < dwellCap {
			e.sinceChange++
		}
	}

	cur := e.changes[e.changeHead]
	prev := e.changes[(e.changeHead+estimatorDepth-1)%estimatorDepth]

	// 16-bit subtraction, reinterpreted signed: a counter wrap and a
	// genuine small step produce the same delta.
	delta := int16(cur.count - prev.count)
	output := float64(delta) / float64(cur.dwell)

	e.derivHead = (e.derivHead + 1) % estimatorDepth
	e.derivatives[e.derivHead] = output

	if math.Abs(output) > derivativeLimit {
		return 0.0
	}
	return output
}

// truncCount reduces the raw (float) counter sample to the sensor's
// 16-bit width. Going through int64 keeps the conversion defined for
// negative and large counts.
func truncCount(rawCount float64) uint16 {
	return uint16(int64(rawCount))
}
