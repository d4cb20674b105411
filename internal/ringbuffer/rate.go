package ringbuffer

import "time"

// nominalFrameRate is the IIR estimator's starting point (Hz).
const nominalFrameRate = 10072.0

// frameRateIIR is the estimator's smoothing coefficient.
const frameRateIIR = 1e-3

// rateEstimator maintains an IIR-smoothed estimate of the producer's frame
// rate, updated on every non-gap release. It does not reset across gaps.
type rateEstimator struct {
	framesPerBlock int
	mean           float64
	lastTS         time.Time
	lastValid      bool
}

func newRateEstimator(framesPerBlock int) rateEstimator {
	return rateEstimator{
		framesPerBlock: framesPerBlock,
		mean:           nominalFrameRate,
	}
}

// update folds in one observation. Per the spec's resolved open question,
// an interval that is zero, negative, or one second or more (the point at
// which the original silently wrapped) is treated as an upstream fault and
// skipped rather than corrupting the running mean.
func (e *rateEstimator) update(gap bool, ts time.Time) {
	valid := !gap
	if valid && e.lastValid {
		delta := ts.Sub(e.lastTS)
		if delta > 0 && delta < time.Second {
			rate := float64(e.framesPerBlock) * float64(time.Second) / float64(delta)
			e.mean = (1-frameRateIIR)*e.mean + frameRateIIR*rate
		}
	}
	e.lastTS = ts
	e.lastValid = valid
}
