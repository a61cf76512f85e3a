// Package pause detects silent intervals in an intensity contour.
package pause

import (
	"math"

	"github.com/Icosa2050/assess-speaking/internal/model"
)

const (
	defaultStep              = 0.01
	defaultMinPause          = 0.3
	defaultThresholdOffsetDB = 10.0
)

// Contour is a sampled intensity function over [0, Duration()].
// ValueAt returns NaN where the level is undefined (e.g. unvoiced frames).
type Contour interface {
	Duration() float64
	Mean() float64
	ValueAt(t float64) float64
}

// Params controls segmentation. The defaults are heuristics tuned on
// close-microphone recordings and are not expected to fit every setup.
type Params struct {
	Step              float64 // seconds between samples
	MinPause          float64 // shortest interval reported, seconds
	ThresholdOffsetDB float64 // distance below the mean level that counts as silence
}

// DefaultParams returns a 10 ms step, 0.3 s minimum pause and a mean-10 dB threshold.
func DefaultParams() Params {
	return Params{
		Step:              defaultStep,
		MinPause:          defaultMinPause,
		ThresholdOffsetDB: defaultThresholdOffsetDB,
	}
}

func (p Params) normalized() Params {
	d := DefaultParams()
	if p.Step <= 0 || math.IsNaN(p.Step) {
		p.Step = d.Step
	}
	if p.MinPause < 0 || math.IsNaN(p.MinPause) {
		p.MinPause = d.MinPause
	}
	if math.IsNaN(p.ThresholdOffsetDB) {
		p.ThresholdOffsetDB = d.ThresholdOffsetDB
	}
	return p
}

// Threshold returns the silence threshold for a contour.
func Threshold(c Contour, p Params) float64 {
	return c.Mean() - p.normalized().ThresholdOffsetDB
}

// Segment walks the contour once and returns the silence intervals that
// last at least p.MinPause, ordered by start time.
func Segment(c Contour, p Params) []model.SilenceInterval {
	p = p.normalized()
	duration := c.Duration()
	if duration <= 0 || math.IsNaN(duration) {
		return nil
	}
	thr := Threshold(c, p)

	var out []model.SilenceInterval
	inPause := false
	start := 0.0
	emit := func(s, e float64) {
		d := e - s
		if d >= p.MinPause && e > s {
			out = append(out, model.SilenceInterval{Start: s, End: e, Duration: d})
		}
	}

	// t is derived from the index so repeated float addition cannot drift.
	for i := 0; ; i++ {
		t := float64(i) * p.Step
		if t >= duration {
			break
		}
		if isSilent(c.ValueAt(t), thr) {
			if !inPause {
				inPause = true
				start = t
			}
			continue
		}
		if inPause {
			emit(start, t)
			inPause = false
		}
	}
	if inPause {
		emit(start, duration)
	}
	return out
}

// Total returns the summed duration of the intervals.
func Total(pauses []model.SilenceInterval) float64 {
	total := 0.0
	for _, p := range pauses {
		total += p.Duration
	}
	return total
}

func isSilent(v, thr float64) bool {
	return math.IsNaN(v) || v < thr
}
