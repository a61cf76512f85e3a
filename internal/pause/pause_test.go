package pause

import (
	"math"
	"testing"
)

// stepContour is loud (70 dB) except inside the listed [start, end) gaps,
// which hold the quiet value.
type stepContour struct {
	duration float64
	quiet    float64
	gaps     [][2]float64
}

func (c stepContour) Duration() float64 { return c.duration }

func (c stepContour) Mean() float64 { return 70 }

func (c stepContour) ValueAt(t float64) float64 {
	for _, g := range c.gaps {
		if t >= g[0]-1e-9 && t < g[1]-1e-9 {
			return c.quiet
		}
	}
	return 70
}

func TestSegmentFindsLongGapsOnly(t *testing.T) {
	c := stepContour{
		duration: 5,
		quiet:    40,
		gaps:     [][2]float64{{1.0, 1.5}, {2.0, 2.1}, {3.0, 3.4}},
	}
	got := Segment(c, DefaultParams())
	if len(got) != 2 {
		t.Fatalf("expected 2 pauses, got %d: %+v", len(got), got)
	}
	if math.Abs(got[0].Start-1.0) > 1e-6 || math.Abs(got[0].End-1.5) > 1e-6 {
		t.Fatalf("unexpected first pause: %+v", got[0])
	}
	if math.Abs(got[1].Start-3.0) > 1e-6 || math.Abs(got[1].Duration-0.4) > 1e-6 {
		t.Fatalf("unexpected second pause: %+v", got[1])
	}
}

func TestSegmentTreatsNaNAsSilence(t *testing.T) {
	c := stepContour{
		duration: 3,
		quiet:    math.NaN(),
		gaps:     [][2]float64{{0.5, 1.5}},
	}
	got := Segment(c, DefaultParams())
	if len(got) != 1 {
		t.Fatalf("expected 1 pause, got %d", len(got))
	}
	if math.Abs(got[0].Duration-1.0) > 1e-6 {
		t.Fatalf("expected 1.0s pause, got %.3f", got[0].Duration)
	}
}

func TestSegmentClosesTrailingPauseAtDuration(t *testing.T) {
	c := stepContour{
		duration: 4,
		quiet:    10,
		gaps:     [][2]float64{{3.5, 10}},
	}
	got := Segment(c, DefaultParams())
	if len(got) != 1 {
		t.Fatalf("expected 1 pause, got %d", len(got))
	}
	if got[0].End != 4 {
		t.Fatalf("expected pause to end at duration, got %.3f", got[0].End)
	}
}

func TestSegmentDropsShortTrailingPause(t *testing.T) {
	c := stepContour{
		duration: 4,
		quiet:    10,
		gaps:     [][2]float64{{3.8, 10}},
	}
	if got := Segment(c, DefaultParams()); len(got) != 0 {
		t.Fatalf("expected no pauses, got %+v", got)
	}
}

func TestSegmentThresholdOffset(t *testing.T) {
	// 65 dB is 5 dB under the mean: silent with a 3 dB offset, speech with 10 dB.
	c := stepContour{
		duration: 3,
		quiet:    65,
		gaps:     [][2]float64{{1, 2}},
	}
	if got := Segment(c, DefaultParams()); len(got) != 0 {
		t.Fatalf("expected no pauses at default offset, got %+v", got)
	}
	p := DefaultParams()
	p.ThresholdOffsetDB = 3
	if got := Segment(c, p); len(got) != 1 {
		t.Fatalf("expected 1 pause at 3 dB offset, got %+v", got)
	}
}

func TestSegmentInvariants(t *testing.T) {
	c := stepContour{
		duration: 12,
		quiet:    20,
		gaps: [][2]float64{
			{0, 0.5}, {0.9, 1.0}, {1.2, 2.6}, {3.0, 3.31}, {5.0, 5.29}, {7.0, 9.0}, {11.5, 12},
		},
	}
	p := DefaultParams()
	got := Segment(c, p)
	if len(got) == 0 {
		t.Fatalf("expected pauses")
	}
	for i, iv := range got {
		if !(iv.Start < iv.End) {
			t.Fatalf("interval %d has start >= end: %+v", i, iv)
		}
		if iv.Duration < p.MinPause {
			t.Fatalf("interval %d shorter than minimum: %+v", i, iv)
		}
		if i > 0 && iv.Start < got[i-1].End {
			t.Fatalf("interval %d overlaps previous: %+v %+v", i, got[i-1], iv)
		}
	}
}

func TestSegmentEmptyContour(t *testing.T) {
	if got := Segment(stepContour{duration: 0}, DefaultParams()); got != nil {
		t.Fatalf("expected nil for empty contour, got %+v", got)
	}
}

func TestSegmentInvalidStepFallsBack(t *testing.T) {
	c := stepContour{duration: 2, quiet: 0, gaps: [][2]float64{{0.5, 1.5}}}
	got := Segment(c, Params{Step: 0, MinPause: 0.3, ThresholdOffsetDB: 10})
	if len(got) != 1 {
		t.Fatalf("expected fallback step to find 1 pause, got %+v", got)
	}
}
