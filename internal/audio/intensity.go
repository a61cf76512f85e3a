package audio

import (
	"fmt"
	"math"
)

const (
	intensityWindow = 0.032 // seconds, matches a 100 Hz minimum pitch
	intensityHop    = 0.01
	refPressure     = 2e-5
)

// Intensity is a dB contour sampled every 10 ms. It satisfies pause.Contour.
type Intensity struct {
	values   []float64
	first    float64 // time of the first frame centre
	hop      float64
	duration float64
	mean     float64
}

// NewIntensity analyses mono samples in [-1, 1]. Frames without energy are
// undefined (NaN).
func NewIntensity(samples []float64, sampleRate int) *Intensity {
	in := &Intensity{hop: intensityHop, mean: math.NaN()}
	if sampleRate <= 0 {
		return in
	}
	in.duration = float64(len(samples)) / float64(sampleRate)
	win := int(math.Round(intensityWindow * float64(sampleRate)))
	hop := int(math.Round(intensityHop * float64(sampleRate)))
	if win < 1 || hop < 1 || len(samples) < win {
		return in
	}
	in.hop = float64(hop) / float64(sampleRate)
	in.first = float64(win) / 2 / float64(sampleRate)

	for start := 0; start+win <= len(samples); start += hop {
		in.values = append(in.values, frameLevel(samples[start:start+win]))
	}
	in.mean = energyMean(in.values)
	return in
}

// IntensityFromWAV reads a WAV file and builds its contour.
func IntensityFromWAV(path string) (*Intensity, error) {
	f, pcm, err := ReadWAVFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return NewIntensity(Samples(pcm, f), f.SampleRate), nil
}

func (in *Intensity) Duration() float64 { return in.duration }

// Mean is the energy-averaged level over the defined frames.
func (in *Intensity) Mean() float64 { return in.mean }

func (in *Intensity) Frames() int { return len(in.values) }

// ValueAt interpolates linearly between frame centres. Outside the analysed
// range, or next to an undefined frame, it returns NaN.
func (in *Intensity) ValueAt(t float64) float64 {
	n := len(in.values)
	if n == 0 {
		return math.NaN()
	}
	pos := (t - in.first) / in.hop
	if pos < -1e-9 || pos > float64(n-1)+1e-9 {
		return math.NaN()
	}
	i := int(math.Floor(pos))
	if i < 0 {
		i = 0
	}
	if i >= n-1 {
		return in.values[n-1]
	}
	frac := pos - float64(i)
	a, b := in.values[i], in.values[i+1]
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	return a + (b-a)*frac
}

func frameLevel(frame []float64) float64 {
	dc := 0.0
	for _, s := range frame {
		dc += s
	}
	dc /= float64(len(frame))
	energy := 0.0
	for _, s := range frame {
		d := s - dc
		energy += d * d
	}
	energy /= float64(len(frame))
	if energy <= 0 {
		return math.NaN()
	}
	return 10 * math.Log10(energy/(refPressure*refPressure))
}

func energyMean(values []float64) float64 {
	sum := 0.0
	n := 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += math.Pow(10, v/10)
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return 10 * math.Log10(sum/float64(n))
}
