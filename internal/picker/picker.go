// Package picker chooses the next training prompt.
package picker

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/Icosa2050/assess-speaking/internal/model"
)

// DefaultFactor scales how strongly weak levels are favoured.
const DefaultFactor = 2.0

// Picker draws prompts at random.
type Picker struct {
	rnd *rand.Rand
}

// New returns a Picker seeded with the current time.
func New() *Picker {
	return NewWithSeed(time.Now().UnixNano())
}

// NewWithSeed returns a deterministic Picker.
func NewWithSeed(seed int64) *Picker {
	return &Picker{rnd: rand.New(rand.NewSource(seed))}
}

// Pick selects a prompt uniformly, skipping exclude unless it is the only one.
func (p *Picker) Pick(prompts []model.Prompt, exclude string) (model.Prompt, bool) {
	return p.PickWeighted(prompts, exclude, nil, 0)
}

// PickWeighted selects a prompt with a bias toward CEFR levels with a high
// miss rate. weakness maps level to miss rate in [0, 1].
func (p *Picker) PickWeighted(prompts []model.Prompt, exclude string, weakness map[string]float64, factor float64) (model.Prompt, bool) {
	candidates := prompts
	if exclude != "" && len(prompts) > 1 {
		candidates = make([]model.Prompt, 0, len(prompts))
		for _, pr := range prompts {
			if pr.ID != exclude {
				candidates = append(candidates, pr)
			}
		}
		if len(candidates) == 0 {
			candidates = prompts
		}
	}
	if len(candidates) == 0 {
		return model.Prompt{}, false
	}

	weights := make([]float64, len(candidates))
	total := 0.0
	for i, pr := range candidates {
		w := 1.0 + weakness[strings.ToUpper(pr.CEFRTarget)]*factor
		if w < 0 {
			w = 0
		}
		weights[i] = w
		total += w
	}
	if total <= 0 {
		return candidates[p.rnd.Intn(len(candidates))], true
	}

	r := p.rnd.Float64() * total
	acc := 0.0
	idx := len(candidates) - 1
	for j, w := range weights {
		acc += w
		if r <= acc {
			idx = j
			break
		}
	}
	return candidates[idx], true
}

// WeakSource reports baseline target results over recent assessments.
type WeakSource interface {
	GetWeakTargets(ctx context.Context, window int, level string) ([]model.TargetAggregate, error)
}

// LevelWeakness computes the miss rate of every level the prompts target,
// looking at the last window assessments for that level.
func LevelWeakness(ctx context.Context, src WeakSource, prompts []model.Prompt, window int) (map[string]float64, error) {
	out := map[string]float64{}
	for _, pr := range prompts {
		level := strings.ToUpper(strings.TrimSpace(pr.CEFRTarget))
		if level == "" {
			continue
		}
		if _, done := out[level]; done {
			continue
		}
		aggs, err := src.GetWeakTargets(ctx, window, level)
		if err != nil {
			return nil, err
		}
		checks, failures := 0, 0
		for _, a := range aggs {
			checks += a.Checks
			failures += a.Failures
		}
		if checks == 0 {
			out[level] = 0
			continue
		}
		out[level] = float64(failures) / float64(checks)
	}
	return out, nil
}
