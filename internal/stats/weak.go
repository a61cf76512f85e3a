package stats

import (
	"fmt"
	"io"
	"sort"

	"github.com/Icosa2050/assess-speaking/internal/model"
)

// SelectWeakTargets returns metrics that were missed at least once, most
// often missed first. top <= 0 keeps all of them.
func SelectWeakTargets(aggs []model.TargetAggregate, top int) []model.TargetAggregate {
	candidates := make([]model.TargetAggregate, 0, len(aggs))
	for _, agg := range aggs {
		if agg.Failures > 0 {
			candidates = append(candidates, agg)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		ri, rj := missRate(candidates[i]), missRate(candidates[j])
		if ri == rj {
			return candidates[i].Metric < candidates[j].Metric
		}
		return ri > rj
	})
	if top > 0 && top < len(candidates) {
		candidates = candidates[:top]
	}
	return candidates
}

func missRate(agg model.TargetAggregate) float64 {
	if agg.Checks == 0 {
		return 0
	}
	return float64(agg.Failures) / float64(agg.Checks)
}

// RenderWeakTargets prints baseline targets missed in the recent window.
func RenderWeakTargets(w io.Writer, aggs []model.TargetAggregate) error {
	weak := SelectWeakTargets(aggs, 0)
	if len(weak) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Missed baseline targets (windowed)"); err != nil {
		return err
	}
	rows := make([][]string, 0, len(weak))
	for _, agg := range weak {
		rows = append(rows, []string{
			agg.Metric,
			fmt.Sprintf("%d/%d", agg.Failures, agg.Checks),
			fmt.Sprintf("%.0f%%", missRate(agg)*100),
		})
	}
	for _, line := range formatTable([]string{"Metric", "Missed", "Rate"}, rows, map[int]bool{1: true, 2: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}
