package stats

import (
	"context"

	"github.com/Icosa2050/assess-speaking/internal/model"
	"github.com/Icosa2050/assess-speaking/internal/store"
)

// Report contains precomputed data for history rendering.
type Report struct {
	Records       []model.AssessmentRecord
	Summary       Summary
	WindowIDs     []int64
	TargetsWindow []model.TargetAggregate
}

// BuildReport loads and prepares data for history rendering.
func BuildReport(ctx context.Context, st *store.Store, filter model.HistoryFilter) (Report, error) {
	records, err := st.ListAssessments(ctx, filter)
	if err != nil {
		return Report{}, err
	}
	if filter.Last > 0 && len(records) > filter.Last {
		records = records[len(records)-filter.Last:]
	}

	windowIDs := lastIDs(records, filter.CurveWindow)
	targets, err := st.ListTargetAggregates(ctx, windowIDs)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Records:       records,
		Summary:       Summarise(records),
		WindowIDs:     windowIDs,
		TargetsWindow: targets,
	}, nil
}

func recordIDs(records []model.AssessmentRecord) []int64 {
	ids := make([]int64, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}

func lastIDs(records []model.AssessmentRecord, window int) []int64 {
	if window <= 0 || len(records) <= window {
		return recordIDs(records)
	}
	return recordIDs(records[len(records)-window:])
}
