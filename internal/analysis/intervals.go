package analysis

import (
	"fmt"
	"sort"
	"time"

	"github.com/thesavant42/snapshot-scout/internal/models"
)

const (
	maxConfidence = 95
	maxWindows    = 3
	periodLayout  = "Jan 2, 2006"
)

// windowBase is the duration-driven starting point for a window
type windowBase struct {
	maxDays    int // exclusive upper bound, 0 = unbounded
	kind       string
	confidence int
}

var durationBuckets = []windowBase{
	{maxDays: 30, kind: models.WindowRapidIteration, confidence: 85},
	{maxDays: 90, kind: models.WindowMonthlyOptimization, confidence: 70},
	{maxDays: 180, kind: models.WindowSeasonalUpdate, confidence: 60},
	{maxDays: 0, kind: models.WindowUnknown, confidence: 50},
}

// changeOverrides adjust a window by the change type of its later snapshot
var changeOverrides = map[models.ChangeType]struct {
	kind  string
	bonus int
}{
	models.ChangeRecent:      {models.WindowContinuousOptimization, 10},
	models.ChangeSignificant: {models.WindowMajorABTest, 15},
	models.ChangeMajor:       {models.WindowFullRedesign, 20},
}

// AnalyzeIntervals walks records in ascending capture order and infers an
// experiment window for each consecutive pair. Only the most recent windows
// (at most three) are returned, oldest first.
func AnalyzeIntervals(records []models.SnapshotRecord) []models.ExperimentWindow {
	if len(records) < 2 {
		return nil
	}

	asc := make([]models.SnapshotRecord, len(records))
	copy(asc, records)
	sort.SliceStable(asc, func(i, j int) bool {
		return asc[i].Timestamp < asc[j].Timestamp
	})

	var windows []models.ExperimentWindow
	for i := 1; i < len(asc); i++ {
		w, err := buildWindow(asc[i-1], asc[i])
		if err != nil {
			continue
		}
		windows = append(windows, w)
	}

	if len(windows) > maxWindows {
		windows = windows[len(windows)-maxWindows:]
	}
	return windows
}

func buildWindow(prev, curr models.SnapshotRecord) (models.ExperimentWindow, error) {
	from, err := ParseTimestamp(prev.Timestamp)
	if err != nil {
		return models.ExperimentWindow{}, err
	}
	to, err := ParseTimestamp(curr.Timestamp)
	if err != nil {
		return models.ExperimentWindow{}, err
	}

	days := DaysBetween(from, to)
	if days < 0 {
		days = 0
	}

	base := bucketFor(days)
	kind, confidence := base.kind, base.confidence
	if o, ok := changeOverrides[curr.ChangeType]; ok {
		kind = o.kind
		confidence += o.bonus
	}

	return models.ExperimentWindow{
		From:            prev,
		To:              curr,
		Period:          formatPeriod(from, to, days),
		Type:            kind,
		Confidence:      clampConfidence(confidence),
		DaysDuration:    days,
		EstimatedImpact: ImpactFor(days),
	}, nil
}

func bucketFor(days int) windowBase {
	for _, b := range durationBuckets {
		if b.maxDays == 0 || days < b.maxDays {
			return b
		}
	}
	return durationBuckets[len(durationBuckets)-1]
}

// ImpactFor derives the estimated impact of a window from its length alone
func ImpactFor(days int) string {
	switch {
	case days < 30:
		return models.ImpactHigh
	case days < 90:
		return models.ImpactMedium
	default:
		return models.ImpactLow
	}
}

func clampConfidence(c int) int {
	if c > maxConfidence {
		return maxConfidence
	}
	if c < 0 {
		return 0
	}
	return c
}

func formatPeriod(from, to time.Time, days int) string {
	unit := "days"
	if days == 1 {
		unit = "day"
	}
	return fmt.Sprintf("%s - %s (%d %s)", from.Format(periodLayout), to.Format(periodLayout), days, unit)
}
