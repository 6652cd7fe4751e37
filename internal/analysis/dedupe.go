package analysis

import (
	"sort"

	"github.com/thesavant42/snapshot-scout/internal/models"
)

// DefaultMaxResults caps the number of snapshots returned per analysis
const DefaultMaxResults = 50

const yearMonthLen = 6

// DedupeByMonth sorts records newest first and keeps only the most recent
// capture of each calendar month, then truncates to maxResults (DefaultMaxResults
// when maxResults <= 0). The input slice is not modified.
func DedupeByMonth(records []models.SnapshotRecord, maxResults int) []models.SnapshotRecord {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	sorted := make([]models.SnapshotRecord, len(records))
	copy(sorted, records)
	// Fixed-width zero-padded timestamps sort correctly as strings
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp > sorted[j].Timestamp
	})

	seen := make(map[string]struct{}, len(sorted))
	out := make([]models.SnapshotRecord, 0, min(len(sorted), maxResults))
	for _, r := range sorted {
		if len(r.Timestamp) < yearMonthLen {
			continue
		}
		month := r.Timestamp[:yearMonthLen]
		if _, ok := seen[month]; ok {
			continue
		}
		seen[month] = struct{}{}
		out = append(out, r)
		if len(out) == maxResults {
			break
		}
	}
	return out
}
