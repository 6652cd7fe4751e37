package models

import "time"

// ChangeType is a coarse recency label assigned to a snapshot relative to the
// moment of analysis. It says nothing about how much the page actually changed.
type ChangeType string

const (
	ChangeRecent      ChangeType = "recent"
	ChangeModerate    ChangeType = "moderate"
	ChangeSignificant ChangeType = "significant"
	ChangeMajor       ChangeType = "major"
	ChangeHistorical  ChangeType = "historical"
)

// SnapshotRecord represents one archived capture of a page
type SnapshotRecord struct {
	Timestamp   string     `json:"timestamp"` // 14-digit format: YYYYMMDDhhmmss
	OriginalURL string     `json:"originalUrl"`
	StatusCode  string     `json:"statusCode"` // "200", "301" or "-"
	ArchiveURL  string     `json:"archiveUrl"`
	ChangeType  ChangeType `json:"changeType"`
}

// Window types inferred by interval analysis
const (
	WindowRapidIteration         = "rapid_iteration"
	WindowMonthlyOptimization    = "monthly_optimization"
	WindowSeasonalUpdate         = "seasonal_update"
	WindowContinuousOptimization = "continuous_optimization"
	WindowMajorABTest            = "major_ab_test"
	WindowFullRedesign           = "full_redesign"
	WindowUnknown                = "unknown"
)

// Impact levels
const (
	ImpactHigh   = "high"
	ImpactMedium = "medium"
	ImpactLow    = "low"
)

// ExperimentWindow is an inferred interval between two consecutive snapshots
type ExperimentWindow struct {
	From            SnapshotRecord `json:"from"`
	To              SnapshotRecord `json:"to"`
	Period          string         `json:"period"`
	Type            string         `json:"type"`
	Confidence      int            `json:"confidence"` // 0..95
	DaysDuration    int            `json:"daysDuration"`
	EstimatedImpact string         `json:"estimatedImpact"`
}

// VariantAttempt records the outcome of querying a single variant
type VariantAttempt struct {
	Variant    string `json:"variant"`
	Records    int    `json:"records"`
	DurationMs int64  `json:"durationMs"`
	Error      string `json:"error,omitempty"`
}

// VariantResult is the outcome of a first-success query over ordered variants.
// An empty Variant means no variant produced a usable record.
type VariantResult struct {
	Variant  string
	Records  []SnapshotRecord
	Attempts []VariantAttempt
}

// Found reports whether a variant produced at least one record
func (r VariantResult) Found() bool {
	return r.Variant != "" && len(r.Records) > 0
}

// Data source tags
const (
	DataSourceWayback = "wayback_cdx"
	DataSourceNoData  = "no_data_found"
)

// Analysis quality levels
const (
	QualityHigh   = "high"
	QualityMedium = "medium"
	QualityLow    = "low"
)

// DiscoveryResult is the response payload for a single URL analysis
type DiscoveryResult struct {
	URL                 string             `json:"url"`
	Available           bool               `json:"available"`
	HistoricalSnapshots []SnapshotRecord   `json:"historicalSnapshots"`
	AnalysisQuality     string             `json:"analysisQuality"`
	DataSource          string             `json:"dataSource"`
	SuccessfulURL       string             `json:"successfulUrl,omitempty"`
	Error               string             `json:"error,omitempty"`
	RootDomain          string             `json:"rootDomain,omitempty"`
	VariantsTried       []VariantAttempt   `json:"variantsTried"`
	ExperimentWindows   []ExperimentWindow `json:"experimentWindows,omitempty"`
	AnalyzedAt          time.Time          `json:"analyzedAt"`
}
