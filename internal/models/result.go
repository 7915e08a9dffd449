package models

// StressLevel is a discrete stress label. The min-max scorer uses
// rest/low/medium/high, the z-score scorer low/moderate/high.
type StressLevel string

const (
	LevelCalculating StressLevel = "calculating"
	LevelRest        StressLevel = "rest"
	LevelLow         StressLevel = "low"
	LevelMedium      StressLevel = "medium"
	LevelModerate    StressLevel = "moderate"
	LevelHigh        StressLevel = "high"
)

// LoadLevel is a discrete cognitive load label.
type LoadLevel string

const (
	LoadLow      LoadLevel = "low"
	LoadModerate LoadLevel = "moderate"
	LoadHigh     LoadLevel = "high"
	LoadVeryHigh LoadLevel = "very high"
)

// Trend classifies the direction of recent stress scores.
type Trend string

const (
	TrendStable     Trend = "stable"
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
)

// TrendResult is the output of a least-squares fit over score history.
// ChangeRate is the slope in percentage points per second.
type TrendResult struct {
	Trend      Trend   `json:"trend"`
	ChangeRate float64 `json:"change_rate"`
	Points     int     `json:"points"`
}

// StressResult is recomputed on every tick.
type StressResult struct {
	Scorer     string       `json:"scorer"`
	RawScore   Reading      `json:"raw_score"`
	Percentage int          `json:"percentage"`
	Level      StressLevel  `json:"level"`
	Trend      *TrendResult `json:"trend,omitempty"`
}

// CognitiveLoadResult is the z-score based load index. Index is unbounded,
// typically within -4..4.
type CognitiveLoadResult struct {
	Index float64   `json:"index"`
	Level LoadLevel `json:"level"`
}
