package generator

import (
	"time"

	"github.com/synheart/synheart-stress/internal/models"
)

// Summary aggregates a run of snapshots.
type Summary struct {
	Samples    int                        `json:"samples"`
	From       time.Time                  `json:"from"`
	To         time.Time                  `json:"to"`
	MeanHR     float64                    `json:"mean_hr"`
	MeanEDA    float64                    `json:"mean_eda"`
	MeanRR     float64                    `json:"mean_rr"`
	MeanHRV    models.Reading             `json:"mean_hrv"`
	MeanStress float64                    `json:"mean_stress"`
	PeakStress int                        `json:"peak_stress"`
	Levels     map[models.StressLevel]int `json:"levels"`
	LoadLevels map[models.LoadLevel]int   `json:"load_levels,omitempty"`
}

// Aggregator collects snapshots for a Summary.
type Aggregator struct {
	count      int
	from, to   time.Time
	sumHR      float64
	sumEDA     float64
	sumRR      float64
	sumHRV     float64
	hrvCount   int
	sumStress  float64
	peak       int
	levels     map[models.StressLevel]int
	loadLevels map[models.LoadLevel]int
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		levels:     make(map[models.StressLevel]int),
		loadLevels: make(map[models.LoadLevel]int),
	}
}

func (a *Aggregator) Add(snap models.Snapshot) {
	if a.count == 0 || snap.Timestamp.Before(a.from) {
		a.from = snap.Timestamp
	}
	if snap.Timestamp.After(a.to) {
		a.to = snap.Timestamp
	}
	a.count++

	a.sumHR += snap.HeartRate
	a.sumEDA += snap.EDA
	a.sumRR += snap.RespiratoryRate
	if v, ok := snap.HRV.Get(); ok {
		a.sumHRV += v
		a.hrvCount++
	}

	a.sumStress += float64(snap.Stress.Percentage)
	if snap.Stress.Percentage > a.peak {
		a.peak = snap.Stress.Percentage
	}
	a.levels[snap.Stress.Level]++
	if snap.CognitiveLoad != nil {
		a.loadLevels[snap.CognitiveLoad.Level]++
	}
}

// Summary returns the aggregate so far. Means are zero for an empty run.
func (a *Aggregator) Summary() Summary {
	s := Summary{
		Samples:    a.count,
		From:       a.from,
		To:         a.to,
		PeakStress: a.peak,
		Levels:     make(map[models.StressLevel]int, len(a.levels)),
		LoadLevels: make(map[models.LoadLevel]int, len(a.loadLevels)),
	}
	for k, v := range a.levels {
		s.Levels[k] = v
	}
	for k, v := range a.loadLevels {
		s.LoadLevels[k] = v
	}
	if a.count == 0 {
		return s
	}

	n := float64(a.count)
	s.MeanHR = a.sumHR / n
	s.MeanEDA = a.sumEDA / n
	s.MeanRR = a.sumRR / n
	s.MeanStress = a.sumStress / n
	if a.hrvCount > 0 {
		s.MeanHRV = models.Available(a.sumHRV / float64(a.hrvCount))
	}
	return s
}
