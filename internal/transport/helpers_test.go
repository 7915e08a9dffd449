package transport

import (
	"time"

	"github.com/synheart/synheart-stress/internal/models"
)

func testRecord(id string, pct int) models.Record {
	snap := models.Snapshot{
		Sample: models.Sample{
			ID:        id,
			Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			Profile:   "default",
			HeartRate: 75,
			EDA:       2,
			HRV:       models.Unavailable,
		},
		Stress: models.StressResult{
			Scorer:     "minmax",
			RawScore:   models.Available(float64(pct) / 100),
			Percentage: pct,
			Level:      models.LevelMedium,
		},
	}
	return models.NewRecord(id, models.Source{Type: "simulator", ID: "test"},
		models.Session{RunID: "run", Profile: "default", Seed: 1}, snap, 0)
}
