package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/synheart/synheart-stress/internal/models"
)

// ProfileSource serves a named profile without a window: every call draws a
// fresh raw sample and scores it. HRV is the source's raw value since there
// is no history to estimate from.
type ProfileSource struct {
	name   string
	eval   evaluator
	clock  func() time.Time
	mu     sync.Mutex
	source Source
}

func newProfileSource(name string, source Source, eval evaluator, clock func() time.Time) *ProfileSource {
	return &ProfileSource{name: name, source: source, eval: eval, clock: clock}
}

// Current computes a new snapshot.
func (p *ProfileSource) Current() models.Snapshot {
	now := p.clock()

	p.mu.Lock()
	raw := p.source.Next(now)
	p.mu.Unlock()

	ts := raw.Timestamp
	if ts.IsZero() {
		ts = now
	}

	return p.eval.evaluate(models.Sample{
		ID:              uuid.NewString(),
		Timestamp:       ts,
		Profile:         p.name,
		HeartRate:       raw.HeartRate,
		EDA:             raw.EDA,
		RespiratoryRate: raw.RespiratoryRate,
		HRV:             models.Available(raw.HRV),
		EyeMovement:     raw.EyeMovement,
		PupilSize:       raw.PupilSize,
		Motion:          raw.Motion,
	})
}
