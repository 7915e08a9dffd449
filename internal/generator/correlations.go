package generator

import (
	"github.com/synheart/synheart-stress/internal/models"
	"github.com/synheart/synheart-stress/internal/profile"
)

// applyCorrelations nudges independently generated signals towards
// physiologically consistent combinations.
func applyCorrelations(s *models.RawSample) {
	hr := scalarSignals[profile.SignalHR]
	hrv := scalarSignals[profile.SignalHRV]
	pupil := scalarSignals[profile.SignalPupil]

	// HR ↔ motion: above ~11 m/s² the subject is moving and HR rises.
	if mag := s.Motion.Magnitude(); mag > 11.0 {
		s.HeartRate = clamp(s.HeartRate+(mag-11.0)*2.0, hr.min, hr.max)
	}

	// HRV ↔ EDA: elevated arousal suppresses variability.
	if s.EDA > 4.0 {
		factor := 1.0 - (s.EDA-4.0)*0.05
		if factor < 0.6 {
			factor = 0.6
		}
		s.HRV = clamp(s.HRV*factor, hrv.min, hrv.max)

		// Pupils dilate with sympathetic arousal.
		if p, ok := s.PupilSize.Get(); ok {
			s.PupilSize = models.Available(clamp(p+(s.EDA-4.0)*0.1, pupil.min, pupil.max))
		}
	}
}
