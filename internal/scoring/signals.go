package scoring

import (
	"errors"
	"math"

	"github.com/synheart/synheart-stress/internal/models"
)

// ErrMissingBaseline is wrapped by every MissingBaselineError.
var ErrMissingBaseline = errors.New("missing baseline")

// MissingBaselineError reports a signal whose population baseline is absent
// or unusable. It is a configuration error, not a per-request one.
type MissingBaselineError struct {
	Signal string
}

func (e *MissingBaselineError) Error() string {
	return "missing baseline for " + e.Signal
}

func (e *MissingBaselineError) Unwrap() error {
	return ErrMissingBaseline
}

// Signals is the scorer input. Any field may be unavailable.
type Signals struct {
	HeartRate       models.Reading
	EDA             models.Reading
	HRV             models.Reading
	RespiratoryRate models.Reading
	EyeMovement     models.Reading
	PupilSize       models.Reading
	Motion          models.Vector3
}

// SignalsFromSample extracts scorer inputs from a smoothed sample.
func SignalsFromSample(s models.Sample) Signals {
	return Signals{
		HeartRate:       models.Available(s.HeartRate),
		EDA:             models.Available(s.EDA),
		HRV:             s.HRV,
		RespiratoryRate: models.Available(s.RespiratoryRate),
		EyeMovement:     s.EyeMovement,
		PupilSize:       s.PupilSize,
		Motion:          s.Motion,
	}
}

// Baseline is a population mean and standard deviation for one signal.
type Baseline struct {
	Mean float64 `yaml:"mean" toml:"mean" json:"mean"`
	Std  float64 `yaml:"std" toml:"std" json:"std"`
}

// Z returns the z-score of v against the baseline.
func (b Baseline) Z(v float64) float64 {
	return (v - b.Mean) / b.Std
}

func (b Baseline) usable() bool {
	return b.Std > 0 && !math.IsNaN(b.Mean) && !math.IsInf(b.Std, 0)
}

// Baselines holds the population statistics used for z-score normalisation.
// It is loaded once per process and never mutated.
type Baselines struct {
	EDA             Baseline `yaml:"eda" toml:"eda" json:"eda"`
	HeartRate       Baseline `yaml:"hr" toml:"hr" json:"hr"`
	HRV             Baseline `yaml:"hrv" toml:"hrv" json:"hrv"`
	RespiratoryRate Baseline `yaml:"rr" toml:"rr" json:"rr"`
	EyeMovement     Baseline `yaml:"eye" toml:"eye" json:"eye"`
	PupilSize       Baseline `yaml:"pupil" toml:"pupil" json:"pupil"`
}

// DefaultBaselines returns the built-in population baselines.
func DefaultBaselines() Baselines {
	return Baselines{
		EDA:             Baseline{Mean: 2.5, Std: 1.0},
		HeartRate:       Baseline{Mean: 75, Std: 10},
		HRV:             Baseline{Mean: 1.5, Std: 0.5},
		RespiratoryRate: Baseline{Mean: 14, Std: 3},
		EyeMovement:     Baseline{Mean: 0.5, Std: 0.15},
		PupilSize:       Baseline{Mean: 4.0, Std: 0.8},
	}
}

// IsZero reports whether no baseline was configured at all.
func (b Baselines) IsZero() bool {
	return b == Baselines{}
}

// Validate requires all six baselines.
func (b Baselines) Validate() error {
	named := []struct {
		name string
		b    Baseline
	}{
		{"eda", b.EDA},
		{"hr", b.HeartRate},
		{"hrv", b.HRV},
		{"rr", b.RespiratoryRate},
		{"eye", b.EyeMovement},
		{"pupil", b.PupilSize},
	}
	for _, n := range named {
		if !n.b.usable() {
			return &MissingBaselineError{Signal: n.name}
		}
	}
	return nil
}
