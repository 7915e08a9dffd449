package models

import (
	"math"
	"time"
)

// Vector3 is a 3-axis acceleration in m/s².
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Magnitude returns the Euclidean norm of the vector.
func (v Vector3) Magnitude() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// RawSample holds unsmoothed readings produced by the sensor source.
type RawSample struct {
	Timestamp       time.Time
	HeartRate       float64 // bpm
	EDA             float64 // µS
	RespiratoryRate float64 // breaths/min
	HRV             float64 // index, ~0–3.5
	EyeMovement     Reading // 0–1
	PupilSize       Reading // mm
	Motion          Vector3
}

// Sample is a smoothed reading. HRV is unavailable until the estimator has
// enough history.
type Sample struct {
	ID              string    `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	Profile         string    `json:"profile"`
	HeartRate       float64   `json:"hr"`
	EDA             float64   `json:"eda"`
	RespiratoryRate float64   `json:"rr"`
	HRV             Reading   `json:"hrv"`
	EyeMovement     Reading   `json:"eye_movement"`
	PupilSize       Reading   `json:"pupil_size"`
	Motion          Vector3   `json:"motion"`
}

// Snapshot is a sample together with the results derived from it.
type Snapshot struct {
	Sample
	Stress        StressResult         `json:"stress"`
	CognitiveLoad *CognitiveLoadResult `json:"cognitive_load,omitempty"`
}
