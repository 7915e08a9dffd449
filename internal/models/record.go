package models

import "time"

// SchemaVersion identifies the record envelope format.
const SchemaVersion = "synheart.stress.v1"

// Record is the envelope broadcast for every computed snapshot.
type Record struct {
	SchemaVersion string   `json:"schema_version"`
	RecordID      string   `json:"record_id"`
	Timestamp     string   `json:"ts"`
	Source        Source   `json:"source"`
	Session       Session  `json:"session"`
	Snapshot      Snapshot `json:"snapshot"`
	Meta          Meta     `json:"meta"`
}

// Source represents the origin of the telemetry
type Source struct {
	Type string `json:"type"` // "simulator" or "replay"
	ID   string `json:"id"`
}

// Session contains metadata about the generating run
type Session struct {
	RunID   string `json:"run_id"`
	Profile string `json:"profile"`
	Seed    int64  `json:"seed"`
}

// Meta contains additional record metadata
type Meta struct {
	Sequence int64 `json:"sequence"`
}

// NewRecord wraps a snapshot, stamping it with the snapshot's own time.
func NewRecord(recordID string, source Source, session Session, snap Snapshot, sequence int64) Record {
	ts := snap.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return Record{
		SchemaVersion: SchemaVersion,
		RecordID:      recordID,
		Timestamp:     ts.UTC().Format(time.RFC3339Nano),
		Source:        source,
		Session:       session,
		Snapshot:      snap,
		Meta: Meta{
			Sequence: sequence,
		},
	}
}
