package encoding

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/synheart/synheart-stress/internal/models"
)

// ProtobufEncoder encodes records as a google.protobuf.Struct with the same
// field names as the JSON encoding.
type ProtobufEncoder struct{}

func NewProtobufEncoder() *ProtobufEncoder {
	return &ProtobufEncoder{}
}

func (e *ProtobufEncoder) Encode(rec models.Record) ([]byte, error) {
	pb, err := RecordToProto(rec)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(pb)
}

func (e *ProtobufEncoder) ContentType() string {
	return "application/x-protobuf"
}

// RecordToProto converts a record to a protobuf Struct.
func RecordToProto(r models.Record) (*structpb.Struct, error) {
	pb, err := structpb.NewStruct(map[string]interface{}{
		"schema_version": r.SchemaVersion,
		"record_id":      r.RecordID,
		"ts":             r.Timestamp,
		"source": map[string]interface{}{
			"type": r.Source.Type,
			"id":   r.Source.ID,
		},
		"session": map[string]interface{}{
			"run_id":  r.Session.RunID,
			"profile": r.Session.Profile,
			"seed":    r.Session.Seed,
		},
		"snapshot": snapshotFields(r.Snapshot),
		"meta": map[string]interface{}{
			"sequence": r.Meta.Sequence,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build protobuf struct: %w", err)
	}
	return pb, nil
}

func snapshotFields(s models.Snapshot) map[string]interface{} {
	stress := map[string]interface{}{
		"scorer":     s.Stress.Scorer,
		"raw_score":  readingValue(s.Stress.RawScore),
		"percentage": s.Stress.Percentage,
		"level":      string(s.Stress.Level),
	}
	if t := s.Stress.Trend; t != nil {
		stress["trend"] = map[string]interface{}{
			"trend":       string(t.Trend),
			"change_rate": t.ChangeRate,
			"points":      t.Points,
		}
	}

	fields := map[string]interface{}{
		"id":           s.ID,
		"timestamp":    s.Timestamp.UTC().Format(time.RFC3339Nano),
		"profile":      s.Profile,
		"hr":           s.HeartRate,
		"eda":          s.EDA,
		"rr":           s.RespiratoryRate,
		"hrv":          readingValue(s.HRV),
		"eye_movement": readingValue(s.EyeMovement),
		"pupil_size":   readingValue(s.PupilSize),
		"motion": map[string]interface{}{
			"x": s.Motion.X,
			"y": s.Motion.Y,
			"z": s.Motion.Z,
		},
		"stress": stress,
	}
	if cl := s.CognitiveLoad; cl != nil {
		fields["cognitive_load"] = map[string]interface{}{
			"index": cl.Index,
			"level": string(cl.Level),
		}
	}
	return fields
}

// readingValue mirrors Reading's JSON form.
func readingValue(r models.Reading) interface{} {
	if v, ok := r.Get(); ok {
		return v
	}
	return models.Calculating
}
