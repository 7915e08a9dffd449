package encoding

import (
	"encoding/json"
	"fmt"

	"github.com/synheart/synheart-stress/internal/models"
)

// Format represents the encoding format
type Format string

const (
	FormatJSON     Format = "json"
	FormatProtobuf Format = "protobuf"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatProtobuf:
		return FormatProtobuf, nil
	default:
		return "", fmt.Errorf("unknown encoding %q (supported: json, protobuf)", s)
	}
}

// Encoder encodes records to bytes
type Encoder interface {
	Encode(rec models.Record) ([]byte, error)
	ContentType() string
}

// JSONEncoder encodes records as JSON
type JSONEncoder struct{}

func NewJSONEncoder() *JSONEncoder {
	return &JSONEncoder{}
}

func (e *JSONEncoder) Encode(rec models.Record) ([]byte, error) {
	return json.Marshal(rec)
}

func (e *JSONEncoder) ContentType() string {
	return "application/json"
}

// NewEncoder creates an encoder for the given format
func NewEncoder(format Format) Encoder {
	switch format {
	case FormatProtobuf:
		return NewProtobufEncoder()
	default:
		return NewJSONEncoder()
	}
}
