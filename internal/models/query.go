package models

import (
	"strconv"
	"time"
)

// MaxRangeSeconds caps range and trend queries.
const MaxRangeSeconds = 24 * 60 * 60

// ValidationError represents an invalid query parameter
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ParseSeconds validates a positive whole-second window such as the
// "seconds" query parameter of range and trend requests.
func ParseSeconds(field, raw string) (time.Duration, error) {
	if raw == "" {
		return 0, &ValidationError{Field: field, Message: "is required"}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ValidationError{Field: field, Message: "must be an integer"}
	}
	if n <= 0 {
		return 0, &ValidationError{Field: field, Message: "must be positive"}
	}
	if n > MaxRangeSeconds {
		return 0, &ValidationError{Field: field, Message: "must not exceed " + strconv.Itoa(MaxRangeSeconds)}
	}
	return time.Duration(n) * time.Second, nil
}

// HistoryResponse is returned by history and range queries, oldest first.
type HistoryResponse struct {
	From      string     `json:"from,omitempty"`
	To        string     `json:"to,omitempty"`
	Count     int        `json:"count"`
	Snapshots []Snapshot `json:"snapshots"`
}

// NewHistoryResponse builds a response covering the given snapshots.
func NewHistoryResponse(snaps []Snapshot) HistoryResponse {
	if snaps == nil {
		snaps = []Snapshot{}
	}
	resp := HistoryResponse{Count: len(snaps), Snapshots: snaps}
	if len(snaps) > 0 {
		resp.From = snaps[0].Timestamp.UTC().Format(time.RFC3339Nano)
		resp.To = snaps[len(snaps)-1].Timestamp.UTC().Format(time.RFC3339Nano)
	}
	return resp
}
