package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestJSONHandlerAndSetLevel(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWriter(&buf, "warn", "json"); err != nil {
		t.Fatalf("InitWriter() error = %v", err)
	}

	L().Info("pipeline: dropped")
	if buf.Len() != 0 {
		t.Fatalf("info written at warn level: %s", buf.String())
	}

	if err := SetLevel("debug"); err != nil {
		t.Fatal(err)
	}
	L().Debug("pipeline: tick", "seq", 7)

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if entry["msg"] != "pipeline: tick" || entry["seq"] != float64(7) {
		t.Errorf("entry = %v", entry)
	}
	if Level() != slog.LevelDebug {
		t.Errorf("Level() = %v, want debug", Level())
	}
}

func TestInitRejectsUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWriter(&buf, "info", "xml"); err == nil || !strings.Contains(err.Error(), "xml") {
		t.Errorf("expected unknown format error, got %v", err)
	}
}
