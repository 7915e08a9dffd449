package recorder

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/synheart/synheart-stress/internal/models"
)

func record(seq int64, at time.Time, pct int) models.Record {
	snap := models.Snapshot{
		Sample: models.Sample{
			ID:        "s",
			Timestamp: at,
			Profile:   "default",
			HeartRate: 74,
			HRV:       models.Available(1.2),
		},
		Stress: models.StressResult{
			Scorer:     "minmax",
			RawScore:   models.Available(float64(pct) / 100),
			Percentage: pct,
			Level:      models.LevelMedium,
		},
	}
	return models.NewRecord("r", models.Source{Type: "simulator", ID: "test"},
		models.Session{RunID: "run", Profile: "default"}, snap, seq)
}

func writeRecording(t *testing.T, records ...models.Record) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.ndjson")
	rec, err := NewRecorder(path)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	for _, r := range records {
		if err := rec.Record(r); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return path
}

func TestRecorder_RoundTrip(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	path := writeRecording(t,
		record(0, start, 20),
		record(1, start.Add(time.Second), 40),
		record(2, start.Add(2*time.Second), 60),
	)

	got, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	for i, want := range []int{20, 40, 60} {
		if got[i].Snapshot.Stress.Percentage != want {
			t.Errorf("record %d percentage = %d, want %d", i, got[i].Snapshot.Stress.Percentage, want)
		}
		if got[i].Meta.Sequence != int64(i) {
			t.Errorf("record %d sequence = %d", i, got[i].Meta.Sequence)
		}
	}
	if v, ok := got[0].Snapshot.HRV.Get(); !ok || v != 1.2 {
		t.Errorf("HRV = %v, %v", v, ok)
	}
}

func TestRecorder_FromChannel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ch.ndjson")
	rec, err := NewRecorder(path)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	ch := make(chan models.Record, 4)
	now := time.Now()
	for i := 0; i < 4; i++ {
		ch <- record(int64(i), now.Add(time.Duration(i)*time.Second), i)
	}
	close(ch)

	seen := 0
	if err := rec.RecordFromChannel(context.Background(), ch, func(models.Record) { seen++ }); err != nil {
		t.Fatalf("RecordFromChannel: %v", err)
	}
	if seen != 4 || rec.Count() != 4 {
		t.Errorf("seen=%d count=%d, want 4", seen, rec.Count())
	}
	if err := rec.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	replayer := NewReplayer(path, 1, false)
	n, err := replayer.CountRecords()
	if err != nil || n != 4 {
		t.Errorf("CountRecords = %d, %v", n, err)
	}
}

func TestReplayer_SpeedAndSourceType(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	path := writeRecording(t,
		record(0, start, 10),
		record(1, start.Add(time.Second), 20),
		record(2, start.Add(2*time.Second), 30),
	)

	// 2s of recorded time at 20x is ~100ms.
	replayer := NewReplayer(path, 20, false)
	out := make(chan models.Record, 10)

	began := time.Now()
	if err := replayer.Replay(context.Background(), out); err != nil {
		t.Fatalf("Replay: %v", err)
	}
	elapsed := time.Since(began)
	close(out)

	if elapsed < 80*time.Millisecond || elapsed > time.Second {
		t.Errorf("replay took %v", elapsed)
	}
	count := 0
	for rec := range out {
		count++
		if rec.Source.Type != "replay" {
			t.Errorf("source type = %q", rec.Source.Type)
		}
	}
	if count != 3 {
		t.Errorf("expected 3 records, got %d", count)
	}
}

func TestReplayer_LoopStopsOnCancel(t *testing.T) {
	start := time.Now()
	path := writeRecording(t, record(0, start, 10), record(1, start.Add(10*time.Millisecond), 20))

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan models.Record)
	done := make(chan error, 1)
	go func() {
		done <- NewReplayer(path, 1, true).Replay(ctx, out)
	}()

	// Two passes prove the loop restarts.
	for i := 0; i < 4; i++ {
		select {
		case <-out:
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for record %d", i)
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("replay did not stop")
	}
}

func TestReplayer_Errors(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.ndjson")
	os.WriteFile(empty, nil, 0o644)
	if err := NewReplayer(empty, 1, false).Replay(context.Background(), make(chan models.Record, 1)); err == nil {
		t.Error("expected error for empty recording")
	}
	if _, err := NewReplayer(empty, 1, false).FirstRecord(); err == nil {
		t.Error("expected error for empty first record")
	}

	bad := filepath.Join(dir, "bad.ndjson")
	os.WriteFile(bad, []byte("{not json}\n"), 0o644)
	if _, err := ReadAll(bad); err == nil {
		t.Error("expected parse error")
	}

	if _, err := NewReplayer(filepath.Join(dir, "missing"), 1, false).CountRecords(); err == nil {
		t.Error("expected error for missing file")
	}
}
