package recorder

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/synheart/synheart-stress/internal/models"
)

const maxLine = 1 << 20

// Replayer reads records from an NDJSON file and re-emits them with their
// original spacing, scaled by speed.
type Replayer struct {
	filename    string
	speed       float64
	loop        bool
	recordCount int
	firstRecord *models.Record
	loaded      bool
}

// NewReplayer creates a new replayer. A non-positive speed means 1.
func NewReplayer(filename string, speed float64, loop bool) *Replayer {
	if speed <= 0 {
		speed = 1
	}
	return &Replayer{
		filename: filename,
		speed:    speed,
		loop:     loop,
	}
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	return scanner
}

// loadMetadata reads the file once to cache count and first record
func (r *Replayer) loadMetadata() error {
	if r.loaded {
		return nil
	}

	file, err := os.Open(r.filename)
	if err != nil {
		return fmt.Errorf("failed to open recording file: %w", err)
	}
	defer file.Close()

	scanner := newScanner(file)
	r.recordCount = 0

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		r.recordCount++
		if r.recordCount == 1 {
			var rec models.Record
			if err := json.Unmarshal(line, &rec); err != nil {
				return fmt.Errorf("failed to parse first record: %w", err)
			}
			r.firstRecord = &rec
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading file: %w", err)
	}

	r.loaded = true
	return nil
}

// Replay sends records to output until the file ends (or forever when
// looping). Source.Type is rewritten to "replay".
func (r *Replayer) Replay(ctx context.Context, output chan<- models.Record) error {
	for {
		if err := r.replayOnce(ctx, output); err != nil {
			return err
		}

		if !r.loop {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

func (r *Replayer) replayOnce(ctx context.Context, output chan<- models.Record) error {
	file, err := os.Open(r.filename)
	if err != nil {
		return fmt.Errorf("failed to open recording file: %w", err)
	}
	defer file.Close()

	scanner := newScanner(file)
	var last time.Time
	lineNum := 0
	sent := 0

	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var rec models.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("failed to parse record at line %d: %w", lineNum, err)
		}

		ts, err := time.Parse(time.RFC3339Nano, rec.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to parse timestamp at line %d: %w", lineNum, err)
		}

		if sent > 0 {
			delay := time.Duration(float64(ts.Sub(last)) / r.speed)
			if delay > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(delay):
				}
			}
		}
		last = ts

		rec.Source.Type = "replay"
		select {
		case <-ctx.Done():
			return ctx.Err()
		case output <- rec:
		}
		sent++
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading file: %w", err)
	}
	if sent == 0 {
		return fmt.Errorf("recording %s is empty", r.filename)
	}
	return nil
}

// CountRecords returns the number of records in the recording
func (r *Replayer) CountRecords() (int, error) {
	if err := r.loadMetadata(); err != nil {
		return 0, err
	}
	return r.recordCount, nil
}

// FirstRecord returns the first record in the recording
func (r *Replayer) FirstRecord() (*models.Record, error) {
	if err := r.loadMetadata(); err != nil {
		return nil, err
	}
	if r.firstRecord == nil {
		return nil, fmt.Errorf("recording file is empty")
	}
	return r.firstRecord, nil
}

// ReadAll loads every record in filename.
func ReadAll(filename string) ([]models.Record, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording file: %w", err)
	}
	defer file.Close()

	var records []models.Record
	scanner := newScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec models.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("failed to parse record at line %d: %w", lineNum, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	return records, nil
}
