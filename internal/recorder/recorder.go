package recorder

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/synheart/synheart-stress/internal/models"
)

// Recorder appends records to an NDJSON file, one record per line.
type Recorder struct {
	file   *os.File
	writer *bufio.Writer
	count  int
	mu     sync.Mutex
}

// NewRecorder creates (or truncates) filename.
func NewRecorder(filename string) (*Recorder, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording file: %w", err)
	}

	return &Recorder{
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

// Record writes one record followed by a newline.
func (r *Recorder) Record(rec models.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", rec.RecordID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := r.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	r.count++
	return nil
}

// Count returns the number of records written so far.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// RecordFromChannel writes records until the channel closes or ctx is
// cancelled, then closes the file.
func (r *Recorder) RecordFromChannel(ctx context.Context, records <-chan models.Record, onEntry func(models.Record)) error {
	for {
		select {
		case <-ctx.Done():
			return r.Close()
		case rec, ok := <-records:
			if !ok {
				return r.Close()
			}
			if err := r.Record(rec); err != nil {
				r.Close()
				return err
			}
			if onEntry != nil {
				onEntry(rec)
			}
		}
	}
}

// Flush flushes the buffer to disk
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writer.Flush()
}

// Close flushes and closes the recorder. Calling it twice is safe.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	file := r.file
	r.file = nil

	if err := r.writer.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("failed to flush buffer: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	return nil
}
