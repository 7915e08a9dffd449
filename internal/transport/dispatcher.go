package transport

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/synheart/synheart-stress/internal/models"
)

// Dispatcher copies records from one source to multiple subscribers.
// When a subscriber's buffer is full the record is dropped for that
// subscriber so a slow client never stalls the pipeline.
type Dispatcher struct {
	source       <-chan models.Record
	subscribers  []chan models.Record
	bufferSize   int
	mu           sync.Mutex
	droppedTotal int64
	onDrop       func(int)
}

func NewDispatcher(source <-chan models.Record, bufferSize int) *Dispatcher {
	return &Dispatcher{
		source:      source,
		subscribers: make([]chan models.Record, 0),
		bufferSize:  bufferSize,
	}
}

// OnDrop registers a callback invoked with the number of subscribers that
// missed a record. Must be set before Run.
func (d *Dispatcher) OnDrop(fn func(int)) {
	d.onDrop = fn
}

// Subscribe returns a channel that receives copies of all source records.
// Subscribers should be added before calling Run to see every record.
func (d *Dispatcher) Subscribe() <-chan models.Record {
	ch := make(chan models.Record, d.bufferSize)
	d.mu.Lock()
	d.subscribers = append(d.subscribers, ch)
	d.mu.Unlock()
	return ch
}

// GetSubscriberCount returns the current number of subscribers.
func (d *Dispatcher) GetSubscriberCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subscribers)
}

// GetDroppedCount returns the total number of per-subscriber drops.
func (d *Dispatcher) GetDroppedCount() int64 {
	return atomic.LoadInt64(&d.droppedTotal)
}

// Run blocks until ctx is cancelled or source closes
func (d *Dispatcher) Run(ctx context.Context) {
	defer d.closeSubscribers()

	for {
		select {
		case <-ctx.Done():
			return
		case rec, ok := <-d.source:
			if !ok {
				return
			}
			d.dispatch(ctx, rec)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, rec models.Record) {
	d.mu.Lock()
	subs := d.subscribers
	d.mu.Unlock()

	dropped := 0
	for _, sub := range subs {
		select {
		case sub <- rec:
		case <-ctx.Done():
			return
		default:
			dropped++
			atomic.AddInt64(&d.droppedTotal, 1)
		}
	}

	if dropped > 0 {
		slog.Warn("dispatcher: buffer full, record dropped",
			"record_id", rec.RecordID, "subscribers", dropped)
		if d.onDrop != nil {
			d.onDrop(dropped)
		}
	}
}

func (d *Dispatcher) closeSubscribers() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, sub := range d.subscribers {
		close(sub)
	}
}
