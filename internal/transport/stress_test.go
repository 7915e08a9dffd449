package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/synheart/synheart-stress/internal/encoding"
	"github.com/synheart/synheart-stress/internal/models"
)

func sequencedRecord(i int) models.Record {
	rec := testRecord(fmt.Sprintf("burst-%d", i), i%101)
	rec.Meta.Sequence = int64(i + 1)
	return rec
}

func TestWebSocket_BurstKeepsOrder(t *testing.T) {
	const clients, records = 4, 100

	server := NewWebSocketServer("127.0.0.1", 18888, encoding.NewJSONEncoder())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go server.Start(ctx)
	time.Sleep(100 * time.Millisecond)

	var wg sync.WaitGroup
	var total int64
	errs := make(chan error, clients)

	for c := 0; c < clients; c++ {
		conn, _, err := websocket.DefaultDialer.Dial("ws://127.0.0.1:18888/stress", nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		wg.Add(1)
		go func(conn *websocket.Conn) {
			defer wg.Done()
			defer conn.Close()

			var last int64
			conn.SetReadDeadline(time.Now().Add(3 * time.Second))
			for n := 0; n < records; n++ {
				_, data, err := conn.ReadMessage()
				if err != nil {
					return
				}
				var rec models.Record
				if err := json.Unmarshal(data, &rec); err != nil {
					errs <- err
					return
				}
				if rec.Meta.Sequence <= last {
					errs <- fmt.Errorf("sequence %d after %d", rec.Meta.Sequence, last)
					return
				}
				last = rec.Meta.Sequence
				atomic.AddInt64(&total, 1)
			}
		}(conn)
	}

	time.Sleep(200 * time.Millisecond)
	if got := server.GetClientCount(); got != clients {
		t.Fatalf("clients = %d, want %d", got, clients)
	}

	for i := 0; i < records; i++ {
		if err := server.Broadcast(sequencedRecord(i)); err != nil {
			t.Fatalf("Broadcast: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	t.Logf("received %d of %d", total, clients*records)
	if total < clients*records*9/10 {
		t.Errorf("too many dropped: got %d, want >= %d", total, clients*records*9/10)
	}
}

func TestDispatcher_FansOutToSSEClients(t *testing.T) {
	const clients, records = 3, 50

	source := make(chan models.Record, records)
	dispatcher := NewDispatcher(source, records)
	server := NewSSEServer("127.0.0.1", 18889, encoding.NewJSONEncoder())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go server.Start(ctx)
	go server.BroadcastFromChannel(ctx, dispatcher.Subscribe())
	go dispatcher.Run(ctx)
	time.Sleep(100 * time.Millisecond)

	var wg sync.WaitGroup
	var total int64
	for c := 0; c < clients; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			reqCtx, reqCancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer reqCancel()
			req, _ := http.NewRequestWithContext(reqCtx, http.MethodGet, "http://127.0.0.1:18889/stress/sse", nil)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return
			}
			defer resp.Body.Close()

			scanner := bufio.NewScanner(resp.Body)
			for n := 0; n < records && scanner.Scan(); {
				if strings.HasPrefix(scanner.Text(), "data: ") {
					atomic.AddInt64(&total, 1)
					n++
				}
			}
		}()
	}

	time.Sleep(200 * time.Millisecond)
	if got := server.GetClientCount(); got != clients {
		t.Fatalf("clients = %d, want %d", got, clients)
	}

	for i := 0; i < records; i++ {
		source <- sequencedRecord(i)
		time.Sleep(10 * time.Millisecond)
	}

	wg.Wait()

	t.Logf("received %d of %d, dispatcher dropped %d", total, clients*records, dispatcher.GetDroppedCount())
	if total < clients*records*8/10 {
		t.Errorf("too many dropped: got %d, want >= %d", total, clients*records*8/10)
	}
}
