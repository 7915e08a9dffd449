package transport

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/synheart/synheart-stress/internal/encoding"
	"github.com/synheart/synheart-stress/internal/models"
)

func dialStress(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	var conn *websocket.Conn
	var err error
	for i := 0; i < 20; i++ {
		conn, _, err = websocket.DefaultDialer.Dial(url, nil)
		if err == nil {
			return conn
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatalf("dial %s: %v", url, err)
	return nil
}

func waitClients(s *WebSocketServer, n int) {
	for i := 0; i < 40 && s.GetClientCount() != n; i++ {
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebSocketServer_BroadcastJSON(t *testing.T) {
	server := NewWebSocketServer("127.0.0.1", 19890, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go server.Start(ctx)

	conn := dialStress(t, "ws://127.0.0.1:19890/stress")
	defer conn.Close()
	waitClients(server, 1)

	if err := server.Broadcast(testRecord("ws-1", 71)); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	msgType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if msgType != websocket.TextMessage {
		t.Errorf("message type = %d, want text", msgType)
	}
	var rec models.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.RecordID != "ws-1" || rec.Snapshot.Stress.Percentage != 71 {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.SchemaVersion != models.SchemaVersion {
		t.Errorf("schema = %q", rec.SchemaVersion)
	}
}

func TestWebSocketServer_BroadcastProtobuf(t *testing.T) {
	server := NewWebSocketServer("127.0.0.1", 19891, encoding.NewProtobufEncoder())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go server.Start(ctx)

	conn := dialStress(t, "ws://127.0.0.1:19891/stress")
	defer conn.Close()
	waitClients(server, 1)

	server.Broadcast(testRecord("ws-pb", 30))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	msgType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if msgType != websocket.BinaryMessage {
		t.Errorf("message type = %d, want binary", msgType)
	}
	if len(data) == 0 {
		t.Error("empty payload")
	}
}

func TestWebSocketServer_FromChannel(t *testing.T) {
	server := NewWebSocketServer("127.0.0.1", 19892, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go server.Start(ctx)

	conn := dialStress(t, "ws://127.0.0.1:19892/stress")
	defer conn.Close()
	waitClients(server, 1)

	records := make(chan models.Record, 3)
	for i, id := range []string{"a", "b", "c"} {
		records <- testRecord(id, i*10)
	}
	close(records)
	if err := server.BroadcastFromChannel(ctx, records); err != nil {
		t.Fatalf("broadcast from channel: %v", err)
	}

	for _, want := range []string{"a", "b", "c"} {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var rec models.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if rec.RecordID != want {
			t.Errorf("got %q, want %q", rec.RecordID, want)
		}
	}
}

func TestWebSocketServer_ClientCount(t *testing.T) {
	server := NewWebSocketServer("127.0.0.1", 19893, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go server.Start(ctx)

	conn := dialStress(t, "ws://127.0.0.1:19893/stress")
	waitClients(server, 1)
	if server.GetClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", server.GetClientCount())
	}

	conn.Close()
	waitClients(server, 0)
	if server.GetClientCount() != 0 {
		t.Errorf("expected 0 clients after close, got %d", server.GetClientCount())
	}
}

func TestWebSocketServer_Address(t *testing.T) {
	server := NewWebSocketServer("localhost", 8787, nil)
	if got := server.GetAddress(); got != "ws://localhost:8787/stress" {
		t.Errorf("wrong address: %s", got)
	}
}
