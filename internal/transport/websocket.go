package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/synheart/synheart-stress/internal/encoding"
	"github.com/synheart/synheart-stress/internal/models"
)

// StressPath is the WebSocket endpoint.
const StressPath = "/stress"

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboards are served from other origins
	},
}

// WebSocketServer broadcasts records to WebSocket clients
type WebSocketServer struct {
	host    string
	port    int
	encoder encoding.Encoder
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
	writeMu sync.Mutex
	server  *http.Server
}

// NewWebSocketServer creates a new WebSocket server. JSON records are sent
// as text frames, any other encoding as binary frames.
func NewWebSocketServer(host string, port int, encoder encoding.Encoder) *WebSocketServer {
	if encoder == nil {
		encoder = encoding.NewJSONEncoder()
	}
	return &WebSocketServer{
		host:    host,
		port:    port,
		encoder: encoder,
		clients: make(map[*websocket.Conn]bool),
	}
}

// Start serves until ctx is cancelled, or returns the listen error.
func (s *WebSocketServer) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc(StressPath, s.handleWebSocket)
	mux.HandleFunc("/", s.handleRoot)

	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.host, s.port),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("websocket: listening", "addr", s.GetAddress())
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("websocket server failed: %w", err)
		}
		return nil
	}
}

func (s *WebSocketServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(w, "Synheart Stress Stream\n\n")
	fmt.Fprintf(w, "WebSocket endpoint: %s\n", s.GetAddress())
	fmt.Fprintf(w, "Connected clients: %d\n", s.GetClientCount())
}

func (s *WebSocketServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket: upgrade failed", "err", err)
		return
	}

	s.mu.Lock()
	s.clients[conn] = true
	clientCount := len(s.clients)
	s.mu.Unlock()

	slog.Info("websocket: client connected", "remote", r.RemoteAddr, "total", clientCount)

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		clientCount := len(s.clients)
		s.mu.Unlock()

		conn.Close()
		slog.Info("websocket: client disconnected", "remote", r.RemoteAddr, "total", clientCount)
	}()

	// Reads only detect the close; clients have nothing to say.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Broadcast sends a record to all connected clients
func (s *WebSocketServer) Broadcast(rec models.Record) error {
	if s.GetClientCount() == 0 {
		return nil
	}

	data, err := s.encoder.Encode(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	msgType := websocket.BinaryMessage
	if s.encoder.ContentType() == "application/json" {
		msgType = websocket.TextMessage
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	for client := range s.clients {
		client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteMessage(msgType, data); err != nil {
			// the read loop removes the client
			slog.Debug("websocket: write failed", "err", err)
		}
	}

	return nil
}

// BroadcastFromChannel reads records from a channel and broadcasts them
func (s *WebSocketServer) BroadcastFromChannel(ctx context.Context, records <-chan models.Record) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-records:
			if !ok {
				return nil
			}
			if err := s.Broadcast(rec); err != nil {
				slog.Warn("websocket: broadcast failed", "err", err)
			}
		}
	}
}

// GetClientCount returns the number of connected clients
func (s *WebSocketServer) GetClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Shutdown closes every client and stops the HTTP server.
func (s *WebSocketServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.mu.Lock()
	for client := range s.clients {
		client.Close()
	}
	s.clients = make(map[*websocket.Conn]bool)
	s.mu.Unlock()

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// GetAddress returns the server address
func (s *WebSocketServer) GetAddress() string {
	return fmt.Sprintf("ws://%s:%d%s", s.host, s.port, StressPath)
}
