package transport

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/synheart/synheart-stress/internal/encoding"
	"github.com/synheart/synheart-stress/internal/models"
)

// SSEPath is the Server-Sent Events endpoint.
const SSEPath = "/stress/sse"

const (
	sseClientBuffer = 100
	sseBacklog      = 120
	sseRetry        = 2 * time.Second
)

// LevelChange is the payload of a "level" event, sent before the snapshot
// whose stress level differs from the previous one of the same profile.
type LevelChange struct {
	Profile    string             `json:"profile"`
	From       models.StressLevel `json:"from"`
	To         models.StressLevel `json:"to"`
	Percentage int                `json:"percentage"`
	Sequence   int64              `json:"sequence"`
}

// sseFrame is the wire text of one record, kept so reconnecting clients can
// resume after their Last-Event-ID.
type sseFrame struct {
	seq     int64
	profile string
	data    []byte
}

type sseClient struct {
	ch      chan []byte
	profile string // empty accepts every profile
}

func (c *sseClient) wants(profile string) bool {
	return c.profile == "" || c.profile == profile
}

// SSEServer streams records as Server-Sent Events. Each snapshot event
// carries the record sequence as its id; clients may filter by ?profile=.
type SSEServer struct {
	host    string
	port    int
	encoder encoding.Encoder
	server  *http.Server

	mu        sync.RWMutex
	clients   map[*sseClient]struct{}
	backlog   []sseFrame
	lastLevel map[string]models.StressLevel
}

// NewSSEServer creates a new SSE server. Non-JSON payloads are base64
// encoded since event data must be text.
func NewSSEServer(host string, port int, encoder encoding.Encoder) *SSEServer {
	if encoder == nil {
		encoder = encoding.NewJSONEncoder()
	}
	return &SSEServer{
		host:      host,
		port:      port,
		encoder:   encoder,
		clients:   make(map[*sseClient]struct{}),
		lastLevel: make(map[string]models.StressLevel),
	}
}

// Start serves until ctx is cancelled, or returns the listen error.
func (s *SSEServer) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc(SSEPath, s.handleSSE)
	mux.HandleFunc("/", s.handleRoot)

	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.host, s.port),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("sse: listening", "addr", s.GetAddress())
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
			return fmt.Errorf("SSE server failed: %w", err)
		}
		return nil
	}
}

func (s *SSEServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(w, "Synheart Stress SSE\n\nEndpoint: %s\nFilter:   %s?profile=<name>\nResume:   Last-Event-ID header or ?last_event_id=<sequence>\n",
		s.GetAddress(), SSEPath)
}

func (s *SSEServer) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	lastID := r.Header.Get("Last-Event-ID")
	if lastID == "" {
		lastID = r.URL.Query().Get("last_event_id")
	}
	after, resume := int64(-1), false
	if lastID != "" {
		n, err := strconv.ParseInt(lastID, 10, 64)
		if err != nil {
			http.Error(w, "invalid last event id", http.StatusBadRequest)
			return
		}
		after, resume = n, true
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "retry: %d\n\n", sseRetry.Milliseconds())
	flusher.Flush()

	client := &sseClient{
		ch:      make(chan []byte, sseClientBuffer),
		profile: r.URL.Query().Get("profile"),
	}
	missed := s.addClient(client, after, resume)
	defer s.removeClient(client)

	slog.Info("sse: client connected", "remote", r.RemoteAddr, "profile", client.profile,
		"resumed", len(missed), "total", s.GetClientCount())

	for _, frame := range missed {
		w.Write(frame)
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case frame, ok := <-client.ch:
			if !ok {
				return
			}
			w.Write(frame)
			flusher.Flush()
		}
	}
}

// addClient registers c and, when resuming, returns the retained frames
// after the given sequence. Both happen under one lock so nothing is missed
// or sent twice.
func (s *SSEServer) addClient(c *sseClient, after int64, resume bool) [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clients[c] = struct{}{}
	if !resume {
		return nil
	}
	var missed [][]byte
	for _, f := range s.backlog {
		if f.seq > after && c.wants(f.profile) {
			missed = append(missed, f.data)
		}
	}
	return missed
}

func (s *SSEServer) removeClient(c *sseClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.clients[c]; exists {
		delete(s.clients, c)
		close(c.ch)
		slog.Info("sse: client disconnected", "total", len(s.clients))
	}
}

// frame renders rec as SSE text, preceded by a level event when the
// profile's stress level changed.
func (s *SSEServer) frame(rec models.Record, prev models.StressLevel, changed bool) ([]byte, error) {
	data, err := s.encoder.Encode(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	if s.encoder.ContentType() != "application/json" {
		data = []byte(base64.StdEncoding.EncodeToString(data))
	}

	var buf bytes.Buffer
	if changed {
		change, err := json.Marshal(LevelChange{
			Profile:    rec.Session.Profile,
			From:       prev,
			To:         rec.Snapshot.Stress.Level,
			Percentage: rec.Snapshot.Stress.Percentage,
			Sequence:   rec.Meta.Sequence,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode level change: %w", err)
		}
		fmt.Fprintf(&buf, "event: level\ndata: %s\n\n", change)
	}
	fmt.Fprintf(&buf, "id: %d\nevent: snapshot\ndata: %s\n\n", rec.Meta.Sequence, data)
	return buf.Bytes(), nil
}

// Broadcast sends a record to every client whose filter accepts it and
// keeps it for resuming clients. A client whose buffer is full misses the
// record.
func (s *SSEServer) Broadcast(rec models.Record) error {
	profile := rec.Session.Profile
	level := rec.Snapshot.Stress.Level

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, seen := s.lastLevel[profile]
	frame, err := s.frame(rec, prev, seen && prev != level)
	if err != nil {
		return err
	}
	s.lastLevel[profile] = level

	if len(s.backlog) == sseBacklog {
		copy(s.backlog, s.backlog[1:])
		s.backlog = s.backlog[:sseBacklog-1]
	}
	s.backlog = append(s.backlog, sseFrame{seq: rec.Meta.Sequence, profile: profile, data: frame})

	for c := range s.clients {
		if !c.wants(profile) {
			continue
		}
		select {
		case c.ch <- frame:
		default:
		}
	}
	return nil
}

// BroadcastFromChannel reads records and broadcasts them
func (s *SSEServer) BroadcastFromChannel(ctx context.Context, records <-chan models.Record) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-records:
			if !ok {
				return nil
			}
			if err := s.Broadcast(rec); err != nil {
				slog.Warn("sse: broadcast failed", "err", err)
			}
		}
	}
}

// GetClientCount returns connected client count
func (s *SSEServer) GetClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Shutdown closes every stream and stops the server.
func (s *SSEServer) Shutdown() error {
	s.mu.Lock()
	for c := range s.clients {
		close(c.ch)
	}
	s.clients = make(map[*sseClient]struct{})
	s.mu.Unlock()

	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

// GetAddress returns the server address
func (s *SSEServer) GetAddress() string {
	return fmt.Sprintf("http://%s:%d%s", s.host, s.port, SSEPath)
}
