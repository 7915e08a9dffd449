package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/synheart/synheart-stress/internal/encoding"
	"github.com/synheart/synheart-stress/internal/models"
)

// UDPServer sends each record as one datagram to every subscribed peer.
// Peers register by sending "subscribe [profile]" (or any other datagram)
// and leave with "unsubscribe". A peer subscribed with a profile receives
// only that profile's records; subscribing again replaces the filter.
type UDPServer struct {
	host    string
	port    int
	encoder encoding.Encoder
	conn    *net.UDPConn
	clients map[string]*udpPeer
	mu      sync.RWMutex
}

type udpPeer struct {
	addr    *net.UDPAddr
	profile string
}

// NewUDPServer creates a new UDP server
func NewUDPServer(host string, port int, encoder encoding.Encoder) *UDPServer {
	if encoder == nil {
		encoder = encoding.NewJSONEncoder()
	}
	return &UDPServer{
		host:    host,
		port:    port,
		encoder: encoder,
		clients: make(map[string]*udpPeer),
	}
}

// Start listens until ctx is cancelled.
func (s *UDPServer) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", s.host, s.port))
	if err != nil {
		return fmt.Errorf("failed to resolve address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	slog.Info("udp: listening", "addr", s.GetAddress())

	go s.readLoop(ctx, conn)

	<-ctx.Done()
	return s.Shutdown()
}

func (s *UDPServer) readLoop(ctx context.Context, conn *net.UDPConn) {
	buf := make([]byte, 1024)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return
		}
		s.handleMessage(strings.TrimSpace(string(buf[:n])), addr)
	}
}

func (s *UDPServer) handleMessage(msg string, addr *net.UDPAddr) {
	key := addr.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	cmd, profile, _ := strings.Cut(msg, " ")
	switch cmd {
	case "subscribe":
		profile = strings.TrimSpace(profile)
		s.clients[key] = &udpPeer{addr: addr, profile: profile}
		slog.Info("udp: client subscribed", "peer", key, "profile", profile, "total", len(s.clients))
	case "unsubscribe":
		delete(s.clients, key)
		slog.Info("udp: client unsubscribed", "peer", key, "total", len(s.clients))
	default:
		if _, exists := s.clients[key]; !exists {
			s.clients[key] = &udpPeer{addr: addr}
			slog.Info("udp: client registered", "peer", key, "total", len(s.clients))
		}
	}
}

// Broadcast sends a record to every registered peer whose filter accepts it.
func (s *UDPServer) Broadcast(rec models.Record) error {
	if s.GetClientCount() == 0 {
		return nil
	}

	data, err := s.encoder.Encode(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.conn == nil {
		return nil
	}
	for key, peer := range s.clients {
		if peer.profile != "" && peer.profile != rec.Session.Profile {
			continue
		}
		if _, err := s.conn.WriteToUDP(data, peer.addr); err != nil {
			slog.Debug("udp: write failed", "peer", key, "err", err)
		}
	}
	return nil
}

// BroadcastFromChannel reads records and broadcasts them
func (s *UDPServer) BroadcastFromChannel(ctx context.Context, records <-chan models.Record) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-records:
			if !ok {
				return nil
			}
			if err := s.Broadcast(rec); err != nil {
				slog.Warn("udp: broadcast failed", "err", err)
			}
		}
	}
}

// GetClientCount returns registered client count
func (s *UDPServer) GetClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Shutdown closes the UDP connection
func (s *UDPServer) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

// GetAddress returns the server address
func (s *UDPServer) GetAddress() string {
	return fmt.Sprintf("udp://%s:%d", s.host, s.port)
}
