package mqtt

import (
	"fmt"
	"log/slog"

	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
)

// Broker is an in-process MQTT broker accepting any client.
type Broker struct {
	server   *mochi.Server
	listener *listeners.TCP
}

// StartBroker listens on addr (host:port) and starts serving.
func StartBroker(addr string, logger *slog.Logger) (*Broker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	server := mochi.New(&mochi.Options{
		Logger:       logger,
		InlineClient: false,
	})

	if err := server.AddHook(&auth.AllowHook{}, nil); err != nil {
		return nil, fmt.Errorf("mqtt: broker auth hook: %w", err)
	}

	tcp := listeners.NewTCP(listeners.Config{
		Type:    "tcp",
		ID:      "synheart-tcp",
		Address: addr,
	})
	if err := server.AddListener(tcp); err != nil {
		return nil, fmt.Errorf("mqtt: broker listen %s: %w", addr, err)
	}

	if err := server.Serve(); err != nil {
		server.Close()
		return nil, fmt.Errorf("mqtt: broker serve: %w", err)
	}

	slog.Info("mqtt: embedded broker listening", "addr", tcp.Address())
	return &Broker{server: server, listener: tcp}, nil
}

// Addr returns the bound listener address.
func (b *Broker) Addr() string {
	return b.listener.Address()
}

// Close stops the broker and disconnects its clients.
func (b *Broker) Close() error {
	return b.server.Close()
}
