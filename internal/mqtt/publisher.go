// Package mqtt publishes pipeline records to an MQTT v5 broker and can host
// an embedded broker for local use.
package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/eclipse/paho.golang/paho"
	"github.com/synheart/synheart-stress/internal/encoding"
	"github.com/synheart/synheart-stress/internal/models"
)

const dialTimeout = 5 * time.Second

// Config holds publisher settings.
type Config struct {
	Broker   string // host:port
	Topic    string
	ClientID string
	QoS      byte
	Encoder  encoding.Encoder
}

// Topic returns the topic a record for profile is published on.
func Topic(base, profile string) string {
	base = strings.TrimSuffix(base, "/")
	if profile == "" {
		return base
	}
	return base + "/" + profile
}

// Publisher sends every record it is given to <topic>/<profile>.
type Publisher struct {
	cfg       Config
	client    *paho.Client
	published atomic.Int64
	failed    atomic.Int64
}

// Dial connects to cfg.Broker and performs the MQTT handshake.
func Dial(ctx context.Context, cfg Config) (*Publisher, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt: broker address is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("mqtt: topic is required")
	}
	if cfg.QoS > 2 {
		return nil, fmt.Errorf("mqtt: invalid qos %d", cfg.QoS)
	}
	if cfg.Encoder == nil {
		cfg.Encoder = encoding.NewJSONEncoder()
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "synheart-stress"
	}

	client, err := connect(ctx, cfg.Broker, cfg.ClientID, nil)
	if err != nil {
		return nil, err
	}

	slog.Info("mqtt: connected", "broker", cfg.Broker, "topic", cfg.Topic, "client_id", cfg.ClientID)
	return &Publisher{cfg: cfg, client: client}, nil
}

func connect(ctx context.Context, broker, clientID string, onPublish func(paho.PublishReceived) (bool, error)) (*paho.Client, error) {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", broker)
	if err != nil {
		return nil, fmt.Errorf("mqtt: dial %s: %w", broker, err)
	}

	cc := paho.ClientConfig{
		ClientID: clientID,
		Conn:     conn,
		OnClientError: func(err error) {
			slog.Warn("mqtt: client error", "client_id", clientID, "err", err)
		},
	}
	if onPublish != nil {
		cc.OnPublishReceived = []func(paho.PublishReceived) (bool, error){onPublish}
	}
	client := paho.NewClient(cc)

	if _, err := client.Connect(ctx, &paho.Connect{
		ClientID:   clientID,
		KeepAlive:  30,
		CleanStart: true,
	}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("mqtt: connect %s: %w", broker, err)
	}
	return client, nil
}

// Publish encodes rec and sends it.
func (p *Publisher) Publish(ctx context.Context, rec models.Record) error {
	payload, err := p.cfg.Encoder.Encode(rec)
	if err != nil {
		p.failed.Add(1)
		return fmt.Errorf("mqtt: encode record %s: %w", rec.RecordID, err)
	}

	pub := &paho.Publish{
		Topic:   Topic(p.cfg.Topic, rec.Session.Profile),
		QoS:     p.cfg.QoS,
		Payload: payload,
		Properties: &paho.PublishProperties{
			ContentType: p.cfg.Encoder.ContentType(),
		},
	}
	if _, err := p.client.Publish(ctx, pub); err != nil {
		p.failed.Add(1)
		return fmt.Errorf("mqtt: publish %s: %w", pub.Topic, err)
	}
	p.published.Add(1)
	return nil
}

// PublishFromChannel publishes records until the channel closes or ctx is
// cancelled. Failed publishes are logged and skipped.
func (p *Publisher) PublishFromChannel(ctx context.Context, records <-chan models.Record) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-records:
			if !ok {
				return nil
			}
			if err := p.Publish(ctx, rec); err != nil {
				slog.Warn("mqtt: publish failed", "record_id", rec.RecordID, "err", err)
			}
		}
	}
}

// Published returns the number of records accepted by the broker.
func (p *Publisher) Published() int64 { return p.published.Load() }

// Failed returns the number of records that could not be published.
func (p *Publisher) Failed() int64 { return p.failed.Load() }

// Close disconnects from the broker.
func (p *Publisher) Close() error {
	return p.client.Disconnect(&paho.Disconnect{ReasonCode: 0})
}
