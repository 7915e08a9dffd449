package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/eclipse/paho.golang/paho"
	"github.com/synheart/synheart-stress/internal/models"
)

// Subscriber receives JSON records published under a topic prefix.
type Subscriber struct {
	client *paho.Client
}

// Subscribe connects to broker and delivers every record published under
// <topic>/# to handle. Payloads that are not JSON records are skipped.
func Subscribe(ctx context.Context, broker, clientID, topic string, handle func(topic string, rec models.Record)) (*Subscriber, error) {
	onPublish := func(pr paho.PublishReceived) (bool, error) {
		var rec models.Record
		if err := json.Unmarshal(pr.Packet.Payload, &rec); err != nil {
			slog.Debug("mqtt: skipping undecodable payload", "topic", pr.Packet.Topic, "err", err)
			return true, nil
		}
		handle(pr.Packet.Topic, rec)
		return true, nil
	}

	client, err := connect(ctx, broker, clientID, onPublish)
	if err != nil {
		return nil, err
	}

	filter := Topic(topic, "#")
	if _, err := client.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{Topic: filter, QoS: 1}},
	}); err != nil {
		client.Disconnect(&paho.Disconnect{ReasonCode: 0})
		return nil, fmt.Errorf("mqtt: subscribe %s: %w", filter, err)
	}

	slog.Info("mqtt: subscribed", "broker", broker, "filter", filter)
	return &Subscriber{client: client}, nil
}

// Close disconnects from the broker.
func (s *Subscriber) Close() error {
	return s.client.Disconnect(&paho.Disconnect{ReasonCode: 0})
}
