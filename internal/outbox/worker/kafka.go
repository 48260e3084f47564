package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"lingkod/internal/outbox"
)

// KafkaPublisher publishes claimed outbox entries to the topic the external
// email/SMS sender consumes. Records are keyed by resident id so one
// resident's notifications stay ordered within a partition.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
}

// NewKafkaPublisher connects to the brokers and ensures the topic exists.
func NewKafkaPublisher(ctx context.Context, brokers []string, topic string) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	adm := kadm.NewClient(client)
	if _, err := adm.CreateTopic(ctx, 1, 1, nil, topic); err != nil {
		// Topic may already exist; only creation-path errors matter.
		details, derr := adm.ListTopics(ctx, topic)
		if derr != nil || !details.Has(topic) {
			client.Close()
			return nil, fmt.Errorf("ensure topic %q: %w", topic, err)
		}
	}

	return &KafkaPublisher{client: client, topic: topic}, nil
}

// record is the wire shape the external sender consumes.
type record struct {
	EntryID    string          `json:"entry_id"`
	ResidentID string          `json:"resident_id"`
	Channel    string          `json:"channel"`
	EventType  string          `json:"event_type"`
	EntityID   string          `json:"entity_id"`
	Payload    json.RawMessage `json:"payload"`
}

func (p *KafkaPublisher) Publish(ctx context.Context, entry *outbox.Entry) error {
	value, err := json.Marshal(record{
		EntryID:    entry.ID.String(),
		ResidentID: entry.ResidentID.String(),
		Channel:    string(entry.Channel),
		EventType:  string(entry.EventType),
		EntityID:   entry.EntityID,
		Payload:    entry.Payload,
	})
	if err != nil {
		return fmt.Errorf("marshal notification record: %w", err)
	}

	res := p.client.ProduceSync(ctx, &kgo.Record{
		Topic: p.topic,
		Key:   []byte(entry.ResidentID.String()),
		Value: value,
	})
	if err := res.FirstErr(); err != nil {
		return fmt.Errorf("produce notification: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() {
	p.client.Close()
}
