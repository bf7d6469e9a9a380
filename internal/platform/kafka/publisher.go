// Package kafka publishes notifications to a Kafka topic with franz-go.
// Downstream consumers (mailers, push gateways) own the last mile.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasktracker-api/internal/notify"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Record header keys.
const (
	HeaderNotificationID = "notification-id"
	HeaderSubject        = "subject"
)

// Producer defines the interface for producing messages to Kafka.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// message is the JSON record value.
type message struct {
	ID      string    `json:"id"`
	Address string    `json:"address"`
	Subject string    `json:"subject"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sent_at"`
}

// Publisher implements notify.Notifier by producing one record per
// notification, keyed by recipient address so a recipient's notices stay
// ordered within a partition.
type Publisher struct {
	client Producer
	topic  string
	now    func() time.Time
}

var _ notify.Notifier = (*Publisher)(nil)

// New creates a Publisher. An empty topic uses the client's default
// produce topic.
func New(client Producer, topic string) *Publisher {
	return &Publisher{client: client, topic: topic, now: time.Now}
}

// NewClient builds a producer-only franz-go client.
func NewClient(brokers []string, topic string) (*kgo.Client, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.AllowAutoTopicCreation(),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(5*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return client, nil
}

// Notify produces n synchronously. Failures are returned as
// *notify.DeliveryError.
func (p *Publisher) Notify(ctx context.Context, n notify.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	record, err := p.toRecord(n)
	if err != nil {
		return notify.NewDeliveryError(n.Address, err)
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return notify.NewDeliveryError(n.Address, fmt.Errorf("publish notification: %w", err))
	}
	return nil
}

func (p *Publisher) toRecord(n notify.Notification) (*kgo.Record, error) {
	value, err := json.Marshal(message{
		ID:      n.ID,
		Address: n.Address,
		Subject: n.Subject,
		Message: n.Message,
		SentAt:  p.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode notification: %w", err)
	}

	return &kgo.Record{
		Topic: p.topic,
		Key:   []byte(n.Address),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: HeaderNotificationID, Value: []byte(n.ID)},
			{Key: HeaderSubject, Value: []byte(n.Subject)},
		},
	}, nil
}
