// Package mirror streams committed audit entries to Kafka for SIEM and
// compliance consumers. PostgreSQL remains the legal record; the mirror is
// strictly downstream and its failures never fail the transaction that wrote
// the entry.
package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"fundgate/internal/audit"
)

// Producer publishes one audit entry to the stream.
type Producer interface {
	Publish(ctx context.Context, entry audit.Entry) error
	Close()
}

// KafkaProducer implements Producer on franz-go.
type KafkaProducer struct {
	client *kgo.Client
	topic  string
}

// NewKafkaProducer connects to the brokers and ensures the audit topic
// exists.
func NewKafkaProducer(ctx context.Context, brokers []string, topic string) (*KafkaProducer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, 1, 1, nil, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure audit topic: %w", err)
	}
	for _, r := range resp {
		if r.Err != nil && !kerr.IsRetriable(r.Err) && r.Err != kerr.TopicAlreadyExists {
			client.Close()
			return nil, fmt.Errorf("ensure audit topic %s: %w", r.Topic, r.Err)
		}
	}

	return &KafkaProducer{client: client, topic: topic}, nil
}

func (p *KafkaProducer) Publish(ctx context.Context, entry audit.Entry) error {
	payload, err := json.Marshal(entryPayload(entry))
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	record := &kgo.Record{
		Key:   []byte(entry.EntityType + ":" + entry.EntityID),
		Value: payload,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit entry: %w", err)
	}
	return nil
}

func (p *KafkaProducer) Close() {
	p.client.Close()
}

// payload keys match the postgres columns so downstream consumers see one
// shape regardless of source.
func entryPayload(entry audit.Entry) map[string]any {
	return map[string]any{
		"id":          entry.ID.String(),
		"event_type":  entry.EventType,
		"entity_type": entry.EntityType,
		"entity_id":   entry.EntityID,
		"actor_id":    entry.ActorID,
		"actor_type":  string(entry.ActorType),
		"category":    string(entry.Category),
		"metadata":    entry.Metadata,
		"created_at":  entry.CreatedAt.Format(time.RFC3339Nano),
	}
}

// Worker polls the audit store for rows committed after its cursor and
// publishes them in order. The cursor is the (created_at, id) tuple of the
// last published entry, so rows sharing a timestamp survive batch
// boundaries.
type Worker struct {
	store    audit.Store
	producer Producer
	logger   *slog.Logger
	interval time.Duration
	batch    int
	cursorAt time.Time
	cursorID uuid.UUID
}

// NewWorker starts mirroring from entries committed after start.
func NewWorker(store audit.Store, producer Producer, logger *slog.Logger, start time.Time) *Worker {
	return &Worker{
		store:    store,
		producer: producer,
		logger:   logger,
		interval: time.Second,
		batch:    500,
		cursorAt: start,
	}
}

// Run blocks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drain(ctx); err != nil {
				// Leave the cursor in place; the next tick retries from the
				// last published entry.
				w.logger.WarnContext(ctx, "audit mirror drain failed", "error", err)
			}
		}
	}
}

func (w *Worker) drain(ctx context.Context) error {
	for {
		entries, err := w.store.ListAfter(ctx, w.cursorAt, w.cursorID, w.batch)
		if err != nil {
			return fmt.Errorf("list audit entries: %w", err)
		}
		if len(entries) == 0 {
			return nil
		}
		for _, entry := range entries {
			if err := w.producer.Publish(ctx, entry); err != nil {
				return fmt.Errorf("publish audit entry %s: %w", entry.ID, err)
			}
			w.cursorAt, w.cursorID = entry.CreatedAt, entry.ID
		}
		if len(entries) < w.batch {
			return nil
		}
	}
}
