package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/turtacn/flame-data/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/flame-data/pkg/errors"
)

const (
	TopicSpeciesConnCreated  = "species.connectivity.created"
	TopicSpeciesConnDeleted  = "species.connectivity.deleted"
	TopicReactionConnCreated = "reaction.connectivity.created"
	TopicReactionConnDeleted = "reaction.connectivity.deleted"
)

// EventEnvelope wraps every published event.
type EventEnvelope struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// ConnectivityEvent is the payload of the connectivity topics.
type ConnectivityEvent struct {
	ConnID     int64  `json:"conn_id"`
	Formula    string `json:"formula,omitempty"`
	ConnSmiles string `json:"conn_smiles,omitempty"`
	UserID     int64  `json:"user_id,omitempty"`
}

func NewEventEnvelope(eventType string, source string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal payload")
	}
	return &EventEnvelope{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Payload:   data,
	}, nil
}

func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal payload")
	}
	return nil
}

// ToMessage serialises the envelope for topic, keyed by key.
func (e *EventEnvelope) ToMessage(topic, key string) (*ProducerMessage, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	return &ProducerMessage{
		Topic: topic,
		Key:   []byte(key),
		Value: val,
		Headers: map[string]string{
			"event_type":     e.EventType,
			"source_service": e.Source,
		},
		Timestamp: e.Timestamp,
	}, nil
}

// Events publishes connectivity events. Failures are logged and swallowed:
// an unreachable broker never fails the request that caused the event.
type Events struct {
	producer MessageProducer
	source   string
	logger   logging.Logger
}

func NewEvents(producer MessageProducer, source string, logger logging.Logger) *Events {
	return &Events{producer: producer, source: source, logger: logger.Named("events")}
}

// Emit publishes payload to topic, keyed by connID.
func (e *Events) Emit(ctx context.Context, topic string, connID int64, payload interface{}) {
	env, err := NewEventEnvelope(topic, e.source, payload)
	if err != nil {
		e.logger.Warn("failed to build event", logging.String("topic", topic), logging.Err(err))
		return
	}
	msg, err := env.ToMessage(topic, strconv.FormatInt(connID, 10))
	if err != nil {
		e.logger.Warn("failed to build event", logging.String("topic", topic), logging.Err(err))
		return
	}
	if err := e.producer.Publish(ctx, msg); err != nil {
		e.logger.Warn("failed to publish event",
			logging.String("topic", topic),
			logging.Int64("conn_id", connID),
			logging.Err(err))
	}
}

// TopicConfig describes a topic to create.
type TopicConfig struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	RetentionMs       int64
}

// ConnInterface abstracts kafka.Conn for testing.
type ConnInterface interface {
	CreateTopics(topics ...kafka.TopicConfig) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

// TopicManager creates the event topics.
type TopicManager struct {
	conn   ConnInterface
	logger logging.Logger
}

func NewTopicManager(brokers []string, logger logging.Logger) (*TopicManager, error) {
	if len(brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "brokers required")
	}
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to dial kafka")
	}
	return &TopicManager{conn: conn, logger: logger.Named("kafka")}, nil
}

func (m *TopicManager) CreateTopic(ctx context.Context, cfg TopicConfig) error {
	if cfg.Name == "" {
		return errors.New(errors.ErrCodeValidation, "topic name required")
	}
	if cfg.NumPartitions <= 0 {
		return errors.New(errors.ErrCodeValidation, "NumPartitions must be > 0")
	}
	if cfg.ReplicationFactor <= 0 {
		return errors.New(errors.ErrCodeValidation, "ReplicationFactor must be > 0")
	}

	kCfg := kafka.TopicConfig{
		Topic:             cfg.Name,
		NumPartitions:     cfg.NumPartitions,
		ReplicationFactor: cfg.ReplicationFactor,
	}
	if cfg.RetentionMs > 0 {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{
			ConfigName:  "retention.ms",
			ConfigValue: fmt.Sprintf("%d", cfg.RetentionMs),
		})
	}

	if err := m.conn.CreateTopics(kCfg); err != nil {
		if exists, _ := m.TopicExists(ctx, cfg.Name); exists {
			return nil
		}
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to create topic "+cfg.Name)
	}
	m.logger.Info("Topic created", logging.String("topic", cfg.Name))
	return nil
}

func (m *TopicManager) TopicExists(ctx context.Context, name string) (bool, error) {
	partitions, err := m.conn.ReadPartitions(name)
	if err != nil {
		return false, nil
	}
	return len(partitions) > 0, nil
}

// EnsureTopics creates every topic that is missing.
func (m *TopicManager) EnsureTopics(ctx context.Context, topics []TopicConfig) error {
	for _, topic := range topics {
		if err := m.CreateTopic(ctx, topic); err != nil {
			return err
		}
	}
	return nil
}

func (m *TopicManager) Close() error {
	return m.conn.Close()
}

func DefaultTopics() []TopicConfig {
	const week = 7 * 24 * 3600 * 1000
	return []TopicConfig{
		{Name: TopicSpeciesConnCreated, NumPartitions: 3, ReplicationFactor: 1, RetentionMs: week},
		{Name: TopicSpeciesConnDeleted, NumPartitions: 3, ReplicationFactor: 1, RetentionMs: week},
		{Name: TopicReactionConnCreated, NumPartitions: 3, ReplicationFactor: 1, RetentionMs: week},
		{Name: TopicReactionConnDeleted, NumPartitions: 3, ReplicationFactor: 1, RetentionMs: week},
	}
}
