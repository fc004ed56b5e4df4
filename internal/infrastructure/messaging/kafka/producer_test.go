package kafka

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/flame-data/internal/config"
	"github.com/turtacn/flame-data/internal/testutil"
	pkgerrors "github.com/turtacn/flame-data/pkg/errors"
)

type mockKafkaWriter struct {
	writeFunc func(ctx context.Context, msgs ...kafka.Message) error
	closeFunc func() error
}

func (m *mockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.writeFunc != nil {
		return m.writeFunc(ctx, msgs...)
	}
	return nil
}

func (m *mockKafkaWriter) Close() error {
	if m.closeFunc != nil {
		return m.closeFunc()
	}
	return nil
}

func newTestProducerMessage(topic, key, value string) *ProducerMessage {
	return &ProducerMessage{Topic: topic, Key: []byte(key), Value: []byte(value)}
}

func TestValidateProducerConfig(t *testing.T) {
	assert.NoError(t, ValidateProducerConfig(config.KafkaConfig{Brokers: []string{"localhost:9092"}}))
	assert.Error(t, ValidateProducerConfig(config.KafkaConfig{}))
	assert.Error(t, ValidateProducerConfig(config.KafkaConfig{Brokers: []string{"b"}, ProducerRetries: -1}))
}

func TestNewProducer_DoesNotDial(t *testing.T) {
	p, err := NewProducer(config.KafkaConfig{Brokers: []string{"127.0.0.1:1"}}, testutil.NewMockLogger())
	require.NoError(t, err)
	assert.NoError(t, p.Close())
}

func TestPublish_Success(t *testing.T) {
	var captured []kafka.Message
	w := &mockKafkaWriter{writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
		captured = msgs
		return nil
	}}
	p := newProducer(w, testutil.NewMockLogger())

	msg := newTestProducerMessage("species.connectivity.created", "7", `{"conn_id":7}`)
	msg.Headers = map[string]string{"event_type": "species.connectivity.created"}
	require.NoError(t, p.Publish(context.Background(), msg))

	require.Len(t, captured, 1)
	assert.Equal(t, "species.connectivity.created", captured[0].Topic)
	assert.Equal(t, "7", string(captured[0].Key))
	assert.False(t, captured[0].Time.IsZero())
	require.Len(t, captured[0].Headers, 1)
	assert.Equal(t, "event_type", captured[0].Headers[0].Key)
	assert.Equal(t, int64(1), p.Sent())
}

func TestPublish_Validation(t *testing.T) {
	p := newProducer(&mockKafkaWriter{}, testutil.NewMockLogger())
	ctx := context.Background()

	assert.True(t, pkgerrors.IsCode(p.Publish(ctx, newTestProducerMessage("", "k", "v")), pkgerrors.ErrCodeValidation))
	assert.True(t, pkgerrors.IsCode(p.Publish(ctx, newTestProducerMessage("t", "k", "")), pkgerrors.ErrCodeValidation))

	big := newTestProducerMessage("t", "k", strings.Repeat("x", maxMessageBytes+1))
	assert.True(t, pkgerrors.IsCode(p.Publish(ctx, big), pkgerrors.ErrCodeValidation))
}

func TestPublish_Failure(t *testing.T) {
	w := &mockKafkaWriter{writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
		return errors.New("write failed")
	}}
	p := newProducer(w, testutil.NewMockLogger())

	err := p.Publish(context.Background(), newTestProducerMessage("t", "k", "v"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeExternalService))
	assert.Equal(t, int64(1), p.Failed())
}

func TestClose_Once(t *testing.T) {
	closes := 0
	p := newProducer(&mockKafkaWriter{closeFunc: func() error {
		closes++
		return nil
	}}, testutil.NewMockLogger())

	assert.NoError(t, p.Close())
	assert.NoError(t, p.Close())
	assert.Equal(t, 1, closes)
	assert.Equal(t, ErrProducerClosed, p.Publish(context.Background(), newTestProducerMessage("t", "k", "v")))
}

func TestNopProducer(t *testing.T) {
	var p MessageProducer = NopProducer{}
	assert.NoError(t, p.Publish(context.Background(), newTestProducerMessage("t", "k", "v")))
	assert.NoError(t, p.Close())
}
