package testutil_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/turtacn/flame-data/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/flame-data/internal/testutil"
)

func TestMockLogger(t *testing.T) {
	logger := testutil.NewMockLogger()

	logger.Info("test info", logging.String("key", "value"))

	messages := logger.GetMessages()
	assert.Len(t, messages, 1)
	assert.Equal(t, "info", messages[0].Level)
	assert.Equal(t, "test info", messages[0].Message)

	logger.Clear()
	assert.Len(t, logger.GetMessages(), 0)

	logger.Error("test error")
	assert.True(t, logger.HasMessage("error", "test error"))
	assert.False(t, logger.HasMessage("info", "test info"))
}

func TestMockLogger_ChildrenShareRecord(t *testing.T) {
	logger := testutil.NewMockLogger()

	child := logger.Named("species").With(logging.Int64(logging.FieldConnID, 7))
	child.Warn("slow insert")

	ctx := logging.WithRequestID(context.Background(), "req-1")
	logger.WithContext(ctx).Debug("lookup")

	msgs := logger.GetMessages()
	assert.Len(t, msgs, 2)
	assert.Equal(t, "species", msgs[0].Logger)

	v, ok := logger.Field("slow insert", logging.FieldConnID)
	assert.True(t, ok)
	assert.Equal(t, int64(7), v)

	v, ok = logger.Field("lookup", logging.FieldRequestID)
	assert.True(t, ok)
	assert.Equal(t, "req-1", v)
}
