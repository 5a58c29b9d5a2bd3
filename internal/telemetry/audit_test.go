package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/mocks"
)

func TestEmitPublishesEnvelope(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	emitter := NewAuditEmitter(publisher, "audit.messaging", "messaging-service", "test")

	userID := int64(7)
	var captured AuditEnvelope
	publisher.On("Publish", mock.Anything, "audit.messaging", mock.MatchedBy(func(event any) bool {
		envelope, ok := event.(AuditEnvelope)
		if ok {
			captured = envelope
		}
		return ok
	})).Return(nil).Once()

	emitter.Emit(context.Background(), "INFO", "Conversation resolved", "req-1", &userID)

	publisher.AssertExpectations(t)
	assert.Equal(t, 1, captured.SchemaVersion)
	assert.Equal(t, "audit_log", captured.EventType)
	assert.Equal(t, "messaging-service", captured.Service)
	assert.Equal(t, "test", captured.Environment)
	assert.Equal(t, "req-1", captured.RequestID)
	require.NotNil(t, captured.UserID)
	assert.Equal(t, int64(7), *captured.UserID)
	assert.Equal(t, "INFO", captured.Payload.Level)
	assert.Equal(t, "Conversation resolved", captured.Payload.Text)
	assert.NotEmpty(t, captured.OccurredAt)
}

func TestEmitPublishFailureIsSwallowed(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	emitter := NewAuditEmitter(publisher, "audit.messaging", "messaging-service", "test")

	publisher.On("Publish", mock.Anything, "audit.messaging", mock.Anything).Return(assert.AnError).Once()

	emitter.Emit(context.Background(), "ERROR", "message send failed", "req-2", nil)
	publisher.AssertExpectations(t)
}

func TestEmitWithoutPublisherIsNoOp(t *testing.T) {
	emitter := NewAuditEmitter(nil, "audit.messaging", "messaging-service", "test")
	emitter.Emit(context.Background(), "INFO", "noop", "req-3", nil)

	var nilEmitter *AuditEmitter
	nilEmitter.Emit(context.Background(), "INFO", "noop", "req-4", nil)
}
