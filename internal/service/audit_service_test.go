package service

import (
	"context"
	"testing"

	"rag-chat-be/internal/constant"
	"rag-chat-be/pkg/events"
	pktNats "rag-chat-be/pkg/nats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSubscriber struct {
	subject string
	durable string
	handler pktNats.EventHandler
}

func (c *captureSubscriber) Subscribe(ctx context.Context, subject string, durableName string, handler pktNats.EventHandler) error {
	c.subject, c.durable, c.handler = subject, durableName, handler
	return nil
}

func TestAuditService_WritesEvents(t *testing.T) {
	sub := &captureSubscriber{}
	audit := &recordingLogger{}
	require.NoError(t, NewAuditService(sub, audit).Start(context.Background()))

	assert.Equal(t, "chat.completed", sub.subject)
	assert.Equal(t, constant.AuditDurableName, sub.durable)

	ev := events.FromPayload(events.TypeChatCompleted, map[string]interface{}{"request_id": "r"})
	require.NoError(t, sub.handler(context.Background(), ev))
	require.Len(t, audit.entries, 1)
	assert.Equal(t, "r", audit.entries[0].details["request_id"])
}
