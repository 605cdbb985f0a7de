package service

import (
	"context"

	"rag-chat-be/internal/constant"
	"rag-chat-be/internal/pkg/logger"
	"rag-chat-be/pkg/events"
	pktNats "rag-chat-be/pkg/nats"
)

// EventSubscriber is satisfied by the NATS subscriber.
type EventSubscriber interface {
	Subscribe(ctx context.Context, subject string, durableName string, handler pktNats.EventHandler) error
}

type IAuditService interface {
	Start(ctx context.Context) error
}

type auditService struct {
	subscriber EventSubscriber
	audit      logger.ILogger
}

// NewAuditService copies chat events from the bus into the audit log.
func NewAuditService(subscriber EventSubscriber, audit logger.ILogger) IAuditService {
	return &auditService{subscriber: subscriber, audit: audit}
}

func (s *auditService) Start(ctx context.Context) error {
	return s.subscriber.Subscribe(ctx, pktNats.Subject(events.TypeChatCompleted), constant.AuditDurableName, s.handle)
}

func (s *auditService) handle(ctx context.Context, event events.Event) error {
	s.audit.Info(chatModule, "chat."+event.EventType(), event.Payload())
	return nil
}
