package service

import (
	"context"
	"errors"

	"avatar-engine-be/internal/apperror"
	"avatar-engine-be/internal/dto"
	"avatar-engine-be/internal/pkg/logger"
	"avatar-engine-be/pkg/events"
	pktNats "avatar-engine-be/pkg/nats"
)

// EventSubscriber is the part of the NATS subscriber the ingest service uses.
type EventSubscriber interface {
	Subscribe(ctx context.Context, subject, durableName string, maxDeliver int, handler pktNats.EventHandler) error
}

type IIngestService interface {
	Start(ctx context.Context) error
	HandleEvent(ctx context.Context, event events.Event) error
}

// ingestService feeds message.created events from the chat service into the
// index queue.
type ingestService struct {
	subscriber   EventSubscriber
	indexService IIndexService
	durable      string
	maxDeliver   int
	logger       logger.ILogger
}

func NewIngestService(sub EventSubscriber, indexService IIndexService, durable string, maxDeliver int, l logger.ILogger) IIngestService {
	return &ingestService{
		subscriber:   sub,
		indexService: indexService,
		durable:      durable,
		maxDeliver:   maxDeliver,
		logger:       l,
	}
}

func (s *ingestService) Start(ctx context.Context) error {
	subject := pktNats.Subject(events.MessageCreated)
	if err := s.subscriber.Subscribe(ctx, subject, s.durable, s.maxDeliver, s.HandleEvent); err != nil {
		return err
	}
	s.logger.Info("INGEST", "Listening for new messages", map[string]interface{}{"subject": subject})
	return nil
}

// HandleEvent returns nil for events that can never be indexed so they are
// not redelivered.
func (s *ingestService) HandleEvent(ctx context.Context, event events.Event) error {
	if event.EventType() != events.MessageCreated {
		s.logger.Debug("INGEST", "Ignoring event", map[string]interface{}{"type": event.EventType()})
		return nil
	}

	var req dto.MessageRequest
	if err := events.Decode(event, &req); err != nil {
		s.logger.Warn("INGEST", "Dropping undecodable message event", map[string]interface{}{"error": err.Error()})
		return nil
	}

	_, err := s.indexService.Enqueue(ctx, &dto.IndexMessagesRequest{Messages: []dto.MessageRequest{req}})
	var verr *apperror.ValidationError
	if errors.As(err, &verr) {
		s.logger.Warn("INGEST", "Dropping invalid message event", map[string]interface{}{
			"message_id": req.Id,
			"error":      err.Error(),
		})
		return nil
	}
	return err
}
