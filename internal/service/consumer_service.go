package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"avatar-engine-be/internal/apperror"
	"avatar-engine-be/internal/dto"
	"avatar-engine-be/internal/mapper"
	"avatar-engine-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber    message.Subscriber
	topicName     string
	indexService  IIndexService
	maxAttempts   int
	logger        logger.ILogger
	messageMapper *mapper.MessageMapper

	mu       sync.Mutex
	attempts map[string]int
}

// NewConsumerService indexes payloads from the index queue. A failed batch
// is redelivered until it has been tried maxAttempts times.
func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	indexService IIndexService,
	maxAttempts int,
	l logger.ILogger,
) IConsumerService {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &consumerService{
		subscriber:    subscriber,
		topicName:     topicName,
		indexService:  indexService,
		maxAttempts:   maxAttempts,
		logger:        l,
		messageMapper: mapper.NewMessageMapper(),
		attempts:      make(map[string]int),
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	cs.logger.Info("CONSUMER", "Index consumer started", map[string]interface{}{"topic": cs.topicName})
	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.IndexQueuePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("CONSUMER", "Failed to unmarshal index payload", map[string]interface{}{
			"uuid":  msg.UUID,
			"error": err.Error(),
		})
		msg.Ack()
		return
	}

	msgs, err := cs.messageMapper.FromRequests(payload.Messages)
	if err != nil {
		cs.logger.Error("CONSUMER", "Dropping unmappable index payload", map[string]interface{}{
			"uuid":  msg.UUID,
			"error": err.Error(),
		})
		msg.Ack()
		return
	}

	if err := cs.indexService.IndexNow(ctx, msgs); err != nil {
		attempt := cs.recordAttempt(msg.UUID)
		details := map[string]interface{}{
			"uuid":    msg.UUID,
			"attempt": attempt,
			"error":   err.Error(),
		}
		var indexErr *apperror.IndexingError
		if errors.As(err, &indexErr) {
			details["document_ids"] = indexErr.DocumentIds
		}

		if attempt < cs.maxAttempts && ctx.Err() == nil {
			cs.logger.Warn("CONSUMER", "Indexing failed, redelivering", details)
			msg.Nack()
			return
		}
		cs.logger.Error("CONSUMER", "Indexing failed, giving up", details)
		cs.forget(msg.UUID)
		msg.Ack()
		return
	}

	cs.forget(msg.UUID)
	msg.Ack()
}

func (cs *consumerService) recordAttempt(id string) int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.attempts[id]++
	return cs.attempts[id]
}

func (cs *consumerService) forget(id string) {
	cs.mu.Lock()
	delete(cs.attempts, id)
	cs.mu.Unlock()
}
