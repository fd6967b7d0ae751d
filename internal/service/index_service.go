package service

import (
	"context"
	"encoding/json"
	"fmt"

	"avatar-engine-be/internal/apperror"
	"avatar-engine-be/internal/dto"
	"avatar-engine-be/internal/entity"
	"avatar-engine-be/internal/mapper"
	"avatar-engine-be/internal/pkg/logger"
	"avatar-engine-be/internal/pkg/serverutils"
)

// MessageIndexer writes messages into the vector store.
type MessageIndexer interface {
	IndexMessages(ctx context.Context, msgs []*entity.Message) error
}

type IIndexService interface {
	// Enqueue validates the batch and hands it to the index queue.
	Enqueue(ctx context.Context, req *dto.IndexMessagesRequest) (*dto.IndexMessagesResponse, error)
	// IndexNow indexes the messages synchronously.
	IndexNow(ctx context.Context, msgs []*entity.Message) error
}

type indexService struct {
	publisher     IPublisherService
	indexer       MessageIndexer
	logger        logger.ILogger
	messageMapper *mapper.MessageMapper
}

func NewIndexService(publisher IPublisherService, indexer MessageIndexer, l logger.ILogger) IIndexService {
	return &indexService{
		publisher:     publisher,
		indexer:       indexer,
		logger:        l,
		messageMapper: mapper.NewMessageMapper(),
	}
}

func (s *indexService) Enqueue(ctx context.Context, req *dto.IndexMessagesRequest) (*dto.IndexMessagesResponse, error) {
	if err := serverutils.ValidateRequest(req); err != nil {
		return nil, err
	}
	if _, err := s.messageMapper.FromRequests(req.Messages); err != nil {
		return nil, apperror.NewValidationError("messages", err.Error())
	}

	payload, err := json.Marshal(dto.IndexQueuePayload{Messages: req.Messages})
	if err != nil {
		return nil, fmt.Errorf("marshal index payload: %w", err)
	}
	if err := s.publisher.Publish(ctx, payload); err != nil {
		return nil, fmt.Errorf("publish index payload: %w", err)
	}

	s.logger.Debug("INDEX", "Messages queued", map[string]interface{}{"count": len(req.Messages)})
	return &dto.IndexMessagesResponse{Queued: len(req.Messages)}, nil
}

func (s *indexService) IndexNow(ctx context.Context, msgs []*entity.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := s.indexer.IndexMessages(ctx, msgs); err != nil {
		return err
	}

	s.logger.Info("INDEX", "Messages indexed", map[string]interface{}{
		"count":    len(msgs),
		"first_id": msgs[0].Id,
		"last_id":  msgs[len(msgs)-1].Id,
	})
	return nil
}
