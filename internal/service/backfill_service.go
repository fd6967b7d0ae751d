package service

import (
	"context"
	"fmt"

	"avatar-engine-be/internal/entity"
	"avatar-engine-be/internal/pkg/logger"
	"avatar-engine-be/internal/repository/contract"
	"avatar-engine-be/internal/repository/specification"
)

// BackfillSink receives each page of messages.
type BackfillSink func(ctx context.Context, msgs []*entity.Message) error

type BackfillProgress struct {
	Page      int
	LastId    int64
	Processed int
	Total     int64
}

type IBackfillService interface {
	Run(ctx context.Context, afterId int64, batchSize int, sink BackfillSink, onPage func(BackfillProgress)) (BackfillProgress, error)
}

type backfillService struct {
	messages contract.MessageRepository
	logger   logger.ILogger
}

func NewBackfillService(messages contract.MessageRepository, l logger.ILogger) IBackfillService {
	return &backfillService{messages: messages, logger: l}
}

// Run pages through the message table in id order starting after afterId.
// It stops at the first sink error; the returned progress tells where to
// resume.
func (s *backfillService) Run(ctx context.Context, afterId int64, batchSize int, sink BackfillSink, onPage func(BackfillProgress)) (BackfillProgress, error) {
	if batchSize <= 0 {
		return BackfillProgress{}, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}

	total, err := s.messages.Count(ctx, specification.MessageIdAfter{Id: afterId})
	if err != nil {
		return BackfillProgress{}, fmt.Errorf("count messages: %w", err)
	}

	progress := BackfillProgress{LastId: afterId, Total: total}
	for {
		if err := ctx.Err(); err != nil {
			return progress, err
		}

		msgs, lastId, err := s.messages.FindPage(ctx, progress.LastId, batchSize)
		if err != nil {
			return progress, fmt.Errorf("load page after %d: %w", progress.LastId, err)
		}
		if lastId == progress.LastId {
			break
		}

		if len(msgs) > 0 {
			if err := sink(ctx, msgs); err != nil {
				return progress, fmt.Errorf("page after %d: %w", progress.LastId, err)
			}
		}

		progress.Page++
		progress.LastId = lastId
		progress.Processed += len(msgs)
		if onPage != nil {
			onPage(progress)
		}
	}

	s.logger.Info("BACKFILL", "Backfill complete", map[string]interface{}{
		"pages":     progress.Page,
		"processed": progress.Processed,
		"last_id":   progress.LastId,
	})
	return progress, nil
}
