package implementation

import (
	"context"

	"avatar-engine-be/internal/entity"
	"avatar-engine-be/internal/mapper"
	"avatar-engine-be/internal/model"
	"avatar-engine-be/internal/repository/contract"
	"avatar-engine-be/internal/repository/specification"

	"gorm.io/gorm"
)

type MessageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.MessageMapper
}

func NewMessageRepository(db *gorm.DB) contract.MessageRepository {
	return &MessageRepositoryImpl{
		db:     db,
		mapper: mapper.NewMessageMapper(),
	}
}

func (r *MessageRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

// FindAll loads messages with author and recipient display names. Rows that
// cannot be resolved into a channel or direct message are skipped.
func (r *MessageRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Message, error) {
	rows, err := r.scan(ctx, specs...)
	if err != nil {
		return nil, err
	}
	return r.resolve(rows), nil
}

func (r *MessageRepositoryImpl) FindPage(ctx context.Context, afterId int64, limit int, specs ...specification.Specification) ([]*entity.Message, int64, error) {
	specs = append([]specification.Specification{
		specification.MessageIdAfter{Id: afterId},
		specification.OrderBy{Field: "messages.id"},
		specification.Pagination{Limit: limit},
	}, specs...)

	rows, err := r.scan(ctx, specs...)
	if err != nil {
		return nil, afterId, err
	}

	lastId := afterId
	if len(rows) > 0 {
		lastId = rows[len(rows)-1].Id
	}
	return r.resolve(rows), lastId, nil
}

func (r *MessageRepositoryImpl) scan(ctx context.Context, specs ...specification.Specification) ([]*model.Message, error) {
	var rows []*model.Message
	query := r.db.WithContext(ctx).
		Table("messages").
		Select("messages.*, author.display_name AS author_name, recipient.display_name AS recipient_name").
		Joins("LEFT JOIN users AS author ON author.id = messages.author_id").
		Joins("LEFT JOIN users AS recipient ON recipient.id = messages.recipient_id")
	query = r.applySpecifications(query, specs...)

	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *MessageRepositoryImpl) resolve(rows []*model.Message) []*entity.Message {
	messages := make([]*entity.Message, 0, len(rows))
	for _, row := range rows {
		msg, err := r.mapper.ToEntity(row)
		if err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	return messages
}

func (r *MessageRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Message{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
