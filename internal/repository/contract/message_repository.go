package contract

import (
	"context"

	"avatar-engine-be/internal/entity"
	"avatar-engine-be/internal/repository/specification"
)

// MessageRepository reads the chat service's message table.
type MessageRepository interface {
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Message, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// FindPage returns up to limit messages with id > afterId in id order,
	// and the id of the last row scanned. lastId is afterId when the page is
	// empty.
	FindPage(ctx context.Context, afterId int64, limit int, specs ...specification.Specification) (msgs []*entity.Message, lastId int64, err error)
}
