package serverutils

import (
	"errors"
	"testing"
	"time"

	"avatar-engine-be/internal/apperror"
	"avatar-engine-be/internal/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRequest(t *testing.T) {
	channel := int64(4)
	valid := dto.MessageRequest{
		Id:        1,
		Content:   "hello",
		CreatedAt: time.Now(),
		ChannelId: &channel,
		Author:    dto.MessageParticipant{Id: 2},
	}

	tests := []struct {
		name  string
		req   any
		field string
	}{
		{name: "valid channel message", req: &valid},
		{
			name: "missing id",
			req: func() *dto.MessageRequest {
				r := valid
				r.Id = 0
				return &r
			}(),
			field: "Id",
		},
		{
			name: "neither channel nor recipient",
			req: func() *dto.MessageRequest {
				r := valid
				r.ChannelId = nil
				return &r
			}(),
			field: "ChannelId",
		},
		{
			name: "channel and recipient",
			req: func() *dto.MessageRequest {
				r := valid
				r.Recipient = &dto.MessageParticipant{Id: 9}
				return &r
			}(),
			field: "ChannelId",
		},
		{
			name:  "nested message",
			req:   &dto.RespondRequest{AvatarUserId: 8, Message: dto.MessageRequest{CreatedAt: time.Now(), ChannelId: &channel}},
			field: "Message.Id",
		},
		{
			name:  "empty index batch",
			req:   &dto.IndexMessagesRequest{},
			field: "Messages",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequest(tt.req)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}

			var verr *apperror.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}
