package model

import "time"

// Message is a row of the chat service's messages table. Read only.
type Message struct {
	Id             int64  `gorm:"primaryKey"`
	Content        string `gorm:"type:text"`
	ChannelId      *int64
	AuthorId       int64
	RecipientId    *int64
	ThreadParentId *int64
	CreatedAt      time.Time

	AuthorName    string `gorm:"->;-:migration"`
	RecipientName string `gorm:"->;-:migration"`
}

func (Message) TableName() string {
	return "messages"
}
