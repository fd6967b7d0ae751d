package specification

import "gorm.io/gorm"

// MessageIdAfter is the keyset cursor used when paging through messages.
type MessageIdAfter struct {
	Id int64
}

func (s MessageIdAfter) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("messages.id > ?", s.Id)
}

type MessageInChannel struct {
	ChannelId int64
}

func (s MessageInChannel) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("messages.channel_id = ?", s.ChannelId)
}
