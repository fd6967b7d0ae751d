package model

// User is a row of the chat service's users table. Read only.
type User struct {
	Id          int64   `gorm:"primaryKey"`
	DisplayName string  `gorm:"type:varchar(255)"`
	Title       *string `gorm:"type:varchar(255)"`
	Bio         *string `gorm:"type:text"`
}

func (User) TableName() string {
	return "users"
}
