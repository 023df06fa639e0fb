package models

import (
	"time"
)

type Gender string

const (
	MALE   Gender = "male"
	FEMALE Gender = "female"
)

type User struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	DisplayName string     `gorm:"size:50;not null" json:"display_name"`
	Email       *string    `gorm:"size:100;uniqueIndex" json:"email,omitempty"`
	Phone       *string    `gorm:"size:15" json:"phone,omitempty"`
	BirthDate   *time.Time `gorm:"type:date" json:"birth_date"`
	Gender      *Gender    `gorm:"type:gender" json:"gender"`
	PhotoURL    *string    `gorm:"size:200" json:"photo_url"`
	PhotoPath   *string    `gorm:"size:200" json:"-"`

	VkID          *string `gorm:"size:15;uniqueIndex" json:"-"`
	VkAccessToken *string `gorm:"size:500;uniqueIndex" json:"-"`
	// Кэш списка друзей из VK, сырой JSON ответа friends.get
	VkFriendsData []byte `gorm:"type:jsonb" json:"-"`

	FirebaseUID              string     `gorm:"size:100;uniqueIndex;not null" json:"-"`
	FirebasePushToken        *string    `gorm:"size:200" json:"-"`
	FirebasePushTokenSavedAt *time.Time `json:"-"`

	RegisteredAt time.Time  `json:"registered_at"`
	LastLoginAt  *time.Time `json:"-"`

	// Троттлинг рассылки "скоро день рождения" подписчикам
	PreBdayPushForFollowersLastSentAt *time.Time `json:"-"`
}

func (User) TableName() string {
	return "users"
}
