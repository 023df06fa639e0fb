package models

import "time"

type Wish struct {
	ID           int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       int64   `gorm:"index;not null" json:"user_id"`
	ReservedByID *int64  `gorm:"index;check:wish_user_not_equal_reserved_by,user_id <> reserved_by_id" json:"reserved_by_id"`
	Name         string  `gorm:"size:50;not null" json:"name"`
	Description  *string `gorm:"size:1000" json:"description"`
	Link         *string `gorm:"size:500" json:"link"`
	Price        *int64  `json:"price"`
	Image        *string `gorm:"size:500" json:"image"`
	IsArchived   bool    `gorm:"default:false" json:"is_archived"`

	IsReservationNotificationSent bool `gorm:"default:false" json:"-"`
	IsCreationNotificationSent    bool `gorm:"default:false" json:"-"`

	CreatedAt time.Time `json:"created_at"`

	User       User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user"`
	ReservedBy *User `gorm:"foreignKey:ReservedByID" json:"-"`
}

func (Wish) TableName() string {
	return "wishes"
}

func (w *Wish) IsReserved() bool {
	return w.ReservedByID != nil
}
