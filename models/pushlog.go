package models

import "time"

type PushReason string

const (
	PushReasonCurrentUserBirthday  PushReason = "current_user_birthday"
	PushReasonFollowedUserBirthday PushReason = "followed_user_birthday"
)

// PushSendingLog - append-only журнал отправленных пушей о днях рождения.
// Используется только для защиты от повторных отправок в окне кулдауна.
type PushSendingLog struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	SentAt       time.Time  `gorm:"not null" json:"sent_at"`
	Reason       PushReason `gorm:"size:40;not null" json:"reason"`
	ReasonUserID int64      `gorm:"index;not null" json:"reason_user_id"`
	TargetUserID int64      `gorm:"not null" json:"target_user_id"`

	ReasonUser User `gorm:"foreignKey:ReasonUserID;constraint:OnDelete:CASCADE" json:"-"`
	TargetUser User `gorm:"foreignKey:TargetUserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (PushSendingLog) TableName() string {
	return "push_sending_log"
}
