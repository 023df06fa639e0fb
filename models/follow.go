package models

import "time"

// FollowEdge - направленная подписка follower -> followed.
// Пара (follower_id, followed_id) является составным первичным ключом,
// подписка на самого себя запрещена check-ограничением.
type FollowEdge struct {
	FollowerID int64     `gorm:"primaryKey;check:chk_no_self_follow,follower_id <> followed_id" json:"follower_id"`
	FollowedID int64     `gorm:"primaryKey" json:"followed_id"`
	CreatedAt  time.Time `json:"created_at"`

	Follower User `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE" json:"-"`
	Followed User `gorm:"foreignKey:FollowedID;constraint:OnDelete:CASCADE" json:"-"`
}

func (FollowEdge) TableName() string {
	return "user_following"
}
