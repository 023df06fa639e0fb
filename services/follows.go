package services

import (
	"context"
	"errors"
	"fmt"
	"wishlist/db"
	"wishlist/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AnnotatedUser - профиль с вычисленными для конкретного зрителя флагами подписки
type AnnotatedUser struct {
	models.User
	FollowsMe    bool `json:"follows_me"`
	FollowedByMe bool `json:"followed_by_me"`
}

type FollowService struct {
	// Очередь пушей, nil допустим (например в нотификаторе и части тестов)
	Queue PushEnqueuer
}

func NewFollowService(queue PushEnqueuer) *FollowService {
	return &FollowService{Queue: queue}
}

// Follow добавляет подписку follower -> target. Идемпотентна: повторная
// подписка - это no-op success. Новая подписка пушит уведомление target,
// неуспех уведомления не валит запрос.
func (fs *FollowService) Follow(ctx context.Context, followerID, targetID int64) error {
	if followerID == targetID {
		return fmt.Errorf("%w: cannot follow yourself", models.ErrForbidden)
	}

	var target models.User
	if err := db.GetReadOnlyDB(ctx).First(&target, targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: user %d", models.ErrNotFound, targetID)
		}
		return err
	}

	edge := models.FollowEdge{FollowerID: followerID, FollowedID: targetID}
	result := db.GetWriteDB(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&edge)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Подписка уже была
		return nil
	}

	fs.notifyNewFollower(ctx, &target, followerID)
	return nil
}

// Unfollow убирает подписку. Удаление отсутствующей - no-op success.
func (fs *FollowService) Unfollow(ctx context.Context, followerID, targetID int64) error {
	return db.GetWriteDB(ctx).
		Where("follower_id = ? AND followed_id = ?", followerID, targetID).
		Delete(&models.FollowEdge{}).Error
}

// Followers возвращает подписчиков пользователя
func (fs *FollowService) Followers(ctx context.Context, userID int64) ([]models.User, error) {
	var followers []models.User
	err := db.GetReadOnlyDB(ctx).
		Joins("JOIN user_following f ON f.follower_id = users.id").
		Where("f.followed_id = ?", userID).
		Find(&followers).Error
	return followers, err
}

// Follows возвращает пользователей, на которых подписан userID
func (fs *FollowService) Follows(ctx context.Context, userID int64) ([]models.User, error) {
	var followed []models.User
	err := db.GetReadOnlyDB(ctx).
		Joins("JOIN user_following f ON f.followed_id = users.id").
		Where("f.follower_id = ?", userID).
		Find(&followed).Error
	return followed, err
}

// Annotate вычисляет флаги follows_me / followed_by_me для набора кандидатов
// одним батч-запросом по таблице связей, без запроса на каждого кандидата.
func (fs *FollowService) Annotate(ctx context.Context, viewerID int64, users []models.User) ([]AnnotatedUser, error) {
	annotated := make([]AnnotatedUser, 0, len(users))
	if len(users) == 0 {
		return annotated, nil
	}

	ids := make([]int64, 0, len(users))
	for _, user := range users {
		ids = append(ids, user.ID)
	}

	var edges []models.FollowEdge
	err := db.GetReadOnlyDB(ctx).
		Where("(follower_id = ? AND followed_id IN (?)) OR (followed_id = ? AND follower_id IN (?))",
			viewerID, ids, viewerID, ids).
		Find(&edges).Error
	if err != nil {
		return nil, err
	}

	followedByMe := make(map[int64]bool, len(edges))
	followsMe := make(map[int64]bool, len(edges))
	for _, edge := range edges {
		if edge.FollowerID == viewerID {
			followedByMe[edge.FollowedID] = true
		}
		if edge.FollowedID == viewerID {
			followsMe[edge.FollowerID] = true
		}
	}

	for _, user := range users {
		annotated = append(annotated, AnnotatedUser{
			User:         user,
			FollowsMe:    followsMe[user.ID],
			FollowedByMe: followedByMe[user.ID],
		})
	}
	return annotated, nil
}

func (fs *FollowService) notifyNewFollower(ctx context.Context, target *models.User, followerID int64) {
	var follower models.User
	if err := db.GetReadOnlyDB(ctx).First(&follower, followerID).Error; err != nil {
		log.Printf("Failed to load follower %d for notification: %v", followerID, err)
		return
	}

	if fs.Queue != nil && target.FirebasePushToken != nil {
		task := PushTask{
			Tokens: []string{*target.FirebasePushToken},
			Title:  "У вас новый подписчик",
			Body:   fmt.Sprintf("На вас подписался %s", follower.DisplayName),
			Link:   UserDeepLink(follower.ID),
		}
		if err := fs.Queue.EnqueuePush(ctx, task); err != nil {
			log.Printf("Failed to enqueue new follower push for %d: %v", target.ID, err)
		}
	}

	event := SocialEvent{
		UserID:  target.ID,
		Event:   "new_follower",
		ActorID: follower.ID,
		Message: fmt.Sprintf("На вас подписался %s", follower.DisplayName),
	}
	if err := PublishSocialEvent(ctx, event); err != nil {
		// Без брокера доставляем хотя бы локальным соединениям
		log.Debugf("Social event publish skipped: %v", err)
		_ = SendWsNotify(target.ID, event.Event, event.Message)
	}
}
