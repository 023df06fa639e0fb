package services

import (
	"context"
	"fmt"
	"time"
	"wishlist/config"
	"wishlist/db"
	"wishlist/models"

	log "github.com/sirupsen/logrus"
)

// NotificationService - батч-сканы состояний, о которых еще не объявляли.
// Запускаются внешним планировщиком, безопасны к повторному запуску:
// пометка "отправлено" всегда set-based по тем же строкам, что и выборка.
// Худший исход падения между выборкой и пометкой - один лишний пуш.
type NotificationService struct {
	Queue PushEnqueuer
}

func NewNotificationService(queue PushEnqueuer) *NotificationService {
	return &NotificationService{Queue: queue}
}

type notifWindows struct {
	creationDelay        time.Duration
	selfAdvance          time.Duration
	selfCooldown         time.Duration
	followerMinDays      int
	followerMaxDays      int
	followerCooldownDays int
}

func windows() notifWindows {
	w := notifWindows{
		creationDelay:        30 * time.Minute,
		selfAdvance:          21 * 24 * time.Hour,
		selfCooldown:         30 * 24 * time.Hour,
		followerMinDays:      7,
		followerMaxDays:      21,
		followerCooldownDays: 200,
	}
	if config.AppConfig == nil {
		return w
	}
	n := config.AppConfig.Notifications
	w.creationDelay = time.Duration(n.CreationDelayMinutes) * time.Minute
	w.selfAdvance = time.Duration(n.SelfBirthdayAdvanceDays) * 24 * time.Hour
	w.selfCooldown = time.Duration(n.SelfBirthdayCooldownDays) * 24 * time.Hour
	w.followerMinDays = n.FollowerBirthdayMinDays
	w.followerMaxDays = n.FollowerBirthdayMaxDays
	w.followerCooldownDays = n.FollowerBirthdayCooldownDays
	return w
}

// SendReservationNotifications находит хотелки с резервацией, о которой
// владельцу еще не сообщали, и шлет по одному пушу на владельца.
// Строки помечаются по точным id выборки, а не по совпадению токена:
// переиспользованный токен не должен помечать чужие строки.
func (ns *NotificationService) SendReservationNotifications(ctx context.Context) error {
	var wishes []models.Wish
	err := db.GetReadOnlyDB(ctx).
		Where("reserved_by_id IS NOT NULL AND is_reservation_notification_sent = ?", false).
		Find(&wishes).Error
	if err != nil {
		return err
	}
	if len(wishes) == 0 {
		return nil
	}

	wishIDs := make([]int64, 0, len(wishes))
	ownerSet := make(map[int64]bool)
	for _, wish := range wishes {
		wishIDs = append(wishIDs, wish.ID)
		ownerSet[wish.UserID] = true
	}
	ownerIDs := make([]int64, 0, len(ownerSet))
	for id := range ownerSet {
		ownerIDs = append(ownerIDs, id)
	}

	err = db.GetWriteDB(ctx).Model(&models.Wish{}).
		Where("id IN (?)", wishIDs).
		Update("is_reservation_notification_sent", true).Error
	if err != nil {
		return err
	}

	var owners []models.User
	err = db.GetReadOnlyDB(ctx).
		Where("id IN (?) AND firebase_push_token IS NOT NULL", ownerIDs).
		Find(&owners).Error
	if err != nil {
		return err
	}

	for _, owner := range owners {
		ns.enqueue(ctx, PushTask{
			Tokens: []string{*owner.FirebasePushToken},
			Title:  "Кто-то хочет сделать Вам подарок!",
			Body:   "Одно из ваших желаний было зарезервировано",
		})
	}
	log.Printf("Reservation scan: %d wishes marked, %d owners notified", len(wishIDs), len(owners))
	return nil
}

// SendWishCreationNotifications сообщает подписчикам о новых хотелках.
// Хотелки моложе задержки не трогаются, чтобы владелец успел дооформить
// их в той же сессии. Пометка выполняется одним апдейтом и не зависит
// от успеха отправки по каждому владельцу.
func (ns *NotificationService) SendWishCreationNotifications(ctx context.Context) error {
	cutoff := utcNow().Add(-windows().creationDelay)

	var wishes []models.Wish
	err := db.GetReadOnlyDB(ctx).
		Where("is_creation_notification_sent = ? AND created_at < ?", false, cutoff).
		Find(&wishes).Error
	if err != nil {
		return err
	}
	if len(wishes) == 0 {
		return nil
	}

	wishIDs := make([]int64, 0, len(wishes))
	ownerSet := make(map[int64]bool)
	for _, wish := range wishes {
		wishIDs = append(wishIDs, wish.ID)
		ownerSet[wish.UserID] = true
	}

	err = db.GetWriteDB(ctx).Model(&models.Wish{}).
		Where("id IN (?)", wishIDs).
		Update("is_creation_notification_sent", true).Error
	if err != nil {
		return err
	}

	for ownerID := range ownerSet {
		var owner models.User
		if err := db.GetReadOnlyDB(ctx).First(&owner, ownerID).Error; err != nil {
			log.Printf("Creation scan: failed to load owner %d: %v", ownerID, err)
			continue
		}

		tokens, err := ns.followerPushTokens(ctx, ownerID)
		if err != nil {
			log.Printf("Creation scan: failed to load followers of %d: %v", ownerID, err)
			continue
		}
		if len(tokens) == 0 {
			continue
		}

		verb := "обновил"
		if owner.Gender != nil && *owner.Gender == models.FEMALE {
			verb = "обновила"
		}
		ns.enqueue(ctx, PushTask{
			Tokens: tokens,
			Title:  fmt.Sprintf("%s %s список желаний", owner.DisplayName, verb),
			Body:   fmt.Sprintf("Узнайте, что %s хочет получить в подарок", owner.DisplayName),
			Link:   UserDeepLink(owner.ID),
		})
	}
	return nil
}

// SendUpcomingSelfBirthdayNotifications напоминает пользователю о его
// собственном приближающемся дне рождения. Повтор защищен журналом пушей.
func (ns *NotificationService) SendUpcomingSelfBirthdayNotifications(ctx context.Context) error {
	w := windows()
	now := utcNow()

	var users []models.User
	err := db.GetReadOnlyDB(ctx).
		Where("birth_date IS NOT NULL AND firebase_push_token IS NOT NULL").
		Find(&users).Error
	if err != nil {
		return err
	}

	for _, user := range users {
		next := NextBirthday(*user.BirthDate, now)
		if next.Sub(now) >= w.selfAdvance {
			continue
		}

		var recent int64
		err = db.GetReadOnlyDB(ctx).Model(&models.PushSendingLog{}).
			Where("reason = ? AND reason_user_id = ? AND sent_at > ?",
				models.PushReasonCurrentUserBirthday, user.ID, now.Add(-w.selfCooldown)).
			Count(&recent).Error
		if err != nil {
			return err
		}
		if recent > 0 {
			continue
		}

		ns.enqueue(ctx, PushTask{
			Tokens: []string{*user.FirebasePushToken},
			Title:  "🎉Скоро твой день рождения!🎉",
			Body:   "Не забудь обновить свои хотелки и поделиться ими с друзьями и близкими, чтобы они узнали, что ты хочешь получить в подарок! ✨🎁",
		})
		logRow := models.PushSendingLog{
			SentAt:       now,
			Reason:       models.PushReasonCurrentUserBirthday,
			ReasonUserID: user.ID,
			TargetUserID: user.ID,
		}
		if err := db.GetWriteDB(ctx).Create(&logRow).Error; err != nil {
			return err
		}
	}
	return nil
}

// SendUpcomingFollowedBirthdayNotifications предупреждает подписчиков о
// приближающихся днях рождения. Штамп троттлинга ставится до отправки и
// независимо от наличия токенов у подписчиков, чтобы повторные сканы не
// перебирали одних и тех же пользователей каждый запуск.
func (ns *NotificationService) SendUpcomingFollowedBirthdayNotifications(ctx context.Context) error {
	w := windows()
	now := utcNow()
	cooldownCutoff := now.AddDate(0, 0, -w.followerCooldownDays)

	var users []models.User
	err := db.GetReadOnlyDB(ctx).
		Where("birth_date IS NOT NULL").
		Where("pre_bday_push_for_followers_last_sent_at IS NULL OR pre_bday_push_for_followers_last_sent_at < ?", cooldownCutoff).
		Find(&users).Error
	if err != nil {
		return err
	}

	for _, user := range users {
		if !BirthdayInWindow(*user.BirthDate, now, w.followerMinDays, w.followerMaxDays) {
			continue
		}

		err = db.GetWriteDB(ctx).Model(&models.User{}).Where("id = ?", user.ID).
			Update("pre_bday_push_for_followers_last_sent_at", now).Error
		if err != nil {
			return err
		}

		tokens, err := ns.followerPushTokens(ctx, user.ID)
		if err != nil {
			log.Printf("Birthday scan: failed to load followers of %d: %v", user.ID, err)
			continue
		}
		if len(tokens) == 0 {
			continue
		}

		ns.enqueue(ctx, PushTask{
			Tokens: tokens,
			Title:  fmt.Sprintf("🎉Скоро день рождения у %s!🎉", user.DisplayName),
			Body:   "Загляни в вишлист, чтобы выбрать идеальный подарок! 🎈",
			Link:   UserDeepLink(user.ID),
		})
	}
	return nil
}

func (ns *NotificationService) followerPushTokens(ctx context.Context, userID int64) ([]string, error) {
	var tokens []string
	err := db.GetReadOnlyDB(ctx).Model(&models.User{}).
		Joins("JOIN user_following f ON f.follower_id = users.id").
		Where("f.followed_id = ? AND users.firebase_push_token IS NOT NULL", userID).
		Pluck("users.firebase_push_token", &tokens).Error
	return tokens, err
}

func (ns *NotificationService) enqueue(ctx context.Context, task PushTask) {
	if ns.Queue == nil {
		return
	}
	if err := ns.Queue.EnqueuePush(ctx, task); err != nil {
		log.Printf("Failed to enqueue push: %v", err)
	}
}

// NextBirthday возвращает ближайшее будущее наступление даты рождения
func NextBirthday(birthDate, now time.Time) time.Time {
	next := time.Date(now.Year(), birthDate.Month(), birthDate.Day(), 0, 0, 0, 0, now.Location())
	if next.Before(now) {
		next = next.AddDate(1, 0, 0)
	}
	return next
}

// BirthdayInWindow проверяет попадание дня рождения в окно
// [today+minDays, today+maxDays]. Сравнение строковое по текущему и
// следующему календарному году, чтобы окно работало через границу года.
func BirthdayInWindow(birthDate, today time.Time, minDays, maxDays int) bool {
	lower := today.AddDate(0, 0, minDays).Format("2006-01-02")
	upper := today.AddDate(0, 0, maxDays).Format("2006-01-02")

	monthDay := birthDate.Format("01-02")
	thisYear := fmt.Sprintf("%d-%s", today.Year(), monthDay)
	nextYear := fmt.Sprintf("%d-%s", today.Year()+1, monthDay)

	return (thisYear >= lower && thisYear <= upper) || (nextYear >= lower && nextYear <= upper)
}
