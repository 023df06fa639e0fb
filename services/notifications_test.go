package services

import (
	"context"
	"testing"
	"time"
	"wishlist/db"
	"wishlist/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBirthDate(t *testing.T, user *models.User, birthDate time.Time) {
	t.Helper()
	require.NoError(t, db.ORM.Model(user).Update("birth_date", birthDate).Error)
}

func TestReservationScan(t *testing.T) {
	setupTestDB(t)
	setupTestConfig(t)
	queue := &captureQueue{}
	ns := NewNotificationService(queue)
	ws := NewWishService()

	owner := createTestUserWithPushToken(t)
	silentOwner := createTestUser(t) // без пуш-токена
	actor := createTestUser(t)

	reserved := createTestWish(t, owner.ID)
	require.NoError(t, ws.Reserve(context.Background(), reserved.ID, actor.ID))
	silentReserved := createTestWish(t, silentOwner.ID)
	require.NoError(t, ws.Reserve(context.Background(), silentReserved.ID, actor.ID))
	createTestWish(t, owner.ID) // не зарезервирована, скан ее не трогает

	require.NoError(t, ns.SendReservationNotifications(context.Background()))

	// Пуш только владельцу с токеном, но помечены обе строки
	require.Len(t, queue.tasks, 1)
	assert.Equal(t, []string{*owner.FirebasePushToken}, queue.tasks[0].Tokens)
	assert.True(t, reloadWish(t, reserved.ID).IsReservationNotificationSent)
	assert.True(t, reloadWish(t, silentReserved.ID).IsReservationNotificationSent)

	// Повторный скан ничего не шлет
	require.NoError(t, ns.SendReservationNotifications(context.Background()))
	assert.Len(t, queue.tasks, 1)
}

func TestCreationScan(t *testing.T) {
	setupTestDB(t)
	setupTestConfig(t)
	queue := &captureQueue{}
	ns := NewNotificationService(queue)
	fs := NewFollowService(nil)

	owner := createTestUser(t)
	follower := createTestUserWithPushToken(t)
	require.NoError(t, fs.Follow(context.Background(), follower.ID, owner.ID))

	oldWish := createTestWish(t, owner.ID)
	require.NoError(t, db.ORM.Model(oldWish).
		Update("created_at", time.Now().UTC().Add(-time.Hour)).Error)
	createTestWish(t, owner.ID) // свежая, младше задержки

	require.NoError(t, ns.SendWishCreationNotifications(context.Background()))

	require.Len(t, queue.tasks, 1)
	assert.Equal(t, []string{*follower.FirebasePushToken}, queue.tasks[0].Tokens)
	assert.Contains(t, queue.tasks[0].Title, owner.DisplayName)
	assert.NotEmpty(t, queue.tasks[0].Link)
	assert.True(t, reloadWish(t, oldWish.ID).IsCreationNotificationSent)

	require.NoError(t, ns.SendWishCreationNotifications(context.Background()))
	assert.Len(t, queue.tasks, 1)
}

func TestSelfBirthdayScan(t *testing.T) {
	setupTestDB(t)
	setupTestConfig(t)
	queue := &captureQueue{}
	ns := NewNotificationService(queue)

	soon := createTestUserWithPushToken(t)
	setBirthDate(t, soon, time.Now().UTC().AddDate(-25, 0, 10))

	far := createTestUserWithPushToken(t)
	setBirthDate(t, far, time.Now().UTC().AddDate(-30, 0, 60))

	noToken := createTestUser(t)
	setBirthDate(t, noToken, time.Now().UTC().AddDate(-20, 0, 5))

	require.NoError(t, ns.SendUpcomingSelfBirthdayNotifications(context.Background()))

	require.Len(t, queue.tasks, 1)
	assert.Equal(t, []string{*soon.FirebasePushToken}, queue.tasks[0].Tokens)

	var logCount int64
	require.NoError(t, db.ORM.Model(&models.PushSendingLog{}).
		Where("reason = ? AND reason_user_id = ?", models.PushReasonCurrentUserBirthday, soon.ID).
		Count(&logCount).Error)
	assert.Equal(t, int64(1), logCount)

	// Кулдаун: повторный запуск пуш не дублирует
	require.NoError(t, ns.SendUpcomingSelfBirthdayNotifications(context.Background()))
	assert.Len(t, queue.tasks, 1)
}

func TestFollowerBirthdayScan(t *testing.T) {
	setupTestDB(t)
	setupTestConfig(t)
	queue := &captureQueue{}
	ns := NewNotificationService(queue)
	fs := NewFollowService(nil)

	birthdayUser := createTestUser(t)
	setBirthDate(t, birthdayUser, time.Now().UTC().AddDate(-25, 0, 10))
	follower := createTestUserWithPushToken(t)
	require.NoError(t, fs.Follow(context.Background(), follower.ID, birthdayUser.ID))

	// День рождения в окне, но подписчиков нет: штамп все равно ставится
	lonely := createTestUser(t)
	setBirthDate(t, lonely, time.Now().UTC().AddDate(-40, 0, 14))

	require.NoError(t, ns.SendUpcomingFollowedBirthdayNotifications(context.Background()))

	require.Len(t, queue.tasks, 1)
	assert.Equal(t, []string{*follower.FirebasePushToken}, queue.tasks[0].Tokens)
	assert.Contains(t, queue.tasks[0].Title, birthdayUser.DisplayName)

	var stamped models.User
	require.NoError(t, db.ORM.First(&stamped, lonely.ID).Error)
	assert.NotNil(t, stamped.PreBdayPushForFollowersLastSentAt)

	// Троттлинг по штампу: повторный запуск молчит
	require.NoError(t, ns.SendUpcomingFollowedBirthdayNotifications(context.Background()))
	assert.Len(t, queue.tasks, 1)
}

func TestNextBirthday(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	birthDate := time.Date(1990, 8, 1, 0, 0, 0, 0, time.UTC)
	next := NextBirthday(birthDate, now)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), next)

	// День рождения уже прошел в этом году
	birthDate = time.Date(1990, 3, 1, 0, 0, 0, 0, time.UTC)
	next = NextBirthday(birthDate, now)
	assert.Equal(t, time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC), next)
}

func TestBirthdayInWindow(t *testing.T) {
	today := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	inWindow := time.Date(1990, 6, 25, 0, 0, 0, 0, time.UTC)
	assert.True(t, BirthdayInWindow(inWindow, today, 7, 21))

	tooSoon := time.Date(1990, 6, 18, 0, 0, 0, 0, time.UTC)
	assert.False(t, BirthdayInWindow(tooSoon, today, 7, 21))

	tooFar := time.Date(1990, 8, 1, 0, 0, 0, 0, time.UTC)
	assert.False(t, BirthdayInWindow(tooFar, today, 7, 21))
}

func TestBirthdayInWindowYearWraparound(t *testing.T) {
	today := time.Date(2026, 12, 30, 0, 0, 0, 0, time.UTC)

	// Окно 2027-01-06 .. 2027-01-20 через границу года
	january := time.Date(1995, 1, 10, 0, 0, 0, 0, time.UTC)
	assert.True(t, BirthdayInWindow(january, today, 7, 21))

	outside := time.Date(1995, 2, 10, 0, 0, 0, 0, time.UTC)
	assert.False(t, BirthdayInWindow(outside, today, 7, 21))
}
