package services

import (
	"context"
	"testing"
	"time"
	"wishlist/config"
	"wishlist/db"
	"wishlist/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB поднимает SQLite в памяти и подставляет ее вместо ORM.
// Одно соединение, иначе каждый коннект пула получит свою пустую базу.
func setupTestDB(t *testing.T) {
	t.Helper()

	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Migrate(database))
	db.ORM = database
}

func setupTestConfig(t *testing.T) {
	t.Helper()

	conf := &config.ConfigSchema{}
	conf.Media.Root = t.TempDir()
	conf.FrontendURL = "https://wishlist.example.com"
	conf.Notifications.CreationDelayMinutes = 30
	conf.Notifications.SelfBirthdayAdvanceDays = 21
	conf.Notifications.SelfBirthdayCooldownDays = 30
	conf.Notifications.FollowerBirthdayMinDays = 7
	conf.Notifications.FollowerBirthdayMaxDays = 21
	conf.Notifications.FollowerBirthdayCooldownDays = 200
	config.AppConfig = conf
	t.Cleanup(func() { config.AppConfig = nil })
}

func createTestUser(t *testing.T) *models.User {
	t.Helper()

	user := &models.User{
		DisplayName:  gofakeit.FirstName(),
		FirebaseUID:  gofakeit.UUID(),
		RegisteredAt: time.Now().UTC(),
	}
	require.NoError(t, db.ORM.Create(user).Error)
	return user
}

func createTestUserWithPushToken(t *testing.T) *models.User {
	t.Helper()

	user := createTestUser(t)
	token := "fcm-" + gofakeit.UUID()
	require.NoError(t, db.ORM.Model(user).Update("firebase_push_token", token).Error)
	user.FirebasePushToken = &token
	return user
}

func createTestWish(t *testing.T, ownerID int64) *models.Wish {
	t.Helper()

	wish := &models.Wish{
		UserID: ownerID,
		Name:   gofakeit.ProductName(),
	}
	require.NoError(t, db.ORM.Create(wish).Error)
	return wish
}

func reloadWish(t *testing.T, id int64) *models.Wish {
	t.Helper()

	var wish models.Wish
	require.NoError(t, db.ORM.First(&wish, id).Error)
	return &wish
}

func ptr[T any](v T) *T {
	return &v
}

// captureQueue собирает задачи вместо Redis
type captureQueue struct {
	tasks []PushTask
}

func (q *captureQueue) EnqueuePush(_ context.Context, task PushTask) error {
	q.tasks = append(q.tasks, task)
	return nil
}
