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

func TestSearchUsers(t *testing.T) {
	setupTestDB(t)
	us := NewUserService(nil)

	viewer := createTestUser(t)
	require.NoError(t, db.ORM.Model(viewer).Update("display_name", "Alice Petrova").Error)

	alice := createTestUser(t)
	require.NoError(t, db.ORM.Model(alice).Update("display_name", "Alice Ivanova").Error)
	bob := createTestUser(t)
	require.NoError(t, db.ORM.Model(bob).Update("display_name", "Bob Sidorov").Error)

	// Поиск без учета регистра, зритель из выдачи исключается
	found, err := us.Search(context.Background(), viewer.ID, "ALICE")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, alice.ID, found[0].ID)

	// Пробельный запрос - пустой результат без похода в базу
	found, err = us.Search(context.Background(), viewer.ID, "   ")
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = us.Search(context.Background(), viewer.ID, "sidorov")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, bob.ID, found[0].ID)
}

func TestUpdateProfile(t *testing.T) {
	setupTestDB(t)
	us := NewUserService(nil)

	user := createTestUser(t)
	birthDate := time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)
	gender := models.FEMALE

	require.NoError(t, us.UpdateProfile(context.Background(), user.ID, ProfileUpdate{
		DisplayName: "Новое Имя",
		Gender:      &gender,
		BirthDate:   &birthDate,
	}))

	updated, err := us.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Новое Имя", updated.DisplayName)
	assert.Equal(t, models.FEMALE, *updated.Gender)
	require.NotNil(t, updated.BirthDate)
	assert.Equal(t, "1990-05-17", updated.BirthDate.Format("2006-01-02"))
}

func TestGetByIDNotFound(t *testing.T) {
	setupTestDB(t)
	us := NewUserService(nil)

	_, err := us.GetByID(context.Background(), 9999)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

// Удаление аккаунта: свои хотелки удаляются, чужие резервации снимаются,
// подписки и журнал пушей вычищаются в обе стороны.
func TestDeleteAccountCascade(t *testing.T) {
	setupTestDB(t)
	us := NewUserService(nil)
	fs := NewFollowService(nil)
	ws := NewWishService()

	user := createTestUser(t)
	other := createTestUser(t)

	ownWish := createTestWish(t, user.ID)
	foreignWish := createTestWish(t, other.ID)
	require.NoError(t, ws.Reserve(context.Background(), foreignWish.ID, user.ID))
	require.NoError(t, fs.Follow(context.Background(), user.ID, other.ID))
	require.NoError(t, fs.Follow(context.Background(), other.ID, user.ID))
	require.NoError(t, db.ORM.Create(&models.PushSendingLog{
		SentAt:       time.Now().UTC(),
		Reason:       models.PushReasonCurrentUserBirthday,
		ReasonUserID: user.ID,
		TargetUserID: user.ID,
	}).Error)

	require.NoError(t, us.DeleteAccount(context.Background(), user.ID))

	_, err := us.GetByID(context.Background(), user.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	var wishCount int64
	require.NoError(t, db.ORM.Model(&models.Wish{}).Where("id = ?", ownWish.ID).Count(&wishCount).Error)
	assert.Zero(t, wishCount)

	// Чужая хотелка остается, но резервация снята
	assert.Nil(t, reloadWish(t, foreignWish.ID).ReservedByID)

	var edgeCount int64
	require.NoError(t, db.ORM.Model(&models.FollowEdge{}).
		Where("follower_id = ? OR followed_id = ?", user.ID, user.ID).
		Count(&edgeCount).Error)
	assert.Zero(t, edgeCount)

	var logCount int64
	require.NoError(t, db.ORM.Model(&models.PushSendingLog{}).
		Where("reason_user_id = ?", user.ID).Count(&logCount).Error)
	assert.Zero(t, logCount)
}

func TestPossibleFriends(t *testing.T) {
	setupTestDB(t)
	us := NewUserService(nil)
	fs := NewFollowService(nil)

	viewer := createTestUser(t)
	friend := createTestUser(t)
	followedFriend := createTestUser(t)
	stranger := createTestUser(t)

	require.NoError(t, db.ORM.Model(friend).Update("vk_id", "101").Error)
	require.NoError(t, db.ORM.Model(followedFriend).Update("vk_id", "102").Error)
	require.NoError(t, db.ORM.Model(stranger).Update("vk_id", "999").Error)
	require.NoError(t, fs.Follow(context.Background(), viewer.ID, followedFriend.ID))

	viewer.VkFriendsData = []byte(`[{"id":101},{"id":102},{"id":555}]`)

	candidates, err := us.PossibleFriends(context.Background(), viewer)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, friend.ID, candidates[0].ID)
}

func TestPossibleFriendsWithoutCache(t *testing.T) {
	setupTestDB(t)
	us := NewUserService(nil)

	viewer := createTestUser(t)
	candidates, err := us.PossibleFriends(context.Background(), viewer)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}
