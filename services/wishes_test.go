package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"wishlist/db"
	"wishlist/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Create возвращает строку с владельцем сразу после записи, чтение
// идет через мастер и не зависит от лага реплики
func TestWishCreateReturnsOwner(t *testing.T) {
	setupTestDB(t)
	ws := NewWishService()

	owner := createTestUser(t)
	wish, err := ws.Create(context.Background(), owner.ID, WishInput{
		Name:  "Bike",
		Price: ptr(int64(25000)),
	})
	require.NoError(t, err)
	assert.Equal(t, owner.ID, wish.User.ID)
	assert.Equal(t, owner.DisplayName, wish.User.DisplayName)
}

func TestReserveOwnWishForbidden(t *testing.T) {
	setupTestDB(t)
	ws := NewWishService()

	owner := createTestUser(t)
	wish := createTestWish(t, owner.ID)

	err := ws.Reserve(context.Background(), wish.ID, owner.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)
	assert.Nil(t, reloadWish(t, wish.ID).ReservedByID)
}

func TestReserveIsIdempotentForHolder(t *testing.T) {
	setupTestDB(t)
	ws := NewWishService()

	owner := createTestUser(t)
	actor := createTestUser(t)
	other := createTestUser(t)
	wish := createTestWish(t, owner.ID)

	require.NoError(t, ws.Reserve(context.Background(), wish.ID, actor.ID))
	require.NotNil(t, reloadWish(t, wish.ID).ReservedByID)
	assert.Equal(t, actor.ID, *reloadWish(t, wish.ID).ReservedByID)

	// Повтор тем же пользователем - no-op success
	require.NoError(t, ws.Reserve(context.Background(), wish.ID, actor.ID))

	// Перехват чужой резервации запрещен
	err := ws.Reserve(context.Background(), wish.ID, other.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)
	assert.Equal(t, actor.ID, *reloadWish(t, wish.ID).ReservedByID)
}

func TestReserveArchivedWishNotFound(t *testing.T) {
	setupTestDB(t)
	ws := NewWishService()

	owner := createTestUser(t)
	actor := createTestUser(t)
	wish := createTestWish(t, owner.ID)
	require.NoError(t, db.ORM.Model(wish).Update("is_archived", true).Error)

	err := ws.Reserve(context.Background(), wish.ID, actor.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestReserveMissingWishNotFound(t *testing.T) {
	setupTestDB(t)
	ws := NewWishService()

	actor := createTestUser(t)
	err := ws.Reserve(context.Background(), 9999, actor.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCancelReservation(t *testing.T) {
	setupTestDB(t)
	ws := NewWishService()

	owner := createTestUser(t)
	actor := createTestUser(t)
	other := createTestUser(t)
	wish := createTestWish(t, owner.ID)

	require.NoError(t, ws.Reserve(context.Background(), wish.ID, actor.ID))

	// Чужую резервацию снять нельзя
	err := ws.CancelReservation(context.Background(), wish.ID, other.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	require.NoError(t, ws.CancelReservation(context.Background(), wish.ID, actor.ID))
	assert.Nil(t, reloadWish(t, wish.ID).ReservedByID)

	// Повторное снятие - no-op success
	require.NoError(t, ws.CancelReservation(context.Background(), wish.ID, actor.ID))
}

func TestCancelReservationMissingWish(t *testing.T) {
	setupTestDB(t)
	ws := NewWishService()

	actor := createTestUser(t)
	err := ws.CancelReservation(context.Background(), 9999, actor.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

// Сценарий: A создает хотелку, B резервирует, A не может зарезервировать
// свою, B снимает резервацию.
func TestReservationScenario(t *testing.T) {
	setupTestDB(t)
	ws := NewWishService()

	userA := createTestUser(t)
	userB := createTestUser(t)

	wish, err := ws.Create(context.Background(), userA.ID, WishInput{Name: "Bike"})
	require.NoError(t, err)

	require.NoError(t, ws.Reserve(context.Background(), wish.ID, userB.ID))
	assert.Equal(t, userB.ID, *reloadWish(t, wish.ID).ReservedByID)

	err = ws.Reserve(context.Background(), wish.ID, userA.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	require.NoError(t, ws.CancelReservation(context.Background(), wish.ID, userB.ID))
	assert.Nil(t, reloadWish(t, wish.ID).ReservedByID)
}

// dialNotifyWS поднимает тестовый ws-сервер, регистрирует серверную сторону
// соединения в глобальном реестре за userID и возвращает клиентскую.
func dialNotifyWS(t *testing.T, userID int64) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	serverConns := make(chan *websocket.Conn, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		GlobalWSConnManager.Add(userID, conn)
		serverConns <- conn
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"connected"}`))
	}))
	t.Cleanup(server.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		client.Close()
		conn := <-serverConns
		GlobalWSConnManager.Remove(userID, conn)
		conn.Close()
	})

	// Приветствие приходит после регистрации в реестре, дальше можно слать
	_, hello, err := client.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(hello), "connected")
	return client
}

func readNotifyType(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var notify WsNotify
	require.NoError(t, json.Unmarshal(data, &notify))
	return notify.NotifyType
}

// Владелец держит ws-соединение и получает события о своей хотелке:
// резервация и ее снятие. Повторное снятие события не порождает.
func TestReservationLiveEvents(t *testing.T) {
	setupTestDB(t)
	ws := NewWishService()

	owner := createTestUser(t)
	actor := createTestUser(t)
	wish := createTestWish(t, owner.ID)

	client := dialNotifyWS(t, owner.ID)

	require.NoError(t, ws.Reserve(context.Background(), wish.ID, actor.ID))
	assert.Equal(t, "wish_reserved", readNotifyType(t, client))

	require.NoError(t, ws.CancelReservation(context.Background(), wish.ID, actor.ID))
	assert.Equal(t, "wish_reservation_cancelled", readNotifyType(t, client))
	assert.Equal(t, 1, GlobalWSConnManager.ConnectionCount(owner.ID))

	// no-op снятие молчит
	require.NoError(t, ws.CancelReservation(context.Background(), wish.ID, actor.ID))
	require.NoError(t, client.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := client.ReadMessage()
	assert.Error(t, err)
}

func TestArchivedWishVisibility(t *testing.T) {
	setupTestDB(t)
	ws := NewWishService()

	owner := createTestUser(t)
	viewer := createTestUser(t)
	wish := createTestWish(t, owner.ID)
	require.NoError(t, ws.SetArchived(context.Background(), wish.ID, owner.ID, true))

	// Владелец видит архивную
	got, err := ws.GetForViewer(context.Background(), wish.ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, got.IsArchived)

	// Для остальных она не существует
	_, err = ws.GetForViewer(context.Background(), wish.ID, viewer.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestWishMutationPermissions(t *testing.T) {
	setupTestDB(t)
	ws := NewWishService()

	owner := createTestUser(t)
	stranger := createTestUser(t)
	wish := createTestWish(t, owner.ID)

	err := ws.Update(context.Background(), wish.ID, stranger.ID, WishInput{Name: "hijack"})
	assert.ErrorIs(t, err, models.ErrForbidden)

	err = ws.Delete(context.Background(), wish.ID, stranger.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	err = ws.Update(context.Background(), 9999, owner.ID, WishInput{Name: "nope"})
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, ws.Update(context.Background(), wish.ID, owner.ID, WishInput{
		Name:  "updated",
		Price: ptr(int64(1500)),
	}))
	updated := reloadWish(t, wish.ID)
	assert.Equal(t, "updated", updated.Name)
	assert.Equal(t, int64(1500), *updated.Price)
}

func TestWishListsFilterArchived(t *testing.T) {
	setupTestDB(t)
	ws := NewWishService()

	owner := createTestUser(t)
	actor := createTestUser(t)
	active := createTestWish(t, owner.ID)
	archived := createTestWish(t, owner.ID)
	require.NoError(t, ws.SetArchived(context.Background(), archived.ID, owner.ID, true))
	require.NoError(t, ws.Reserve(context.Background(), active.ID, actor.ID))

	mine, err := ws.ListMine(context.Background(), owner.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, active.ID, mine[0].ID)

	arch, err := ws.ListArchived(context.Background(), owner.ID)
	require.NoError(t, err)
	require.Len(t, arch, 1)
	assert.Equal(t, archived.ID, arch[0].ID)

	reserved, err := ws.ListReservedBy(context.Background(), actor.ID)
	require.NoError(t, err)
	require.Len(t, reserved, 1)
	assert.Equal(t, active.ID, reserved[0].ID)

	forUser, err := ws.ListForUser(context.Background(), owner.ID)
	require.NoError(t, err)
	assert.Len(t, forUser, 1)

	_, err = ws.ListForUser(context.Background(), 9999)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestWishDelete(t *testing.T) {
	setupTestDB(t)
	ws := NewWishService()

	owner := createTestUser(t)
	wish := createTestWish(t, owner.ID)

	require.NoError(t, ws.Delete(context.Background(), wish.ID, owner.ID))

	var count int64
	require.NoError(t, db.ORM.Model(&models.Wish{}).Where("id = ?", wish.ID).Count(&count).Error)
	assert.Zero(t, count)

	err := ws.Delete(context.Background(), wish.ID, owner.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
