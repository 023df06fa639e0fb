package services

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"wishlist/db"
	"wishlist/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const wishImagesSubdir = "wish_images"

type WishInput struct {
	Name        string
	Description *string
	Link        *string
	Price       *int64
}

type WishService struct{}

func NewWishService() *WishService {
	return &WishService{}
}

func (ws *WishService) Create(ctx context.Context, userID int64, input WishInput) (*models.Wish, error) {
	wish := models.Wish{
		UserID:      userID,
		Name:        input.Name,
		Description: input.Description,
		Link:        input.Link,
		Price:       input.Price,
	}
	if err := db.GetWriteDB(ctx).Create(&wish).Error; err != nil {
		return nil, err
	}
	// Перечитываем через мастер: реплика могла еще не получить строку
	if err := db.GetWriteDB(ctx).Preload("User").First(&wish, wish.ID).Error; err != nil {
		return nil, err
	}
	return &wish, nil
}

// GetForViewer отдает хотелку по правилу видимости: архивная видна
// только владельцу, для остальных она не существует (404, а не 403).
func (ws *WishService) GetForViewer(ctx context.Context, wishID, viewerID int64) (*models.Wish, error) {
	var wish models.Wish
	err := db.GetReadOnlyDB(ctx).Preload("User").First(&wish, wishID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: wish %d", models.ErrNotFound, wishID)
		}
		return nil, err
	}
	if wish.IsArchived && wish.UserID != viewerID {
		return nil, fmt.Errorf("%w: wish %d", models.ErrNotFound, wishID)
	}
	return &wish, nil
}

// getOwned грузит хотелку для мутации владельцем: отсутствие - 404,
// чужая - 403.
func (ws *WishService) getOwned(ctx context.Context, wishID, ownerID int64) (*models.Wish, error) {
	var wish models.Wish
	err := db.GetReadOnlyDB(ctx).First(&wish, wishID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: wish %d", models.ErrNotFound, wishID)
		}
		return nil, err
	}
	if wish.UserID != ownerID {
		return nil, fmt.Errorf("%w: wish %d belongs to another user", models.ErrForbidden, wishID)
	}
	return &wish, nil
}

func (ws *WishService) Update(ctx context.Context, wishID, ownerID int64, input WishInput) error {
	wish, err := ws.getOwned(ctx, wishID, ownerID)
	if err != nil {
		return err
	}
	wish.Name = input.Name
	wish.Description = input.Description
	wish.Link = input.Link
	wish.Price = input.Price
	return db.GetWriteDB(ctx).Save(wish).Error
}

func (ws *WishService) Delete(ctx context.Context, wishID, ownerID int64) error {
	wish, err := ws.getOwned(ctx, wishID, ownerID)
	if err != nil {
		return err
	}
	if err := db.GetWriteDB(ctx).Delete(&models.Wish{}, wish.ID).Error; err != nil {
		return err
	}
	ws.removeImageFile(wish)
	return nil
}

func (ws *WishService) SetArchived(ctx context.Context, wishID, ownerID int64, archived bool) error {
	wish, err := ws.getOwned(ctx, wishID, ownerID)
	if err != nil {
		return err
	}
	return db.GetWriteDB(ctx).Model(wish).Update("is_archived", archived).Error
}

// SetImage сохраняет картинку под именем из md5-хэша содержимого,
// поэтому повторная загрузка того же файла не плодит копий.
func (ws *WishService) SetImage(ctx context.Context, wishID, ownerID int64, content []byte) error {
	wish, err := ws.getOwned(ctx, wishID, ownerID)
	if err != nil {
		return err
	}

	dir := filepath.Join(mediaRoot(), wishImagesSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	hash := md5.Sum(content)
	fileName := hex.EncodeToString(hash[:])
	if err := os.WriteFile(filepath.Join(dir, fileName), content, 0o644); err != nil {
		return err
	}

	imageURL := "/media/" + wishImagesSubdir + "/" + fileName
	return db.GetWriteDB(ctx).Model(wish).Update("image", imageURL).Error
}

func (ws *WishService) RemoveImage(ctx context.Context, wishID, ownerID int64) error {
	wish, err := ws.getOwned(ctx, wishID, ownerID)
	if err != nil {
		return err
	}
	if err := db.GetWriteDB(ctx).Model(wish).Update("image", nil).Error; err != nil {
		return err
	}
	ws.removeImageFile(wish)
	return nil
}

func (ws *WishService) removeImageFile(wish *models.Wish) {
	if wish.Image == nil {
		return
	}
	path := filepath.Join(mediaRoot(), wishImagesSubdir, filepath.Base(*wish.Image))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to remove wish image %s: %v", path, err)
	}
}

// ListMine - активные хотелки владельца
func (ws *WishService) ListMine(ctx context.Context, userID int64) ([]models.Wish, error) {
	var wishes []models.Wish
	err := db.GetReadOnlyDB(ctx).Preload("User").
		Where("user_id = ? AND is_archived = ?", userID, false).
		Find(&wishes).Error
	return wishes, err
}

// ListArchived - архив владельца, единственный листинг с архивными
func (ws *WishService) ListArchived(ctx context.Context, userID int64) ([]models.Wish, error) {
	var wishes []models.Wish
	err := db.GetReadOnlyDB(ctx).Preload("User").
		Where("user_id = ? AND is_archived = ?", userID, true).
		Find(&wishes).Error
	return wishes, err
}

// ListReservedBy - активные хотелки, зарезервированные пользователем
func (ws *WishService) ListReservedBy(ctx context.Context, userID int64) ([]models.Wish, error) {
	var wishes []models.Wish
	err := db.GetReadOnlyDB(ctx).Preload("User").
		Where("reserved_by_id = ? AND is_archived = ?", userID, false).
		Find(&wishes).Error
	return wishes, err
}

// ListForUser - активные хотелки другого пользователя
func (ws *WishService) ListForUser(ctx context.Context, ownerID int64) ([]models.Wish, error) {
	var owner models.User
	if err := db.GetReadOnlyDB(ctx).First(&owner, ownerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %d", models.ErrNotFound, ownerID)
		}
		return nil, err
	}
	return ws.ListMine(ctx, ownerID)
}

// Reserve резервирует хотелку за actor. Свою хотелку резервировать нельзя,
// чужую резервацию перехватить нельзя, повтор тем же actor идемпотентен.
// Гонка двух резервов решается условным UPDATE, а не read-modify-write:
// выигрывает ровно одна транзакция, проигравший получает Forbidden.
func (ws *WishService) Reserve(ctx context.Context, wishID, actorID int64) error {
	var wish models.Wish
	err := db.GetReadOnlyDB(ctx).
		Where("id = ? AND is_archived = ?", wishID, false).
		First(&wish).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Архивные на поверхности резервирования не существуют
			return fmt.Errorf("%w: wish %d", models.ErrNotFound, wishID)
		}
		return err
	}
	if wish.UserID == actorID {
		return fmt.Errorf("%w: cannot reserve own wish", models.ErrForbidden)
	}

	result := db.GetWriteDB(ctx).Model(&models.Wish{}).
		Where("id = ? AND is_archived = ? AND user_id <> ? AND (reserved_by_id IS NULL OR reserved_by_id = ?)",
			wishID, false, actorID, actorID).
		Update("reserved_by_id", actorID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: reserved by someone else", models.ErrForbidden)
	}

	ws.notifyWishOwner(ctx, &wish, "wish_reserved",
		fmt.Sprintf("Вашу хотелку «%s» зарезервировали", wish.Name))
	return nil
}

// CancelReservation снимает резервацию actor-а. Снятие отсутствующей
// резервации - no-op success, чужой - Forbidden.
func (ws *WishService) CancelReservation(ctx context.Context, wishID, actorID int64) error {
	var wish models.Wish
	if err := db.GetReadOnlyDB(ctx).First(&wish, wishID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: wish %d", models.ErrNotFound, wishID)
		}
		return err
	}

	result := db.GetWriteDB(ctx).Model(&models.Wish{}).
		Where("id = ? AND (reserved_by_id IS NULL OR reserved_by_id = ?)", wishID, actorID).
		Update("reserved_by_id", nil)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: reserved by someone else", models.ErrForbidden)
	}

	// Событие только когда резервация действительно снята, не на no-op
	if wish.ReservedByID != nil && *wish.ReservedByID == actorID {
		ws.notifyWishOwner(ctx, &wish, "wish_reservation_cancelled",
			fmt.Sprintf("С вашей хотелки «%s» сняли резервацию", wish.Name))
	}
	return nil
}

// notifyWishOwner шлет владельцу live-событие о смене резервации.
// Best-effort: без брокера доставляем хотя бы локальным соединениям.
func (ws *WishService) notifyWishOwner(ctx context.Context, wish *models.Wish, eventName, message string) {
	event := SocialEvent{
		UserID:  wish.UserID,
		Event:   eventName,
		WishID:  wish.ID,
		Message: message,
	}
	if err := PublishSocialEvent(ctx, event); err != nil {
		log.Debugf("Social event publish skipped: %v", err)
		_ = SendWsNotify(wish.UserID, event.Event, event.Message)
	}
}
