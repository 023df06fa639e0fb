package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"wishlist/db"
	"wishlist/models"

	"github.com/rs/xid"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

const profileImagesSubdir = "profile_images"

const searchResultsLimit = 20

type UserService struct {
	Firebase FirebaseAuth
}

func NewUserService(firebase FirebaseAuth) *UserService {
	return &UserService{Firebase: firebase}
}

func (us *UserService) GetByID(ctx context.Context, userID int64) (*models.User, error) {
	var user models.User
	err := db.GetReadOnlyDB(ctx).First(&user, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %d", models.ErrNotFound, userID)
		}
		return nil, err
	}
	return &user, nil
}

type ProfileUpdate struct {
	DisplayName string
	Gender      *models.Gender
	BirthDate   *time.Time
}

func (us *UserService) UpdateProfile(ctx context.Context, userID int64, update ProfileUpdate) error {
	return db.GetWriteDB(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"display_name": update.DisplayName,
		"gender":       update.Gender,
		"birth_date":   update.BirthDate,
	}).Error
}

// SetProfileImage сохраняет фото профиля и публикует его URL.
// Старый файл удаляется, имя нового - уникальный xid.
func (us *UserService) SetProfileImage(ctx context.Context, userID int64, content []byte, baseURL string) error {
	user, err := us.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	dir := filepath.Join(mediaRoot(), profileImagesSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	fileName := xid.New().String()
	filePath := filepath.Join(dir, fileName)
	if err := os.WriteFile(filePath, content, 0o644); err != nil {
		return err
	}

	oldPath := user.PhotoPath
	photoURL := fmt.Sprintf("%s/media/%s/%s", baseURL, profileImagesSubdir, fileName)
	err = db.GetWriteDB(ctx).Model(user).Updates(map[string]interface{}{
		"photo_url":  photoURL,
		"photo_path": filePath,
	}).Error
	if err != nil {
		return err
	}

	if oldPath != nil {
		if rmErr := os.Remove(*oldPath); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Printf("Failed to remove old profile image %s: %v", *oldPath, rmErr)
		}
	}
	return nil
}

// DeleteProfileImage чистит фото профиля. Путь к файлу снимается
// до удаления с диска, чтобы запись не осталась висеть на битом пути.
func (us *UserService) DeleteProfileImage(ctx context.Context, userID int64) error {
	user, err := us.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.PhotoPath == nil {
		return nil
	}

	pathToDelete := *user.PhotoPath
	err = db.GetWriteDB(ctx).Model(user).Updates(map[string]interface{}{
		"photo_url":  nil,
		"photo_path": nil,
	}).Error
	if err != nil {
		return err
	}
	if rmErr := os.Remove(pathToDelete); rmErr != nil && !os.IsNotExist(rmErr) {
		log.Printf("Failed to remove profile image %s: %v", pathToDelete, rmErr)
	}
	return nil
}

// DeleteAccount удаляет аккаунт с каскадом: хотелки, подписки в обе
// стороны, журнал пушей и чужие резервации пользователя. Каскад выполняется
// явно в одной транзакции, чтобы не зависеть от настроек FK конкретной БД.
func (us *UserService) DeleteAccount(ctx context.Context, userID int64) error {
	user, err := us.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if us.Firebase != nil {
		if err := us.Firebase.DeleteUser(ctx, user.FirebaseUID); err != nil {
			// Локальный аккаунт удаляем в любом случае
			log.Printf("Failed to delete firebase user %s: %v", user.FirebaseUID, err)
		}
	}

	return db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Wish{}).Where("reserved_by_id = ?", userID).
			Update("reserved_by_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Wish{}).Error; err != nil {
			return err
		}
		if err := tx.Where("follower_id = ? OR followed_id = ?", userID, userID).
			Delete(&models.FollowEdge{}).Error; err != nil {
			return err
		}
		if err := tx.Where("reason_user_id = ? OR target_user_id = ?", userID, userID).
			Delete(&models.PushSendingLog{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, userID).Error
	})
}

// Search ищет пользователей по подстроке имени без учета регистра.
// Пустой или пробельный запрос возвращает пустой результат сразу,
// не трогая базу. Зритель исключается, отдается не больше 20 строк.
func (us *UserService) Search(ctx context.Context, viewerID int64, query string) ([]models.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.User{}, nil
	}

	var users []models.User
	pattern := "%" + strings.ToLower(query) + "%"
	err := db.GetReadOnlyDB(ctx).
		Where("id <> ? AND LOWER(display_name) LIKE ?", viewerID, pattern).
		Limit(searchResultsLimit).
		Find(&users).Error
	return users, err
}

// PossibleFriends - зарегистрированные пользователи из кэша VK-друзей
// зрителя, на которых он еще не подписан
func (us *UserService) PossibleFriends(ctx context.Context, viewer *models.User) ([]models.User, error) {
	if len(viewer.VkFriendsData) == 0 {
		return []models.User{}, nil
	}

	friendIDs := make([]string, 0)
	for _, friend := range gjson.ParseBytes(viewer.VkFriendsData).Array() {
		if id := friend.Get("id").Int(); id != 0 {
			friendIDs = append(friendIDs, strconv.FormatInt(id, 10))
		}
	}
	if len(friendIDs) == 0 {
		return []models.User{}, nil
	}

	var users []models.User
	err := db.GetReadOnlyDB(ctx).
		Where("vk_id IN (?)", friendIDs).
		Where("id NOT IN (?)", db.GetReadOnlyDB(ctx).Model(&models.FollowEdge{}).
			Select("followed_id").Where("follower_id = ?", viewer.ID)).
		Find(&users).Error
	return users, err
}
