package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"wishlist/config"
	"wishlist/db"
	"wishlist/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AuthService оборачивает вход через внешних провайдеров идентичности.
// Клиенты провайдеров передаются явно, чтобы подменяться в тестах.
type AuthService struct {
	Firebase FirebaseAuth
	VK       VKAPI
}

func NewAuthService(firebase FirebaseAuth, vk VKAPI) *AuthService {
	return &AuthService{Firebase: firebase, VK: vk}
}

type VKAuthResult struct {
	AccessToken   string
	FirebaseUID   string
	FirebaseToken string
	UserCreated   bool
}

func utcNow() time.Time {
	return time.Now().UTC()
}

// AuthVKWeb - вход через VK в вебе: silent-токен обменивается на access_token
func (s *AuthService) AuthVKWeb(ctx context.Context, silentToken, uuid string) (*VKAuthResult, error) {
	accessToken, extra, err := s.VK.ExchangeSilentToken(ctx, silentToken, uuid)
	if err != nil {
		return nil, err
	}
	return s.authVK(ctx, accessToken, extra)
}

// AuthVKMobile - вход через VK на мобильных, access_token уже у клиента
func (s *AuthService) AuthVKMobile(ctx context.Context, accessToken string, email, phone *string) (*VKAuthResult, error) {
	return s.authVK(ctx, accessToken, VkUserExtraData{Email: email, Phone: phone})
}

func (s *AuthService) authVK(ctx context.Context, accessToken string, extra VkUserExtraData) (*VKAuthResult, error) {
	basic, err := s.VK.UserData(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	var user *models.User
	found := models.User{}
	err = db.GetReadOnlyDB(ctx).Where("vk_id = ?", basic.ID).First(&found).Error
	switch {
	case err == nil:
		user = &found
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, err
	}
	// Пользователь мог раньше входить через firebase с тем же email
	if user == nil && extra.Email != nil {
		err = db.GetReadOnlyDB(ctx).Where("email = ?", *extra.Email).First(&found).Error
		switch {
		case err == nil:
			user = &found
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return nil, err
		}
	}

	isNewUser := user == nil
	var firebaseUID string
	if isNewUser {
		email, phone := "", ""
		if extra.Email != nil {
			email = *extra.Email
		}
		if extra.Phone != nil {
			phone = *extra.Phone
		}
		firebaseUID, err = s.Firebase.CreateUser(ctx, email, basic.FullName(), basic.PhotoURL, phone)
		if err != nil {
			if errors.Is(err, models.ErrConflict) {
				return nil, fmt.Errorf("%w: user with this email already exists, sign in with the matching account", models.ErrConflict)
			}
			return nil, err
		}
		photoURL := basic.PhotoURL
		user = &models.User{
			DisplayName:  basic.FullName(),
			PhotoURL:     &photoURL,
			Email:        extra.Email,
			Phone:        extra.Phone,
			FirebaseUID:  firebaseUID,
			BirthDate:    basic.BirthDate,
			Gender:       basic.Gender,
			RegisteredAt: utcNow(),
		}
	} else {
		firebaseUID = user.FirebaseUID
	}

	user.VkAccessToken = &accessToken
	vkID := basic.ID
	user.VkID = &vkID
	if len(user.VkFriendsData) == 0 {
		// Кэшируем друзей один раз, неуспех не блокирует вход
		if friends, err := s.VK.Friends(ctx, accessToken); err != nil {
			log.Printf("Failed to fetch VK friends for %s: %v", basic.ID, err)
		} else {
			user.VkFriendsData = friends
		}
	}
	now := utcNow()
	user.LastLoginAt = &now

	if err := db.GetWriteDB(ctx).Save(user).Error; err != nil {
		return nil, err
	}

	if isNewUser {
		s.notifyNewUser(user)
	}

	firebaseToken, err := s.Firebase.CustomToken(firebaseUID)
	if err != nil {
		return nil, err
	}
	return &VKAuthResult{
		AccessToken:   accessToken,
		FirebaseUID:   firebaseUID,
		FirebaseToken: firebaseToken,
		UserCreated:   isNewUser,
	}, nil
}

// AuthFirebase - вход через firebase (Google). Клиент уже залогинен в firebase,
// сервер только проверяет токен и заводит локальную запись при первом входе.
func (s *AuthService) AuthFirebase(ctx context.Context, idToken string) (*models.User, bool, error) {
	uid, err := s.Firebase.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, false, err
	}

	record, err := s.Firebase.GetUser(ctx, uid)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", models.ErrUnauthenticated, err)
	}

	var user *models.User
	found := models.User{}
	err = db.GetReadOnlyDB(ctx).Where("firebase_uid = ?", uid).First(&found).Error
	switch {
	case err == nil:
		user = &found
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, false, err
	}
	if user == nil && record.EmailVerified && record.Email != "" {
		err = db.GetReadOnlyDB(ctx).Where("email = ?", record.Email).First(&found).Error
		switch {
		case err == nil:
			user = &found
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return nil, false, err
		}
	}

	isNewUser := user == nil
	if isNewUser {
		user = &models.User{
			DisplayName:  record.DisplayName,
			FirebaseUID:  uid,
			RegisteredAt: utcNow(),
		}
		if record.Email != "" {
			user.Email = &record.Email
		}
		if record.Phone != "" {
			user.Phone = &record.Phone
		}
		if record.PhotoURL != "" {
			user.PhotoURL = &record.PhotoURL
		}
	} else {
		user.FirebaseUID = uid
	}

	now := utcNow()
	user.LastLoginAt = &now
	if err := db.GetWriteDB(ctx).Save(user).Error; err != nil {
		return nil, false, err
	}

	if isNewUser {
		s.notifyNewUser(user)
	}
	return user, isNewUser, nil
}

// SavePushToken сохраняет токен доставки пушей, вызывается после входа
func (s *AuthService) SavePushToken(ctx context.Context, userID int64, pushToken string) error {
	now := utcNow()
	return db.GetWriteDB(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"firebase_push_token":          pushToken,
		"firebase_push_token_saved_at": now,
	}).Error
}

func (s *AuthService) notifyNewUser(user *models.User) {
	log.Printf("New user registered: firebase_uid=%s", user.FirebaseUID)
	frontend := ""
	if config.AppConfig != nil {
		frontend = config.AppConfig.FrontendURL
	}
	msg := fmt.Sprintf("Зарегистрирован новый пользователь %s %s/user?userId=%d", user.DisplayName, frontend, user.ID)
	if err := SendTelegramChannelMessage(msg); err != nil {
		log.Printf("Failed to send new user alert: %v", err)
	}
}
