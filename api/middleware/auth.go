package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"wishlist/config"
	"wishlist/db"
	"wishlist/models"
	"wishlist/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AuthMiddleware - аутентификация по Firebase ID-токену.
// Кладет в контекст "user" (*models.User) и "user_id" (int64).
// В debug-режиме принимает тестовые токены вида <test_token>:<user_id>.
func AuthMiddleware(verifier services.FirebaseAuth) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")

		if user := debugTokenUser(c, token); user != nil {
			setUser(c, user)
			c.Next()
			return
		}

		if verifier == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}
		uid, err := verifier.VerifyIDToken(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		var user models.User
		err = db.GetReadOnlyDB(c.Request.Context()).Where("firebase_uid = ?", uid).First(&user).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "User not registered"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			}
			c.Abort()
			return
		}

		setUser(c, &user)
		c.Next()
	}
}

// debugTokenUser разбирает тестовый токен <test_token>:<user_id>.
// Работает только при включенном debug и заданном тестовом токене.
func debugTokenUser(c *gin.Context, token string) *models.User {
	cfg := config.AppConfig
	if cfg == nil || !cfg.Debug.IsDebug || cfg.Debug.TestToken == "" {
		return nil
	}
	if !strings.HasPrefix(token, cfg.Debug.TestToken+":") {
		return nil
	}
	userID, err := strconv.ParseInt(strings.TrimPrefix(token, cfg.Debug.TestToken+":"), 10, 64)
	if err != nil {
		return nil
	}
	var user models.User
	if err := db.GetReadOnlyDB(c.Request.Context()).First(&user, userID).Error; err != nil {
		return nil
	}
	return &user
}

func setUser(c *gin.Context, user *models.User) {
	c.Set("user", user)
	c.Set("user_id", user.ID)
}

// CurrentUser достает пользователя, положенного AuthMiddleware
func CurrentUser(c *gin.Context) *models.User {
	value, exists := c.Get("user")
	if !exists {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}
