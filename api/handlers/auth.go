package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wishlist/api/middleware"
)

type VkAuthWebRequest struct {
	SilentToken string `json:"silent_token" binding:"required"`
	UUID        string `json:"uuid" binding:"required"`
}

type VkAuthMobileRequest struct {
	AccessToken string  `json:"access_token" binding:"required"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
}

type FirebaseAuthRequest struct {
	IDToken string `json:"id_token" binding:"required"`
}

type SavePushTokenRequest struct {
	PushToken string `json:"push_token" binding:"required"`
}

// AuthVKWeb - вход через VK ID в вебе, silent-токен обменивается на сервере
func AuthVKWeb(c *gin.Context) {
	var req VkAuthWebRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	result, err := authService.AuthVKWeb(c.Request.Context(), req.SilentToken, req.UUID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"vk_access_token": result.AccessToken,
		"firebase_uid":    result.FirebaseUID,
		"firebase_token":  result.FirebaseToken,
		"user_created":    result.UserCreated,
	})
}

// AuthVKMobile - вход через VK на мобильных, access_token уже получен клиентом
func AuthVKMobile(c *gin.Context) {
	var req VkAuthMobileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	result, err := authService.AuthVKMobile(c.Request.Context(), req.AccessToken, req.Email, req.Phone)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"firebase_uid":   result.FirebaseUID,
		"firebase_token": result.FirebaseToken,
		"user_created":   result.UserCreated,
	})
}

// AuthFirebase - вход по готовому Firebase ID-токену (Google, Apple, email)
func AuthFirebase(c *gin.Context) {
	var req FirebaseAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	user, created, err := authService.AuthFirebase(c.Request.Context(), req.IDToken)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":         user,
		"user_created": created,
	})
}

// SavePushToken сохраняет FCM-токен устройства текущего пользователя
func SavePushToken(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req SavePushTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if err := authService.SavePushToken(c.Request.Context(), user.ID, req.PushToken); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Push token saved"})
}
