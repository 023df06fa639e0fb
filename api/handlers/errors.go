package handlers

import (
	"errors"
	"net/http"
	"wishlist/models"
	"wishlist/services"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// abortWithError переводит ошибки сервисов в HTTP-статусы.
// Неожиданные ошибки логируются, уходят алертом оператору и
// возвращаются клиенту без деталей.
func abortWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		log.Printf("Unhandled error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		services.AlertError(c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
	c.Abort()
}
