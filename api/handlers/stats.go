package handlers

import (
	"net/http"
	"wishlist/services"

	"github.com/gin-gonic/gin"
)

// QueueStats возвращает статистику очереди доставки пушей (админский эндпоинт)
func QueueStats(c *gin.Context) {
	if services.PushQueueInstance == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Queue service not available"})
		return
	}
	c.JSON(http.StatusOK, services.PushQueueInstance.GetStats())
}
