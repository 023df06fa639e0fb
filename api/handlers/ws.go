package handlers

import (
	"net/http"
	"wishlist/api/middleware"
	"wishlist/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler - WebSocket endpoint для живых событий (новые подписчики,
// резервации). Соединение живет до разрыва со стороны клиента.
func WSHandler(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("WebSocket upgrade error:", err)
		return
	}
	defer conn.Close()

	services.GlobalWSConnManager.Add(user.ID, conn)
	defer services.GlobalWSConnManager.Remove(user.ID, conn)
	log.Printf("User %d connected to ws, active connections: %d",
		user.ID, services.GlobalWSConnManager.ConnectionCount(user.ID))

	_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"connected"}`))

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
