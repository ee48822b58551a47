// server/internal/api/handlers/websocket_handler.go
package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"greencycle-api-server/internal/auth"
	"greencycle-api-server/internal/models"
	"greencycle-api-server/internal/socket"
	"greencycle-api-server/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Thời gian chờ tối đa cho một tin nhắn từ client.
const pongWait = 30 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	Hub     *socket.Hub
	Pickups *store.PickupStore
}

// ServeWs opens a live subscription to one pickup. The viewer receives the
// full pickup record on every committed transition, in commit order, until
// the connection closes.
func (h *WebSocketHandler) ServeWs(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token is required"})
		return
	}

	claims, err := auth.ParseToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}
	userID := claims.UserID

	pickupID := c.Param("id")
	p, err := h.Pickups.GetByPickupID(context.Background(), pickupID)
	if err != nil {
		respondPickupError(c, err)
		return
	}
	if claims.Role != models.RoleAdmin && p.PartyOf(userID) == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not a party to this pickup"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	// Gorilla connections allow one concurrent writer; the initial-state
	// write below can race a broadcast, so both share a mutex. The mutex is
	// held from before the subscription is registered until the initial
	// state has been written, so a transition committing during setup is
	// delivered after the snapshot, never before it.
	var writeMu sync.Mutex
	writeMu.Lock()

	unsubscribe := h.Hub.Subscribe(pickupID, func(updated *models.Pickup) {
		payload, err := json.Marshal(updated)
		if err != nil {
			log.Printf("Failed to marshal pickup %s for push: %v", pickupID, err)
			return
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("Failed to push pickup %s to %s: %v", pickupID, userID, err)
		}
	})

	defer func() {
		unsubscribe()
		conn.Close()
	}()

	// Send the current state immediately so the viewer does not have to
	// wait for the next transition.
	if initial, err := json.Marshal(p); err == nil {
		conn.WriteMessage(websocket.TextMessage, initial)
	}
	writeMu.Unlock()

	// Heartbeat: client PINGs extend the read deadline; gorilla answers
	// with PONG automatically.
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Unexpected close error: %v", err)
			}
			break
		}
	}
}
