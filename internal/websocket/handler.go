package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs handles websocket requests from the peer.
func ServeWs(hub *Hub, c *websocket.Conn, userID string) {
	client := NewClient(hub, c, userID)
	client.Hub.register <- client

	go client.writePump()
	client.readPump()
}
