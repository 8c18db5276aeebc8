package websocket

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs attaches a reviewer's connection to the hub as a watcher of one
// case and blocks until the connection drops.
func ServeWs(hub *Hub, c *websocket.Conn, caseID, userID uuid.UUID) {
	client := &Client{Hub: hub, Conn: c, CaseID: caseID, UserID: userID, Send: make(chan []byte, 256)}
	client.Hub.register <- client

	go client.writePump()
	client.readPump() // blocks for the lifetime of the connection
}
