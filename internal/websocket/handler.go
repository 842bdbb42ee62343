package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs runs the pump loops for an upgraded connection. The socket belongs
// to no room until it sends join_room.
func ServeWs(hub *Hub, handler MessageHandler, conn *websocket.Conn) {
	client := &Client{
		Hub:     hub,
		Conn:    conn,
		Handler: handler,
		send:    make(chan []byte, 256),
	}

	go client.writePump()
	client.readPump() // Run readPump in current goroutine (handler)
}
