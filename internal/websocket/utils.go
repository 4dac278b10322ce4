package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	// ReadWait bounds the silence between client messages. Clients ping well
	// inside it.
	ReadWait = 5 * time.Minute
)

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// WriteJSON sends an event with its data.
func WriteJSON(conn *websocket.Conn, event Event, data interface{}) error {
	return WriteTyped(conn, ResponsePayload{Event: event, Data: data})
}

// WriteError sends an error event.
func WriteError(conn *websocket.Conn, code, message string) error {
	return WriteJSON(conn, EventError, ErrorPayload{Code: code, Message: message})
}

// ReadJSON reads and decodes a message into the provided structure.
// It sets a read deadline.
func ReadJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetReadDeadline(time.Now().Add(ReadWait))
	return conn.ReadJSON(v)
}
