// Package session - client.go
//
// This file implements the Client struct for managing individual WebSocket
// connections. Each client represents a single player's connection and
// handles bidirectional communication between the player's browser and the
// game server.
//
// Client Architecture:
//   - Each client runs two goroutines: readPump and writePump
//   - readPump continuously reads envelopes from the WebSocket connection
//     and hands them to the hub's dispatcher
//   - writePump drains the send channel onto the wire
//   - The Client struct maintains connection state and room attachment
//
// Channel Design:
// The send channel provides buffered message queuing so broadcasts never
// block on a slow consumer. If the buffer fills, messages are dropped and
// counted rather than stalling the room.
//
// Interface Design:
// The wsConnection interface allows tests to substitute mock connections
// for the gorilla *websocket.Conn used in production.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sketchroom/backend/internal/v1/logging"
)

const (
	// writeWait bounds how long a single frame write may take before the
	// connection is considered dead.
	writeWait = 10 * time.Second

	// sendBufferSize is how many queued frames a client may fall behind
	// before drops start.
	sendBufferSize = 256
)

// wsConnection is the subset of *websocket.Conn the session layer uses.
// Tests satisfy it with in-memory fakes to simulate reads, writes and
// failures without a network.
type wsConnection interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
	SetWriteDeadline(t time.Time) error
}

// Client is one player's connection. It is created unattached; create-room
// or join-room later binds it to a room and gives it a User identity.
//
// Lifecycle:
// ServeWs constructs the client and starts its pumps. readPump exiting (for
// any reason) triggers hub.handleDisconnect, which detaches the client from
// its room and closes the send channel, which in turn ends writePump.
type Client struct {
	hub  *Hub
	conn wsConnection
	send chan []byte

	// ID is assigned at upgrade time and never changes.
	ID UserIdType

	ctx context.Context

	mu   sync.RWMutex
	room *Room
	user User
}

func newClient(hub *Hub, conn wsConnection) *Client {
	id := UserIdType(uuid.NewString())
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		ID:   id,
		ctx:  logging.WithUser(context.Background(), string(id)),
	}
}

// attach binds the client to a room. Called while the room's lock is held.
func (c *Client) attach(room *Room, user User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.room = room
	c.user = user
}

// attachedRoom returns the room this connection belongs to, or nil before
// create-room/join-room succeeds.
func (c *Client) attachedRoom() *Room {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.room
}

func (c *Client) currentUser() User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

// readPump continuously decodes incoming envelopes and hands them to the
// hub. It owns the disconnect path: whatever ends the read loop, the
// deferred cleanup detaches the client exactly once.
func (c *Client) readPump() {
	defer func() {
		c.hub.handleDisconnect(c)
		c.conn.Close()
		connectionsActive.Dec()
	}()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			logging.Warn(c.ctx, "failed to decode envelope", zap.Error(err))
			continue
		}
		if msg.Event == "" {
			continue
		}

		c.hub.dispatch(c, msg)
	}
}

// writePump drains the send channel onto the wire. It exits when the channel
// is closed during disconnect, sending a close frame on the way out.
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			logging.Error(c.ctx, "error writing message", zap.Error(err))
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// sendEvent encodes one event for this client alone and queues it.
func (c *Client) sendEvent(event string, payload any) {
	data, err := encodeEvent(event, payload)
	if err != nil {
		logging.Error(c.ctx, "failed to encode event", zap.String("event", event), zap.Error(err))
		return
	}
	c.enqueue(data)
}

// enqueue hands a pre-encoded frame to the write pump without blocking.
// Prevent a slow client from blocking the whole broadcast.
func (c *Client) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
		messagesDropped.Inc()
		logging.Warn(c.ctx, "client send channel full, dropping message")
	}
}
