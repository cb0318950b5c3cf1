// Package session - hub.go
//
// This file implements the Hub, the central coordinator for all game rooms.
// The Hub upgrades WebSocket connections, dispatches envelopes from clients,
// and owns the room registry.
//
// Hub Responsibilities:
//   - WebSocket connection upgrades with origin checking
//   - Routing create-room and join-room before a connection has a room
//   - Routing everything else to the connection's attached room
//   - Removing rooms the moment their last member leaves
//
// Scaling Design:
// The Hub handles many rooms concurrently. Each room serializes its own
// state behind its own lock; the Hub's lock only guards the registries, so
// traffic in one room never contends with another.
package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sketchroom/backend/internal/v1/clock"
	"github.com/sketchroom/backend/internal/v1/logging"
	"github.com/sketchroom/backend/internal/v1/words"
)

// Hub coordinates every live connection and room.
//
// Concurrency:
// The mutex protects the rooms and clients registries. Room internals are
// guarded by each room's own lock; the Hub never reaches into a room while
// holding its own lock beyond map bookkeeping.
//
// Room Lifecycle:
// Rooms exist only while occupied. create-room registers a room, the last
// disconnect removes it, and a removed room's id immediately resolves to
// "Room not found" for both join-room and the REST endpoints.
type Hub struct {
	bank *words.Bank
	clk  clock.Clock
	rng  *clock.Rand

	allowedURL *url.URL

	mu      sync.RWMutex
	rooms   map[RoomIdType]*Room
	clients map[UserIdType]*Client
	closed  bool
}

// NewHub creates a Hub and configures it with its dependencies.
// Parameters:
//   - bank: the word bank rooms draw their offers from
//   - clk: time source shared by rooms for timers and timestamps
//   - rng: randomness source for colors, word picks and hints
//   - allowedOrigin: the single browser origin allowed to connect
func NewHub(bank *words.Bank, clk clock.Clock, rng *clock.Rand, allowedOrigin string) *Hub {
	allowedURL, err := url.Parse(allowedOrigin)
	if err != nil {
		logging.Warn(context.Background(), "invalid allowed origin, browser clients will be rejected",
			zap.String("allowed_origin", allowedOrigin), zap.Error(err))
		allowedURL = nil
	}
	return &Hub{
		bank:       bank,
		clk:        clk,
		rng:        rng,
		allowedURL: allowedURL,
		rooms:      make(map[RoomIdType]*Room),
		clients:    make(map[UserIdType]*Client),
	}
}

// ServeWs upgrades an HTTP request to a WebSocket connection. The connection
// starts unattached; the client must send create-room or join-room before
// any game traffic is accepted.
//
// Responses:
//   - 503 if the server is shutting down.
//   - Upgrades to WebSocket on success.
func (h *Hub) ServeWs(c *gin.Context) {
	if h.isClosed() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "server is shutting down"})
		return
	}

	upgrader := websocket.Upgrader{
		// This is the secure way to check the origin.
		CheckOrigin: h.checkOrigin,
		WriteBufferPool: &sync.Pool{
			New: func() any {
				// Pre-allocate 4KB buffers
				return make([]byte, 4096)
			},
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Error(c.Request.Context(), "failed to upgrade connection", zap.Error(err))
		return
	}

	client := newClient(h, conn)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[client.ID] = client
	h.mu.Unlock()

	connectionsActive.Inc()
	logging.Info(client.ctx, "client connected")

	go client.writePump()
	go client.readPump()
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true // Allow non-browser clients (e.g., for testing)
	}
	if h.allowedURL == nil {
		return false
	}
	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	// Check if the scheme and host match.
	return originURL.Scheme == h.allowedURL.Scheme && originURL.Host == h.allowedURL.Host
}

// dispatch routes one decoded envelope. create-room and join-room are the
// only events a connection may send before it belongs to a room; everything
// else is handed to the attached room or dropped.
func (h *Hub) dispatch(c *Client, msg Message) {
	label := msg.Event
	if _, ok := knownEvents[label]; !ok {
		label = "unknown"
	}
	eventsTotal.WithLabelValues(label).Inc()

	start := time.Now()
	defer func() {
		messageProcessing.WithLabelValues(label).Observe(time.Since(start).Seconds())
	}()

	switch msg.Event {
	case EventCreateRoom:
		h.handleCreateRoom(c, msg.Payload)
	case EventJoinRoom:
		h.handleJoinRoom(c, msg.Payload)
	default:
		room := c.attachedRoom()
		if room == nil {
			logging.Debug(c.ctx, "dropping event from unattached client", zap.String("event", msg.Event))
			return
		}
		room.handleEvent(c, msg.Event, msg.Payload)
	}
}

func (h *Hub) handleCreateRoom(c *Client, raw json.RawMessage) {
	var p CreateRoomPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		c.sendEvent(EventError, ErrorPayload{Error: "Room name and username are required"})
		return
	}
	roomName := strings.TrimSpace(p.RoomName)
	username := strings.TrimSpace(p.Username)
	if roomName == "" || username == "" {
		c.sendEvent(EventError, ErrorPayload{Error: "Room name and username are required"})
		return
	}

	if c.attachedRoom() != nil {
		logging.Debug(c.ctx, "ignoring create-room from client already in a room")
		return
	}

	user := User{ID: c.ID, Username: username, Color: h.pickColor()}
	room := newRoom(RoomIdType(uuid.NewString()), roomName, h.bank, h.clk, h.rng)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		room.shutdown()
		return
	}
	h.rooms[room.ID] = room
	h.mu.Unlock()

	room.addCreator(c, user)

	roomsCreated.Inc()
	roomsActive.Inc()
	logging.Info(room.ctx, "room created",
		zap.String("room_name", room.Name),
		zap.String("creator", string(c.ID)))

	c.sendEvent(EventRoomCreated, RoomCreatedPayload{RoomID: room.ID, RoomName: room.Name, User: user})
}

func (h *Hub) handleJoinRoom(c *Client, raw json.RawMessage) {
	var p JoinRoomPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		c.sendEvent(EventError, ErrorPayload{Error: "Room ID and username are required"})
		return
	}
	username := strings.TrimSpace(p.Username)
	if p.RoomID == "" || username == "" {
		c.sendEvent(EventError, ErrorPayload{Error: "Room ID and username are required"})
		return
	}

	if attached := c.attachedRoom(); attached != nil {
		if attached.ID == p.RoomID {
			// Resending join for the current room replays the snapshot
			// instead of duplicating membership.
			attached.join(c, c.currentUser())
		} else {
			logging.Debug(c.ctx, "ignoring join-room from client attached elsewhere",
				zap.String("requested_room", string(p.RoomID)))
		}
		return
	}

	room := h.lookupRoom(p.RoomID)
	if room == nil {
		c.sendEvent(EventError, ErrorPayload{Error: "Room not found"})
		return
	}

	user := User{ID: c.ID, Username: username, Color: h.pickColor()}
	if !room.join(c, user) {
		// The room emptied and closed between lookup and join.
		c.sendEvent(EventError, ErrorPayload{Error: "Room not found"})
		return
	}
}

// handleDisconnect runs exactly once per client, from readPump's deferred
// cleanup. It detaches the client from its room, removes the room if that
// left it empty, and closes the send channel to end writePump.
func (h *Hub) handleDisconnect(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.ID)
	h.mu.Unlock()

	if room := c.attachedRoom(); room != nil {
		if room.handleDisconnect(c) {
			h.removeRoom(room)
		}
	} else {
		logging.Debug(c.ctx, "client disconnected before joining a room")
	}

	// The room no longer references this client, so nothing can enqueue
	// to it anymore.
	close(c.send)
}

// removeRoom drops a closed room from the registry. The pointer comparison
// guards against a stale removal deleting a newer room under a reused id.
func (h *Hub) removeRoom(room *Room) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.rooms[room.ID]; ok && current == room {
		delete(h.rooms, room.ID)
		roomsActive.Dec()
		roomUsers.DeleteLabelValues(string(room.ID))
		logging.Info(room.ctx, "removed empty room")
	}
}

func (h *Hub) lookupRoom(id RoomIdType) *Room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[id]
}

func (h *Hub) pickColor() string {
	return palette[h.rng.Intn(len(palette))]
}

func (h *Hub) isClosed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.closed
}

// Ready reports whether the hub still accepts new connections. Used by the
// readiness probe so a draining instance is pulled out of rotation.
func (h *Hub) Ready() bool {
	return !h.isClosed()
}

// Shutdown stops accepting connections, closes every room and connection,
// and waits for the read pumps to finish their cleanup or the context to
// expire.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	rooms := make([]*Room, 0, len(h.rooms))
	for _, room := range h.rooms {
		rooms = append(rooms, room)
	}
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, room := range rooms {
		room.shutdown()
	}
	// Closing the connections unblocks the read pumps, whose deferred
	// cleanup drains the clients registry.
	for _, client := range clients {
		client.conn.Close()
	}

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		h.mu.RLock()
		remaining := len(h.clients)
		h.mu.RUnlock()
		if remaining == 0 {
			logging.Info(context.Background(), "hub shut down")
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
