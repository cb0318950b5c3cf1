// Package session - room.go
//
// This file implements the Room, which binds one set of connected users to
// one canvas and one game engine. The room is the unit of isolation: all
// state a player can observe lives here or in the engine the room owns.
//
// Concurrency Design:
// A single RWMutex serializes everything that happens inside a room. Client
// events take the write lock, mutate state, and fan out while still holding
// it; the engine's delayed transitions re-enter the same lock through the
// serialized hook. Fan-out never blocks because clients queue frames on
// buffered channels.
//
// Lifecycle:
// A room is created by create-room, lives while it has members, and closes
// the moment the last one disconnects. A closed room refuses joins and
// ignores timers so a stale reference can never resurrect it.
package session

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sketchroom/backend/internal/v1/canvas"
	"github.com/sketchroom/backend/internal/v1/clock"
	"github.com/sketchroom/backend/internal/v1/game"
	"github.com/sketchroom/backend/internal/v1/logging"
	"github.com/sketchroom/backend/internal/v1/timers"
	"github.com/sketchroom/backend/internal/v1/words"
)

// Room is one drawing room: its members, its canvas log and its game.
type Room struct {
	ID        RoomIdType
	Name      string
	CreatedAt time.Time

	ctx context.Context
	clk clock.Clock

	mu sync.RWMutex
	// users keeps insertion order; it is the join order clients see and
	// the drawer rotation order the engine uses.
	users   []User
	clients map[UserIdType]*Client
	log     *canvas.Log
	game    *game.Game
	timers  *timers.Service
	closed  bool
}

func newRoom(id RoomIdType, name string, bank *words.Bank, clk clock.Clock, rng *clock.Rand) *Room {
	r := &Room{
		ID:        id,
		Name:      name,
		CreatedAt: clk.Now(),
		ctx:       logging.WithRoom(context.Background(), string(id)),
		clk:       clk,
		clients:   make(map[UserIdType]*Client),
		log:       canvas.NewLog(),
		timers:    timers.New(clk),
	}
	r.game = game.New(game.Config{
		RoomID:    string(id),
		Clock:     clk,
		Rand:      rng,
		Bank:      bank,
		Sink:      (*gameSink)(r),
		Scheduler: r.timers,
		Serialize: r.serialized,
	})
	return r
}

// serialized runs a timer-driven game transition inside the room's critical
// section. Transitions scheduled before the room closed are silently
// discarded.
func (r *Room) serialized(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	fn()
}

// --- Membership ---

// addCreator seats the creating user in a brand-new room. No broadcasts:
// the creator is alone and receives room-created from the hub instead.
func (r *Room) addCreator(c *Client, user User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addMemberLocked(c, user)
}

// join adds a user and sends them the full room snapshot. Joining again on
// the same connection replays the snapshot instead of duplicating the seat.
// Returns false if the room already closed.
func (r *Room) join(c *Client, user User) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false
	}

	if existing, ok := r.userByIDLocked(c.ID); ok {
		r.sendRoomStateLocked(c, existing)
		return true
	}

	r.addMemberLocked(c, user)
	r.sendRoomStateLocked(c, user)
	r.broadcastLocked(EventUserJoined, UserEventPayload{User: user}, c.ID)
	logging.Info(r.ctx, "user joined room",
		zap.String("user_id", string(user.ID)),
		zap.String("username", user.Username))
	return true
}

func (r *Room) addMemberLocked(c *Client, user User) {
	r.users = append(r.users, user)
	r.clients[c.ID] = c
	r.game.AddPlayer(string(user.ID), user.Username)
	c.attach(r, user)
	roomUsers.WithLabelValues(string(r.ID)).Set(float64(len(r.users)))
}

// handleDisconnect removes a departing client and reports whether the room
// emptied and closed. The hub drops closed rooms from its registry.
func (r *Room) handleDisconnect(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false
	}
	user, ok := r.userByIDLocked(c.ID)
	if !ok {
		return false
	}

	r.removeMemberLocked(c.ID)
	logging.Info(r.ctx, "user left room",
		zap.String("user_id", string(user.ID)),
		zap.String("username", user.Username))

	// Announce the departure before the engine reacts to it, so clients
	// see user-left ahead of any round-ended it triggers.
	r.broadcastLocked(EventUserLeft, UserEventPayload{User: user}, "")
	r.game.RemovePlayer(string(c.ID))

	if len(r.users) == 0 {
		r.closeLocked()
		return true
	}
	roomUsers.WithLabelValues(string(r.ID)).Set(float64(len(r.users)))
	return false
}

func (r *Room) removeMemberLocked(id UserIdType) {
	for i, u := range r.users {
		if u.ID == id {
			r.users = append(r.users[:i], r.users[i+1:]...)
			break
		}
	}
	delete(r.clients, id)
}

func (r *Room) userByIDLocked(id UserIdType) (User, bool) {
	for _, u := range r.users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}

// shutdown closes the room from the hub side, used when the server stops.
func (r *Room) shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closeLocked()
}

// closeLocked makes the room inert: the engine resets, pending timers are
// dropped, and the closed flag blocks any late join or timer callback.
func (r *Room) closeLocked() {
	r.closed = true
	r.game.Shutdown()
	r.timers.Stop()
	logging.Info(r.ctx, "room closed")
}

// --- Event Routing ---

// handleEvent routes one in-room event from a client. The sender must be a
// member and the payload must address this room; anything else is dropped
// without a reply.
func (r *Room) handleEvent(c *Client, event string, raw json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	if _, ok := r.clients[c.ID]; !ok {
		logging.Debug(r.ctx, "dropping event from non-member",
			zap.String("event", event),
			zap.String("user_id", string(c.ID)))
		return
	}

	switch event {
	case EventDrawing:
		r.handleDrawingLocked(c, raw)
	case EventClearCanvas:
		r.handleClearCanvasLocked(c, raw)
	case EventChatMessage:
		r.handleChatLocked(c, raw)
	case EventStartGame:
		r.handleStartGameLocked(c, raw)
	case EventSelectWord:
		r.handleSelectWordLocked(c, raw)
	case EventRequestHint:
		r.handleRequestHintLocked(c, raw)
	case EventEndRound:
		r.handleEndRoundLocked(c, raw)
	default:
		logging.Debug(r.ctx, "unknown event", zap.String("event", event))
	}
}

// ownsLocked verifies the payload addresses this room.
func (r *Room) ownsLocked(id RoomIdType) bool {
	if id != r.ID {
		logging.Debug(r.ctx, "dropping event addressed to another room",
			zap.String("addressed_room", string(id)))
		return false
	}
	return true
}

func (r *Room) handleDrawingLocked(c *Client, raw json.RawMessage) {
	var p DrawingPayload
	if err := json.Unmarshal(raw, &p); err != nil || !r.ownsLocked(p.RoomID) {
		return
	}
	if !p.DrawingData.Valid() {
		logging.Debug(r.ctx, "dropping malformed stroke", zap.String("user_id", string(c.ID)))
		return
	}
	// While a round is live only the drawer's strokes count.
	if r.game.IsRoundActive() && r.game.DrawerID() != string(c.ID) {
		return
	}

	r.log.Append(canvas.Event{
		Stroke:    p.DrawingData,
		UserID:    string(c.ID),
		Timestamp: r.clk.Now().UnixMilli(),
	})
	strokesTotal.Inc()
	r.broadcastLocked(EventDrawing, DrawingEventPayload{DrawingData: p.DrawingData, UserID: c.ID}, c.ID)
}

func (r *Room) handleClearCanvasLocked(c *Client, raw json.RawMessage) {
	var p RoomOnlyPayload
	if err := json.Unmarshal(raw, &p); err != nil || !r.ownsLocked(p.RoomID) {
		return
	}
	r.log.Clear()
	r.broadcastLocked(EventCanvasCleared, nil, "")
}

func (r *Room) handleChatLocked(c *Client, raw json.RawMessage) {
	var p ChatMessagePayload
	if err := json.Unmarshal(raw, &p); err != nil || !r.ownsLocked(p.RoomID) {
		return
	}
	message := strings.TrimSpace(p.Message)
	if message == "" {
		return
	}
	user, _ := r.userByIDLocked(c.ID)

	res := r.game.Guess(string(c.ID), message)
	if res.Verdict != game.VerdictChat {
		// A correct guess never echoes as chat; the engine has already
		// emitted correct-guess and leaderboard-update. Repeats of the
		// word by players who guessed it are swallowed entirely.
		return
	}

	chatMessagesTotal.Inc()
	r.broadcastLocked(EventChatMessage, ChatEventPayload{
		User:      user,
		Message:   message,
		Timestamp: r.clk.Now().UnixMilli(),
		IsGuess:   res.IsGuess,
	}, "")
}

func (r *Room) handleStartGameLocked(c *Client, raw json.RawMessage) {
	var p StartGamePayload
	if err := json.Unmarshal(raw, &p); err != nil || !r.ownsLocked(p.RoomID) {
		return
	}
	if err := r.game.Start(p.Settings); err != nil {
		logging.Debug(r.ctx, "start-game rejected", zap.Error(err))
	}
}

func (r *Room) handleSelectWordLocked(c *Client, raw json.RawMessage) {
	var p SelectWordPayload
	if err := json.Unmarshal(raw, &p); err != nil || !r.ownsLocked(p.RoomID) {
		return
	}
	if err := r.game.SelectWord(string(c.ID), p.Word); err != nil {
		logging.Debug(r.ctx, "select-word rejected",
			zap.String("user_id", string(c.ID)),
			zap.Error(err))
	}
}

func (r *Room) handleRequestHintLocked(c *Client, raw json.RawMessage) {
	var p RoomOnlyPayload
	if err := json.Unmarshal(raw, &p); err != nil || !r.ownsLocked(p.RoomID) {
		return
	}
	if err := r.game.RequestHint(string(c.ID)); err != nil {
		logging.Debug(r.ctx, "request-hint rejected", zap.Error(err))
	}
}

func (r *Room) handleEndRoundLocked(c *Client, raw json.RawMessage) {
	var p RoomOnlyPayload
	if err := json.Unmarshal(raw, &p); err != nil || !r.ownsLocked(p.RoomID) {
		return
	}
	r.game.EndRound()
}

// --- Fan-out ---

// broadcastLocked encodes once and queues the frame to every member except
// the excluded id. Pass an empty id to reach everyone.
func (r *Room) broadcastLocked(event string, payload any, exclude UserIdType) {
	data, err := encodeEvent(event, payload)
	if err != nil {
		logging.Error(r.ctx, "failed to encode broadcast",
			zap.String("event", event), zap.Error(err))
		return
	}
	for id, client := range r.clients {
		if exclude != "" && id == exclude {
			continue
		}
		client.enqueue(data)
	}
}

// sendRoomStateLocked sends one client the complete picture: members in join
// order, the stroke log for replay, and the game snapshot.
func (r *Room) sendRoomStateLocked(c *Client, user User) {
	users := make([]User, len(r.users))
	copy(users, r.users)
	c.sendEvent(EventRoomJoined, RoomJoinedPayload{
		RoomID:      r.ID,
		RoomName:    r.Name,
		User:        user,
		Users:       users,
		DrawingData: r.log.Snapshot(),
		GameState:   r.game.Snapshot(),
	})
}

// Info returns the REST list projection of this room.
func (r *Room) Info() RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.infoLocked()
}

func (r *Room) infoLocked() RoomInfo {
	return RoomInfo{
		ID:        r.ID,
		Name:      r.Name,
		UserCount: len(r.users),
		CreatedAt: r.CreatedAt,
	}
}

// Detail returns the expanded REST projection with members and game state.
func (r *Room) Detail() RoomDetail {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]User, len(r.users))
	copy(users, r.users)
	return RoomDetail{
		RoomInfo:  r.infoLocked(),
		Users:     users,
		GameState: r.game.Snapshot(),
	}
}

// --- Engine Sink ---

// gameSink adapts the room's fan-out primitives to the engine's Events
// interface. The engine only calls it while the room lock is held, either
// from a client event or from a serialized timer transition.
type gameSink Room

func (s *gameSink) room() *Room { return (*Room)(s) }

func (s *gameSink) ToPlayer(playerID string, event string, payload any) {
	r := s.room()
	if client, ok := r.clients[UserIdType(playerID)]; ok {
		client.sendEvent(event, payload)
	}
}

func (s *gameSink) Broadcast(event string, payload any) {
	s.room().broadcastLocked(event, payload, "")
}

func (s *gameSink) BroadcastExcept(playerID string, event string, payload any) {
	s.room().broadcastLocked(event, payload, UserIdType(playerID))
}

func (s *gameSink) ClearCanvas() {
	r := s.room()
	r.log.Clear()
	r.broadcastLocked(EventCanvasCleared, nil, "")
}
