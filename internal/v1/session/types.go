// Package session - types.go
//
// Wire protocol for the drawing game. Every frame on the socket is a JSON
// envelope {event, payload}; the constants and payload structs here define
// both directions of that contract.
//
// Direction Conventions:
//   - Client -> server payloads carry a roomId which must match the room the
//     connection is attached to. create-room and join-room are the exception:
//     they are handled by the Hub before any attachment exists.
//   - Server -> client payloads never include a roomId except room-created
//     and room-joined, which establish it.
//
// The round lifecycle events (game-started, round-started-*, word-selected,
// correct-guess, leaderboard-update, hint-revealed, round-ended, game-ended)
// are named and shaped by the game package; the session layer only transports
// them.
package session

import (
	"encoding/json"
	"time"

	"github.com/sketchroom/backend/internal/v1/canvas"
	"github.com/sketchroom/backend/internal/v1/game"
)

// RoomIdType uniquely identifies a room for the duration of its life.
type RoomIdType string

// UserIdType uniquely identifies one connection. A refresh produces a new id.
type UserIdType string

// --- Event Names ---

// Client -> server events.
const (
	EventCreateRoom  = "create-room"
	EventJoinRoom    = "join-room"
	EventDrawing     = "drawing" // also the server -> client relay event
	EventClearCanvas = "clear-canvas"
	EventChatMessage = "chat-message" // also the server -> client broadcast event
	EventStartGame   = "start-game"
	EventSelectWord  = "select-word"
	EventRequestHint = "request-hint"
	EventEndRound    = "end-round"
)

// Server -> client events owned by the session layer.
const (
	EventRoomCreated   = "room-created"
	EventRoomJoined    = "room-joined"
	EventUserJoined    = "user-joined"
	EventUserLeft      = "user-left"
	EventCanvasCleared = "canvas-cleared"
	EventError         = "error"
)

// knownEvents bounds the metrics label space; anything a client invents is
// counted under "unknown".
var knownEvents = map[string]struct{}{
	EventCreateRoom:  {},
	EventJoinRoom:    {},
	EventDrawing:     {},
	EventClearCanvas: {},
	EventChatMessage: {},
	EventStartGame:   {},
	EventSelectWord:  {},
	EventRequestHint: {},
	EventEndRound:    {},
}

// --- Envelope ---

// Message is the inbound envelope. Payload stays raw until the event is
// dispatched so each handler can decode its own shape.
type Message struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// outboundMessage mirrors Message for encoding; Payload is any marshalable
// value. Events without a payload omit the field entirely.
type outboundMessage struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

func encodeEvent(event string, payload any) ([]byte, error) {
	return json.Marshal(outboundMessage{Event: event, Payload: payload})
}

// --- Users ---

// User is the public identity of a connection inside a room. The color is
// assigned server-side on entry and referenced by clients to tint chat and
// cursors.
type User struct {
	ID       UserIdType `json:"id"`
	Username string     `json:"username"`
	Color    string     `json:"color"`
}

// palette holds the colors users are dealt from, with replacement.
var palette = [...]string{
	"#e6194b", // red
	"#3cb44b", // green
	"#ffe119", // yellow
	"#4363d8", // blue
	"#f58231", // orange
	"#911eb4", // purple
	"#46f0f0", // cyan
	"#f032e6", // magenta
	"#bcf60c", // lime
	"#fabebe", // pink
	"#008080", // teal
	"#9a6324", // brown
}

// --- Client -> Server Payloads ---

type CreateRoomPayload struct {
	RoomName string `json:"roomName"`
	Username string `json:"username"`
}

type JoinRoomPayload struct {
	RoomID   RoomIdType `json:"roomId"`
	Username string     `json:"username"`
}

type DrawingPayload struct {
	RoomID      RoomIdType    `json:"roomId"`
	DrawingData canvas.Stroke `json:"drawingData"`
}

// RoomOnlyPayload covers clear-canvas, request-hint and end-round, which
// carry nothing beyond the room id.
type RoomOnlyPayload struct {
	RoomID RoomIdType `json:"roomId"`
}

type ChatMessagePayload struct {
	RoomID  RoomIdType `json:"roomId"`
	Message string     `json:"message"`
}

type StartGamePayload struct {
	RoomID   RoomIdType    `json:"roomId"`
	Settings game.Settings `json:"settings"`
}

type SelectWordPayload struct {
	RoomID RoomIdType `json:"roomId"`
	Word   string     `json:"word"`
}

// --- Server -> Client Payloads ---

type RoomCreatedPayload struct {
	RoomID   RoomIdType `json:"roomId"`
	RoomName string     `json:"roomName"`
	User     User       `json:"user"`
}

// RoomJoinedPayload is the full room snapshot a joiner needs to render
// without further requests: the member list, the canvas replay and the game
// state as the engine exposes it.
type RoomJoinedPayload struct {
	RoomID      RoomIdType     `json:"roomId"`
	RoomName    string         `json:"roomName"`
	User        User           `json:"user"`
	Users       []User         `json:"users"`
	DrawingData []canvas.Event `json:"drawingData"`
	GameState   game.Snapshot  `json:"gameState"`
}

// UserEventPayload announces membership changes (user-joined, user-left).
type UserEventPayload struct {
	User User `json:"user"`
}

// DrawingEventPayload relays one stroke to everyone but its author.
type DrawingEventPayload struct {
	DrawingData canvas.Stroke `json:"drawingData"`
	UserID      UserIdType    `json:"userId"`
}

type ChatEventPayload struct {
	User      User   `json:"user"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
	IsGuess   bool   `json:"isGuess"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

// --- REST Shapes ---

// RoomInfo is the REST projection of a room as it appears in the list.
type RoomInfo struct {
	ID        RoomIdType `json:"id"`
	Name      string     `json:"name"`
	UserCount int        `json:"userCount"`
	CreatedAt time.Time  `json:"createdAt"`
}

// RoomDetail is the single-room REST projection: the list fields plus the
// member list and game state a lobby preview needs.
type RoomDetail struct {
	RoomInfo
	Users     []User        `json:"users"`
	GameState game.Snapshot `json:"gameState"`
}
