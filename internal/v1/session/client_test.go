package session

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeTestEnvelope(t *testing.T, event string, payload any) []byte {
	t.Helper()
	data, err := encodeEvent(event, payload)
	require.NoError(t, err)
	return data
}

func TestReadPump(t *testing.T) {
	t.Run("should dispatch decoded envelopes and clean up on read error", func(t *testing.T) {
		h, _ := newTestHub(t)
		conn := &mockConn{readMessages: [][]byte{
			encodeTestEnvelope(t, EventCreateRoom, CreateRoomPayload{RoomName: "Doodles", Username: "ada"}),
		}}
		c := newClient(h, conn)
		h.clients[c.ID] = c

		// Runs to completion: the mock returns an error once drained.
		c.readPump()

		frames := drainFrames(t, c)
		frame := requireFrame(t, frames, EventRoomCreated)
		var p RoomCreatedPayload
		decodeInto(t, frame, &p)
		assert.Equal(t, "Doodles", p.RoomName)
		assert.Equal(t, "ada", p.User.Username)

		// The deferred disconnect tore everything down: the creator left,
		// so the room is gone and the connection is closed.
		assert.Empty(t, h.rooms)
		assert.Empty(t, h.clients)
		assert.True(t, conn.IsClosed())
	})

	t.Run("should skip malformed and empty envelopes", func(t *testing.T) {
		h, _ := newTestHub(t)
		conn := &mockConn{readMessages: [][]byte{
			[]byte("{not json"),
			[]byte(`{"payload":{"roomName":"x","username":"y"}}`),
		}}
		c := newClient(h, conn)
		h.clients[c.ID] = c

		c.readPump()

		assert.Empty(t, drainFrames(t, c))
		assert.Empty(t, h.rooms)
	})
}

func TestWritePump(t *testing.T) {
	t.Run("should drain queued frames then send a close frame", func(t *testing.T) {
		h, _ := newTestHub(t)
		conn := &mockConn{}
		c := newClient(h, conn)

		c.enqueue([]byte(`{"event":"one"}`))
		c.enqueue([]byte(`{"event":"two"}`))
		close(c.send)

		c.writePump()

		written := conn.Written()
		require.Len(t, written, 3)
		assert.JSONEq(t, `{"event":"one"}`, string(written[0]))
		assert.JSONEq(t, `{"event":"two"}`, string(written[1]))
		assert.Empty(t, written[2])
		assert.True(t, conn.IsClosed())
	})

	t.Run("should stop on write error", func(t *testing.T) {
		h, _ := newTestHub(t)
		conn := &mockConn{writeErr: errors.New("broken pipe")}
		c := newClient(h, conn)

		c.enqueue([]byte(`{"event":"one"}`))
		close(c.send)

		c.writePump()

		assert.Empty(t, conn.Written())
		assert.True(t, conn.IsClosed())
	})
}

func TestSendEvent(t *testing.T) {
	t.Run("should queue an encoded envelope", func(t *testing.T) {
		h, _ := newTestHub(t)
		c := newClient(h, &mockConn{})

		c.sendEvent(EventError, ErrorPayload{Error: "Room not found"})

		data := <-c.send
		var m Message
		require.NoError(t, json.Unmarshal(data, &m))
		assert.Equal(t, EventError, m.Event)
		var p ErrorPayload
		decodeInto(t, m, &p)
		assert.Equal(t, "Room not found", p.Error)
	})

	t.Run("should drop instead of blocking when the buffer is full", func(t *testing.T) {
		h, _ := newTestHub(t)
		c := newClient(h, &mockConn{})
		c.send = make(chan []byte, 1)

		c.sendEvent(EventError, ErrorPayload{Error: "first"})
		c.sendEvent(EventError, ErrorPayload{Error: "second"})

		frames := drainFrames(t, c)
		require.Len(t, frames, 1)
		var p ErrorPayload
		decodeInto(t, frames[0], &p)
		assert.Equal(t, "first", p.Error)
	})

	t.Run("should omit the payload field for payload-free events", func(t *testing.T) {
		h, _ := newTestHub(t)
		c := newClient(h, &mockConn{})

		c.sendEvent(EventCanvasCleared, nil)

		data := <-c.send
		assert.JSONEq(t, `{"event":"canvas-cleared"}`, string(data))
	})
}

func TestClientAttachment(t *testing.T) {
	t.Run("should report no room before attachment", func(t *testing.T) {
		h, _ := newTestHub(t)
		c := newClient(h, &mockConn{})

		assert.Nil(t, c.attachedRoom())
		assert.Empty(t, c.currentUser().ID)
	})

	t.Run("should expose the room and user after attachment", func(t *testing.T) {
		h, _ := newTestHub(t)
		c := newClient(h, &mockConn{})
		room := newRoom("room-1", "Doodles", h.bank, h.clk, h.rng)
		user := User{ID: c.ID, Username: "ada", Color: "#e6194b"}

		c.attach(room, user)

		assert.Same(t, room, c.attachedRoom())
		assert.Equal(t, user, c.currentUser())
	})
}
