// Package canvas stores the replayable drawing history of a room.
package canvas

import "sync"

// Stroke types.
const (
	StrokeDraw  = "draw"
	StrokeErase = "erase"
)

// Point is a single canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is one drawing event as it travels on the wire and as it is stored
// for replay to late joiners.
type Stroke struct {
	Type      string  `json:"type"`
	Points    []Point `json:"points"`
	Color     string  `json:"color"`
	LineWidth float64 `json:"lineWidth"`
}

// Valid reports whether the stroke is well-formed enough to relay and store.
func (s Stroke) Valid() bool {
	if s.Type != StrokeDraw && s.Type != StrokeErase {
		return false
	}
	return len(s.Points) > 0
}

// Event is a stored stroke plus its provenance. The embedded Stroke fields
// flatten into the JSON object, so a replayed event carries the same shape a
// live drawing event does.
type Event struct {
	Stroke
	UserID    string `json:"userId"`
	Timestamp int64  `json:"timestamp"`
}

// Log is the append-only stroke history for one room. It is safe for
// concurrent use; reads take a snapshot so replay never races new strokes.
type Log struct {
	mu     sync.RWMutex
	events []Event
}

// NewLog returns an empty drawing log.
func NewLog() *Log {
	return &Log{}
}

// Append records one event at the end of the history.
func (l *Log) Append(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

// Snapshot returns a copy of the full history in append order.
func (l *Log) Snapshot() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Clear discards the history. Used on clear-canvas and at round starts.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}

// Len returns the number of stored events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}
