// Package game implements the per-room round state machine: drawer rotation,
// word offers, timed guessing, scoring, hints, and termination.
//
// Concurrency Design:
// The engine itself holds no lock. Every method must be called inside the
// owning room's critical section; delayed transitions re-enter it through the
// Serialize hook, so handler-driven and timer-driven mutations never
// interleave on the same room.
//
// State Machine:
//
//	Idle ──Start──▶ Intermission ──startRound──▶ WaitingForWord
//	  ▲                   ▲                            │
//	  │                   │                        SelectWord
//	endGame            finishRound                     │
//	  │                   │                            ▼
//	  └─────────────── Intermission ◀──────────── Drawing
package game

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"k8s.io/utils/set"

	"github.com/sketchroom/backend/internal/v1/clock"
	"github.com/sketchroom/backend/internal/v1/logging"
	"github.com/sketchroom/backend/internal/v1/words"
)

// --- Settings ---

// Settings bounds and defaults. Out-of-range values from clients are clamped
// rather than rejected; zero means "use the default".
const (
	MinRounds       = 1
	MaxRounds       = 10
	DefaultRounds   = 3
	MinDrawTime     = 30
	MaxDrawTime     = 180
	DefaultDrawTime = 60
)

// Settings configures one game. DrawTime is in seconds.
type Settings struct {
	Rounds   int `json:"rounds"`
	DrawTime int `json:"drawTime"`
}

func (s Settings) normalized() Settings {
	out := s
	if out.Rounds == 0 {
		out.Rounds = DefaultRounds
	}
	if out.DrawTime == 0 {
		out.DrawTime = DefaultDrawTime
	}
	if out.Rounds < MinRounds {
		out.Rounds = MinRounds
	}
	if out.Rounds > MaxRounds {
		out.Rounds = MaxRounds
	}
	if out.DrawTime < MinDrawTime {
		out.DrawTime = MinDrawTime
	}
	if out.DrawTime > MaxDrawTime {
		out.DrawTime = MaxDrawTime
	}
	return out
}

// --- States and transitions ---

// State is the engine's phase.
type State int

const (
	// StateIdle: no game in progress. Scores from a finished game remain
	// visible until the next start.
	StateIdle State = iota
	// StateIntermission: a game is active but no round is running (the
	// pre-round delay, the gap between rounds, or the gap before game end).
	StateIntermission
	// StateWaitingForWord: a drawer holds word options and has not picked.
	StateWaitingForWord
	// StateDrawing: a word is selected and guessing is open.
	StateDrawing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateIntermission:
		return "intermission"
	case StateWaitingForWord:
		return "waiting-for-word"
	case StateDrawing:
		return "drawing"
	default:
		return "unknown"
	}
}

// Transition delays and scoring constants.
const (
	firstRoundDelay = 3 * time.Second
	interRoundDelay = 5 * time.Second
	gameEndDelay    = 5 * time.Second
	allGuessedDelay = 2 * time.Second

	wordOptionCount = 3
	drawerBonus     = 25
)

// Timer registry names. One pending transition per name at a time.
const (
	timerFirstRound = "first-round"
	timerRoundEnd   = "round-end"
	timerAllGuessed = "all-guessed"
	timerNextRound  = "next-round"
	timerGameEnd    = "game-end"
)

var (
	ErrGameActive  = errors.New("game already active")
	ErrNoPlayers   = errors.New("no players in game")
	ErrNotDrawer   = errors.New("sender is not the current drawer")
	ErrNoSelection = errors.New("no word selection pending")
	ErrNotOffered  = errors.New("word is not among the offered options")
	ErrNoRound     = errors.New("no active round")
	ErrNotInGame   = errors.New("player is not in this game")
)

// --- Collaborator interfaces ---

// Events receives the engine's outbound notifications. The session layer
// implements it on top of the room's fan-out primitives. Every method is
// invoked inside the room's critical section, so implementations must queue,
// not block, and must not call back into the engine.
type Events interface {
	ToPlayer(playerID string, event string, payload any)
	Broadcast(event string, payload any)
	BroadcastExcept(playerID string, event string, payload any)
	// ClearCanvas wipes the room's drawing log and tells clients so.
	ClearCanvas()
}

// Scheduler is the per-room one-shot timer registry the engine drives its
// delayed transitions through. timers.Service satisfies it.
type Scheduler interface {
	Schedule(name string, d time.Duration, fn func())
	Cancel(name string)
	CancelAll()
}

// Player is a scoring participant. Insertion order is the drawer rotation
// order.
type Player struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Score      int    `json:"score"`
	HasGuessed bool   `json:"hasGuessed"`
}

func (p *Player) ref() PlayerRef {
	return PlayerRef{ID: p.ID, Username: p.Username}
}

// Config wires a Game to its room.
type Config struct {
	RoomID    string
	Clock     clock.Clock
	Rand      *clock.Rand
	Bank      *words.Bank
	Sink      Events
	Scheduler Scheduler
	// Serialize runs a timer-driven transition inside the room's critical
	// section. The room supplies its lock here.
	Serialize func(func())
}

// Game is one room's state machine. Not safe for concurrent use on its own;
// see the package comment for the serialization contract.
type Game struct {
	ctx       context.Context
	clk       clock.Clock
	rng       *clock.Rand
	bank      *words.Bank
	sink      Events
	sched     Scheduler
	serialize func(func())

	state        State
	settings     Settings
	currentRound int
	players      []*Player
	drawerID     string
	currentWord  string
	wordOptions  []string
	usedWords    set.Set[string]
	guessed      []string
	roundStart   time.Time
}

// New returns an idle Game with default settings.
func New(cfg Config) *Game {
	serialize := cfg.Serialize
	if serialize == nil {
		serialize = func(fn func()) { fn() }
	}
	return &Game{
		ctx:       logging.WithRoom(context.Background(), cfg.RoomID),
		clk:       cfg.Clock,
		rng:       cfg.Rand,
		bank:      cfg.Bank,
		sink:      cfg.Sink,
		sched:     cfg.Scheduler,
		serialize: serialize,
		state:     StateIdle,
		settings:  Settings{}.normalized(),
		usedWords: set.New[string](),
	}
}

// --- Membership ---

// AddPlayer registers a player at the end of the rotation. Adding an id that
// is already present is a no-op, so a rejoin cannot duplicate a slot.
func (g *Game) AddPlayer(id, username string) {
	if g.playerByID(id) != nil {
		return
	}
	g.players = append(g.players, &Player{ID: id, Username: username})
}

// RemovePlayer drops a player from the rotation. If the departing player is
// the drawer of a pending or running round, the round ends immediately and
// the usual inter-round delay follows.
func (g *Game) RemovePlayer(id string) {
	idx := -1
	for i, p := range g.players {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	g.players = append(g.players[:idx], g.players[idx+1:]...)
	for i, gid := range g.guessed {
		if gid == id {
			g.guessed = append(g.guessed[:i], g.guessed[i+1:]...)
			break
		}
	}

	if g.drawerID == id && (g.state == StateWaitingForWord || g.state == StateDrawing) {
		logging.Info(g.ctx, "drawer left mid-round, ending round", zap.String("drawer_id", id), zap.Int("round", g.currentRound))
		g.finishRound()
	}
}

// --- Game flow ---

// Start begins a new game with the given settings. It clears canvases,
// announces the game, and schedules the first round. Starting while a game
// is already active fails, which the caller treats as a silent drop.
func (g *Game) Start(s Settings) error {
	if g.state != StateIdle {
		return ErrGameActive
	}
	if len(g.players) == 0 {
		return ErrNoPlayers
	}

	g.settings = s.normalized()
	g.currentRound = 0
	g.drawerID = ""
	g.currentWord = ""
	g.wordOptions = nil
	g.guessed = nil
	g.usedWords = set.New[string]()
	for _, p := range g.players {
		p.Score = 0
		p.HasGuessed = false
	}
	g.state = StateIntermission

	gamesStarted.Inc()
	logging.Info(g.ctx, "game started",
		zap.Int("rounds", g.settings.Rounds),
		zap.Int("draw_time", g.settings.DrawTime),
		zap.Int("players", len(g.players)))

	g.sink.ClearCanvas()
	g.sink.Broadcast(EventGameStarted, GameStartedPayload{
		Rounds:   g.settings.Rounds,
		DrawTime: g.settings.DrawTime,
	})
	g.schedule(timerFirstRound, firstRoundDelay, func() {
		if g.state == StateIntermission {
			g.startRound()
		}
	})
	return nil
}

// startRound advances to the next round: rotate the drawer, offer words,
// reset per-round state. Runs the end-of-game checks first.
func (g *Game) startRound() {
	if len(g.players) == 0 {
		return
	}

	g.currentRound++
	if g.currentRound > g.settings.Rounds {
		g.endGame()
		return
	}

	drawer := g.players[(g.currentRound-1)%len(g.players)]
	options := g.bank.Pick(g.rng, wordOptionCount, g.usedWords)
	if len(options) == 0 {
		logging.Warn(g.ctx, "word bank exhausted, ending game", zap.Int("round", g.currentRound))
		g.endGame()
		return
	}

	g.drawerID = drawer.ID
	g.wordOptions = options
	g.currentWord = ""
	g.guessed = nil
	for _, p := range g.players {
		p.HasGuessed = false
	}
	g.state = StateWaitingForWord

	roundsStarted.Inc()
	logging.Info(g.ctx, "round started",
		zap.Int("round", g.currentRound),
		zap.Int("total_rounds", g.settings.Rounds),
		zap.String("drawer_id", drawer.ID))

	g.sink.ClearCanvas()
	g.sink.ToPlayer(drawer.ID, EventRoundStartedDrawer, DrawerRoundPayload{
		Drawer:      drawer.ref(),
		WordOptions: options,
		Round:       g.currentRound,
		TotalRounds: g.settings.Rounds,
	})
	g.sink.BroadcastExcept(drawer.ID, EventRoundStartedGuesser, GuesserRoundPayload{
		Drawer:      drawer.ref(),
		Round:       g.currentRound,
		TotalRounds: g.settings.Rounds,
	})
}

// SelectWord records the drawer's pick and opens the guessing window. A
// second select while a round is already running is rejected so the round-end
// timer cannot be re-armed mid-round.
func (g *Game) SelectWord(playerID, word string) error {
	if g.state != StateWaitingForWord {
		return ErrNoSelection
	}
	if playerID != g.drawerID {
		return ErrNotDrawer
	}

	picked := strings.ToLower(strings.TrimSpace(word))
	offered := false
	for _, w := range g.wordOptions {
		if w == picked {
			offered = true
			break
		}
	}
	if !offered {
		return ErrNotOffered
	}

	g.currentWord = picked
	g.usedWords.Insert(picked)
	g.roundStart = g.clk.Now()
	g.state = StateDrawing

	logging.Info(g.ctx, "word selected", zap.Int("round", g.currentRound), zap.Int("word_length", len([]rune(picked))))

	g.sink.ToPlayer(playerID, EventWordSelected, WordSelectedDrawerPayload{Word: picked})
	g.sink.BroadcastExcept(playerID, EventWordSelected, WordSelectedGuesserPayload{
		MaskedWord: maskWord(picked),
		WordLength: len([]rune(picked)),
	})
	g.schedule(timerRoundEnd, time.Duration(g.settings.DrawTime)*time.Second, func() {
		if g.state == StateDrawing {
			g.finishRound()
		}
	})
	return nil
}

// GuessVerdict classifies a chat message during adjudication.
type GuessVerdict int

const (
	// VerdictChat: not a correct guess; the caller broadcasts it as chat.
	VerdictChat GuessVerdict = iota
	// VerdictCorrect: scored; the engine has already emitted all events.
	VerdictCorrect
	// VerdictSuppressed: swallowed entirely (an already-correct guesser
	// resent the word; echoing it would leak the answer).
	VerdictSuppressed
)

// GuessResult is the adjudication outcome for one chat message.
type GuessResult struct {
	Verdict GuessVerdict
	// IsGuess tags a chat-bound message as a failed guess attempt.
	IsGuess bool
}

// Guess adjudicates a chat message. Correct guesses are scored and announced
// here; anything else is returned to the caller to broadcast as chat.
func (g *Game) Guess(playerID, message string) GuessResult {
	p := g.playerByID(playerID)
	if p == nil {
		return GuessResult{Verdict: VerdictSuppressed}
	}
	if g.state != StateDrawing || playerID == g.drawerID {
		return GuessResult{Verdict: VerdictChat}
	}

	if strings.ToLower(strings.TrimSpace(message)) != g.currentWord {
		return GuessResult{Verdict: VerdictChat, IsGuess: true}
	}
	if p.HasGuessed {
		return GuessResult{Verdict: VerdictSuppressed}
	}

	g.scoreCorrectGuess(p)
	return GuessResult{Verdict: VerdictCorrect}
}

// scoreCorrectGuess awards guesser and drawer, announces the guess, and
// closes the round early once every guesser has it.
func (g *Game) scoreCorrectGuess(p *Player) {
	p.HasGuessed = true
	g.guessed = append(g.guessed, p.ID)

	base := 25
	switch len(g.guessed) {
	case 1:
		base = 100
	case 2:
		base = 75
	case 3:
		base = 50
	}
	elapsed := int(g.clk.Since(g.roundStart) / time.Second)
	bonus := (g.settings.DrawTime - elapsed) / 2
	if bonus < 0 {
		bonus = 0
	}
	points := base + bonus
	p.Score += points
	if drawer := g.playerByID(g.drawerID); drawer != nil {
		drawer.Score += drawerBonus
	}

	correctGuesses.Inc()
	logging.Info(g.ctx, "correct guess",
		zap.String("player_id", p.ID),
		zap.Int("order", len(g.guessed)),
		zap.Int("points", points))

	word := g.currentWord
	g.sink.ToPlayer(p.ID, EventCorrectGuess, CorrectGuessPayload{Player: p.ref(), Points: points, Word: &word})
	g.sink.BroadcastExcept(p.ID, EventCorrectGuess, CorrectGuessPayload{Player: p.ref(), Points: points, Word: nil})
	g.sink.Broadcast(EventLeaderboardUpdate, LeaderboardPayload{Leaderboard: g.sortedScores()})

	if g.allGuessersDone() {
		// Short grace so the last correct-guess event lands before the
		// reveal.
		g.schedule(timerAllGuessed, allGuessedDelay, func() {
			if g.state == StateDrawing {
				g.finishRound()
			}
		})
	}
}

func (g *Game) allGuessersDone() bool {
	for _, p := range g.players {
		if p.ID == g.drawerID {
			continue
		}
		if !p.HasGuessed {
			return false
		}
	}
	return true
}

// RequestHint reveals one randomly chosen character to the guessers. Each
// request samples independently, so a later hint may repeat an earlier
// position.
func (g *Game) RequestHint(playerID string) error {
	if g.state != StateDrawing {
		return ErrNoRound
	}
	if g.playerByID(playerID) == nil {
		return ErrNotInGame
	}

	hintsRequested.Inc()
	g.sink.BroadcastExcept(g.drawerID, EventHintRevealed, HintPayload{
		Hint: hintWord(g.rng, g.currentWord, 1),
	})
	return nil
}

// EndRound terminates the running round early, exactly as if the round-end
// timer had fired. A no-op unless a round is active.
func (g *Game) EndRound() {
	if g.state != StateDrawing {
		return
	}
	g.finishRound()
}

// finishRound closes the current round from either StateDrawing or, for a
// drawer departure, StateWaitingForWord. It reveals the word (nil when none
// was picked) and schedules the next transition.
func (g *Game) finishRound() {
	g.sched.Cancel(timerRoundEnd)
	g.sched.Cancel(timerAllGuessed)

	var word *string
	if g.currentWord != "" {
		w := g.currentWord
		word = &w
	}
	g.currentWord = ""
	g.wordOptions = nil
	g.drawerID = ""
	g.state = StateIntermission

	logging.Info(g.ctx, "round ended", zap.Int("round", g.currentRound), zap.Int("correct_guesses", len(g.guessed)))

	g.sink.Broadcast(EventRoundEnded, RoundEndedPayload{Word: word, Scores: g.sortedScores()})

	if g.currentRound >= g.settings.Rounds {
		g.schedule(timerGameEnd, gameEndDelay, func() {
			if g.state == StateIntermission {
				g.endGame()
			}
		})
	} else {
		g.schedule(timerNextRound, interRoundDelay, func() {
			if g.state == StateIntermission {
				g.startRound()
			}
		})
	}
}

// endGame announces the winner and returns to Idle. Scores stay on the
// players until the next Start so clients can keep showing the final board.
func (g *Game) endGame() {
	g.sched.CancelAll()

	scores := g.sortedScores()
	var winner *ScoreEntry
	if len(scores) > 0 {
		w := scores[0]
		winner = &w
	}

	g.state = StateIdle
	g.currentRound = 0
	g.drawerID = ""
	g.currentWord = ""
	g.wordOptions = nil
	g.guessed = nil
	g.usedWords = set.New[string]()

	logging.Info(g.ctx, "game ended", zap.Any("winner", winner))

	g.sink.Broadcast(EventGameEnded, GameEndedPayload{Winner: winner, Scores: scores})
}

// Shutdown silences the engine for room teardown: no broadcasts, no timers.
func (g *Game) Shutdown() {
	g.state = StateIdle
	g.sched.CancelAll()
}

// --- Read accessors for the session layer ---

// IsActive reports whether a game is in progress.
func (g *Game) IsActive() bool {
	return g.state != StateIdle
}

// IsRoundActive reports whether guessing is currently open.
func (g *Game) IsRoundActive() bool {
	return g.state == StateDrawing
}

// DrawerID returns the current drawer's id, or "" outside a round.
func (g *Game) DrawerID() string {
	return g.drawerID
}

// Snapshot builds the gameState view for a joining client.
func (g *Game) Snapshot() Snapshot {
	snap := Snapshot{
		IsActive:      g.state != StateIdle,
		IsRoundActive: g.state == StateDrawing,
		CurrentRound:  g.currentRound,
		TotalRounds:   g.settings.Rounds,
		DrawTime:      g.settings.DrawTime,
	}
	if drawer := g.playerByID(g.drawerID); drawer != nil {
		ref := drawer.ref()
		snap.CurrentDrawer = &ref
	}
	if g.state == StateDrawing {
		masked := maskWord(g.currentWord)
		snap.MaskedWord = &masked
		snap.WordLength = len([]rune(g.currentWord))
	}
	for _, p := range g.players {
		snap.Players = append(snap.Players, *p)
	}
	return snap
}

// --- Internals ---

func (g *Game) playerByID(id string) *Player {
	if id == "" {
		return nil
	}
	for _, p := range g.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (g *Game) sortedScores() []ScoreEntry {
	entries := make([]ScoreEntry, 0, len(g.players))
	for _, p := range g.players {
		entries = append(entries, ScoreEntry{ID: p.ID, Username: p.Username, Score: p.Score})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	return entries
}

// schedule registers a delayed transition that re-enters the room's critical
// section before touching the engine.
func (g *Game) schedule(name string, d time.Duration, fn func()) {
	g.sched.Schedule(name, d, func() {
		g.serialize(fn)
	})
}
