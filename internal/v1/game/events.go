package game

// Outbound event names owned by the game engine. The session layer carries
// them to clients verbatim; payload shapes below are the wire contract.
const (
	EventGameStarted         = "game-started"
	EventRoundStartedDrawer  = "round-started-drawer"
	EventRoundStartedGuesser = "round-started-guesser"
	EventWordSelected        = "word-selected"
	EventCorrectGuess        = "correct-guess"
	EventLeaderboardUpdate   = "leaderboard-update"
	EventHintRevealed        = "hint-revealed"
	EventRoundEnded          = "round-ended"
	EventGameEnded           = "game-ended"
)

// PlayerRef identifies a player in outbound payloads without carrying score
// state. Clients resolve presentation details from their own user list.
type PlayerRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// ScoreEntry is one leaderboard row.
type ScoreEntry struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}

// GameStartedPayload announces the agreed settings to the whole room.
type GameStartedPayload struct {
	Rounds   int `json:"rounds"`
	DrawTime int `json:"drawTime"`
}

// DrawerRoundPayload goes to the drawer alone; it is the only payload that
// ever carries the word options.
type DrawerRoundPayload struct {
	Drawer      PlayerRef `json:"drawer"`
	WordOptions []string  `json:"wordOptions"`
	Round       int       `json:"round"`
	TotalRounds int       `json:"totalRounds"`
}

// GuesserRoundPayload goes to everyone but the drawer.
type GuesserRoundPayload struct {
	Drawer      PlayerRef `json:"drawer"`
	Round       int       `json:"round"`
	TotalRounds int       `json:"totalRounds"`
}

// WordSelectedDrawerPayload confirms the pick to the drawer.
type WordSelectedDrawerPayload struct {
	Word string `json:"word"`
}

// WordSelectedGuesserPayload tells guessers the shape of the word, never the
// word itself.
type WordSelectedGuesserPayload struct {
	MaskedWord string `json:"maskedWord"`
	WordLength int    `json:"wordLength"`
}

// CorrectGuessPayload announces a scored guess. Word is nil for everyone but
// the guesser so the answer stays secret while the round runs.
type CorrectGuessPayload struct {
	Player PlayerRef `json:"player"`
	Points int       `json:"points"`
	Word   *string   `json:"word"`
}

// LeaderboardPayload carries the standings sorted by score descending.
type LeaderboardPayload struct {
	Leaderboard []ScoreEntry `json:"leaderboard"`
}

// HintPayload carries the masked word with freshly revealed characters.
type HintPayload struct {
	Hint string `json:"hint"`
}

// RoundEndedPayload reveals the word. Word is nil when the round was aborted
// before the drawer picked one.
type RoundEndedPayload struct {
	Word   *string      `json:"word"`
	Scores []ScoreEntry `json:"scores"`
}

// GameEndedPayload carries the final standings. Winner is nil only when the
// game ends with nobody left in it.
type GameEndedPayload struct {
	Winner *ScoreEntry  `json:"winner"`
	Scores []ScoreEntry `json:"scores"`
}

// Snapshot is the gameState view embedded in the room join reply. It is safe
// to hand to any member: the current word appears only in masked form.
type Snapshot struct {
	IsActive      bool       `json:"isActive"`
	IsRoundActive bool       `json:"isRoundActive"`
	CurrentRound  int        `json:"currentRound"`
	TotalRounds   int        `json:"totalRounds"`
	DrawTime      int        `json:"drawTime"`
	CurrentDrawer *PlayerRef `json:"currentDrawer"`
	MaskedWord    *string    `json:"maskedWord"`
	WordLength    int        `json:"wordLength"`
	Players       []Player   `json:"players"`
}
