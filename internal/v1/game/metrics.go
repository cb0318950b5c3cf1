package game

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Game-flow metrics. Declared in the game package to keep metrics close to
// the business logic that drives them.
//
// Naming convention: namespace_subsystem_name
// - namespace: sketchroom (application-level grouping)
// - subsystem: game (feature-level grouping)
var (
	gamesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sketchroom",
		Subsystem: "game",
		Name:      "games_started_total",
		Help:      "Total games started across all rooms",
	})

	roundsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sketchroom",
		Subsystem: "game",
		Name:      "rounds_started_total",
		Help:      "Total rounds started across all games",
	})

	correctGuesses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sketchroom",
		Subsystem: "game",
		Name:      "correct_guesses_total",
		Help:      "Total correct guesses scored",
	})

	hintsRequested = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sketchroom",
		Subsystem: "game",
		Name:      "hints_requested_total",
		Help:      "Total hint requests honored",
	})
)
