// Package metrics exposes the server's Prometheus instruments. Counters are
// registered on the default registry at init and served by the /metrics
// endpoint wired in main.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveMatches tracks live match workers in this process.
	ActiveMatches = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "naval_active_matches",
		Help: "Number of match workers currently running.",
	})

	// ShotsFired counts accepted shots by type.
	ShotsFired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "naval_shots_fired_total",
		Help: "Accepted shots, labeled by shot type.",
	}, []string{"type"})

	// EventsEmitted counts outbound event frames, one per receiving
	// connection.
	EventsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "naval_events_emitted_total",
		Help: "Server events emitted to connections.",
	})

	// MatchesFinished counts finalized matches by outcome.
	MatchesFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "naval_matches_finished_total",
		Help: "Finalized matches, labeled by outcome reason.",
	}, []string{"reason"})
)

// MatchesFinished reasons.
const (
	ReasonVictory   = "victory"
	ReasonAbandoned = "abandoned"
)
