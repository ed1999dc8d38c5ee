package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Счетчики игровой экономики. Регистрируются в глобальном реестре,
// отдаются через /metrics.
var (
	endingsDiscoveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shadowpaths_endings_discovered_total",
		Help: "First-time ending discoveries across all readers.",
	})

	choicesUnlockedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shadowpaths_choices_unlocked_total",
		Help: "Paid choice unlocks that actually charged a balance.",
	})

	insufficientFundsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shadowpaths_unlock_insufficient_funds_total",
		Help: "Unlock attempts rejected for insufficient balance.",
	})

	storiesSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shadowpaths_stories_submitted_total",
		Help: "Author stories submitted for moderation.",
	})
)
