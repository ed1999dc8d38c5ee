package models

// Tier is a medal/trophy level. Ladders are monotonic: once a tier is
// reached it is never revoked, even if the underlying count later drops.
type Tier string

const (
	TierNone     Tier = "none"
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

var tierOrder = map[Tier]int{
	TierNone:     0,
	TierBronze:   1,
	TierSilver:   2,
	TierGold:     3,
	TierPlatinum: 4,
}

// TierIndex returns the tier's rank on the ladder; unknown values rank as none.
func TierIndex(t Tier) int {
	return tierOrder[t]
}

// MaxTier returns the higher of two tiers.
func MaxTier(a, b Tier) Tier {
	if TierIndex(b) > TierIndex(a) {
		return b
	}
	return a
}

// TierThresholds maps a counted value onto the ladder.
type TierThresholds struct {
	Bronze   int
	Silver   int
	Gold     int
	Platinum int
}

// ComputeTier returns the highest tier the value qualifies for.
func ComputeTier(value int, t TierThresholds) Tier {
	switch {
	case value >= t.Platinum:
		return TierPlatinum
	case value >= t.Gold:
		return TierGold
	case value >= t.Silver:
		return TierSilver
	case value >= t.Bronze:
		return TierBronze
	default:
		return TierNone
	}
}

// Medal keys. Medals are derived purely from ending discoveries.
const (
	MedalDeath      = "death"
	MedalTrueEnding = "trueEnding"
)

// Medal ladders.
var (
	MedalDeathThresholds      = TierThresholds{Bronze: 1, Silver: 5, Gold: 10, Platinum: 20}
	MedalTrueEndingThresholds = TierThresholds{Bronze: 1, Silver: 3, Gold: 5, Platinum: 10}
)

// Trophy keys.
const (
	TrophyStoryBuilder     = "storyBuilder"
	TrophyPublishedAuthor  = "publishedAuthor"
	TrophyCommunityReader  = "communityReader"
	TrophyStoriesCompleted = "storiesCompleted"
	TrophySecretEndings    = "secretEndings"
	TrophyPathsUnlocked    = "pathsUnlocked"
)

// TrophyConfig описывает лестницу уровней и разовые награды за каждый уровень.
type TrophyConfig struct {
	Thresholds    TierThresholds
	Rewards       map[Tier]int // one-time author-currency grant per tier
	CurrencyLabel string
	Message       string // human label used in popup notifications
}

// TrophyTable is the threshold/reward table driving derived-stat
// recomputation. Reaching a tier for the first time grants the reward once.
var TrophyTable = map[string]TrophyConfig{
	TrophyStoryBuilder: {
		Thresholds:    TierThresholds{Bronze: 1, Silver: 3, Gold: 5, Platinum: 10},
		Rewards:       map[Tier]int{TierBronze: 25, TierSilver: 50, TierGold: 100, TierPlatinum: 200},
		CurrencyLabel: "author gems",
		Message:       "Story Builder",
	},
	TrophyPublishedAuthor: {
		Thresholds:    TierThresholds{Bronze: 1, Silver: 3, Gold: 5, Platinum: 10},
		Rewards:       map[Tier]int{TierBronze: 40, TierSilver: 80, TierGold: 160, TierPlatinum: 300},
		CurrencyLabel: "author gems",
		Message:       "Published Author",
	},
	TrophyCommunityReader: {
		Thresholds:    TierThresholds{Bronze: 3, Silver: 6, Gold: 10, Platinum: 20},
		Rewards:       map[Tier]int{TierBronze: 15, TierSilver: 30, TierGold: 75, TierPlatinum: 150},
		CurrencyLabel: "author gems",
		Message:       "Community Reader",
	},
	TrophyStoriesCompleted: {
		Thresholds:    TierThresholds{Bronze: 1, Silver: 3, Gold: 5, Platinum: 10},
		Rewards:       map[Tier]int{TierBronze: 20, TierSilver: 40, TierGold: 80, TierPlatinum: 160},
		CurrencyLabel: "author gems",
		Message:       "Completionist",
	},
	TrophySecretEndings: {
		Thresholds:    TierThresholds{Bronze: 1, Silver: 3, Gold: 5, Platinum: 10},
		Rewards:       map[Tier]int{TierBronze: 15, TierSilver: 30, TierGold: 60, TierPlatinum: 120},
		CurrencyLabel: "author gems",
		Message:       "Secret Seeker",
	},
	TrophyPathsUnlocked: {
		Thresholds:    TierThresholds{Bronze: 1, Silver: 5, Gold: 10, Platinum: 20},
		Rewards:       map[Tier]int{TierBronze: 10, TierSilver: 25, TierGold: 50, TierPlatinum: 100},
		CurrencyLabel: "author gems",
		Message:       "Pathfinder",
	},
}
