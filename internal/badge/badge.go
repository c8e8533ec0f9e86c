package badge

import (
	"time"

	"github.com/google/uuid"
)

// DefaultPoints is awarded when a catalog entry has no explicit point
// value set.
const DefaultPoints = 10

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

type Badge struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Icon        string    `json:"icon" db:"icon"`
	Points      int       `json:"points" db:"points"`
	Rarity      Rarity    `json:"rarity" db:"rarity"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type UserBadge struct {
	UserID   uuid.UUID `json:"user_id" db:"user_id"`
	BadgeID  uuid.UUID `json:"badge_id" db:"badge_id"`
	EarnedAt time.Time `json:"earned_at" db:"earned_at"`
}

type BadgeWithStatus struct {
	Badge
	Earned   bool       `json:"earned"`
	EarnedAt *time.Time `json:"earned_at,omitempty"`
}

type Rank string

const (
	RankBronze   Rank = "Bronze"
	RankSilver   Rank = "Silver"
	RankGold     Rank = "Gold"
	RankPlatinum Rank = "Platinum"
	RankDiamond  Rank = "Diamond"
)

// RankFor derives the rank label from accumulated points. Ranks are a
// pure function of total points and are recomputed on every point
// change, never stored as independently settable state.
func RankFor(totalPoints int) Rank {
	switch {
	case totalPoints >= 1000:
		return RankDiamond
	case totalPoints >= 500:
		return RankPlatinum
	case totalPoints >= 250:
		return RankGold
	case totalPoints >= 100:
		return RankSilver
	default:
		return RankBronze
	}
}
