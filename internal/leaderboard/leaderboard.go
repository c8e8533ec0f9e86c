package leaderboard

import (
	"github.com/google/uuid"

	"calTrackAPI/internal/badge"
)

type Entry struct {
	UserID      uuid.UUID  `json:"user_id" db:"user_id"`
	Username    string     `json:"username" db:"username"`
	ImageURL    *string    `json:"image_url" db:"image_url"`
	TotalPoints int        `json:"total_points" db:"total_points"`
	UserRank    badge.Rank `json:"user_rank" db:"rank"`
	Position    int        `json:"position" db:"position"`
}

type Leaderboard struct {
	Entries      []*Entry `json:"entries"`
	UserPosition *Entry   `json:"user_position"`
	TotalUsers   int      `json:"total_users"`
}

// ChallengeEntry ranks participants of one challenge by progress.
type ChallengeEntry struct {
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Username  string    `json:"username" db:"username"`
	ImageURL  *string   `json:"image_url" db:"image_url"`
	Progress  float64   `json:"progress" db:"progress"`
	Completed bool      `json:"completed" db:"completed"`
	Position  int       `json:"position" db:"position"`
}
