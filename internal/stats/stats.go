// Package stats maintains per-player games/wins/rounds counters. Results are
// recorded fire-and-forget after a game completes; readers must tolerate the
// counters lagging the game state.
package stats

import (
	"context"
	"time"
)

// Result describes one finished game instance.
type Result struct {
	RoomID      string
	HostID      string
	GuestID     string
	WinnerID    string
	GuessCount  int
	CompletedAt time.Time
}

// PlayerStats are the accumulated counters for one player.
type PlayerStats struct {
	PlayerID     string    `json:"player_id"`
	GamesPlayed  int       `json:"games_played"`
	Wins         int       `json:"wins"`
	RoundsPlayed int       `json:"rounds_played"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Recorder is implemented by the Postgres repository and the in-memory
// fallback used when no DATABASE_URL is configured.
type Recorder interface {
	RecordResult(ctx context.Context, res *Result) error
	PlayerStats(ctx context.Context, playerID string) (*PlayerStats, error)
}
