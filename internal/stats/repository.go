package stats

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// Repository stores player counters in Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// RecordResult bumps the counters of both players in a single transaction.
// Rounds are attributed to both players; the winner additionally gets a win.
func (r *Repository) RecordResult(ctx context.Context, res *Result) error {
	if r == nil || r.db == nil || res == nil {
		return nil
	}

	const q = `INSERT INTO player_stats (
	    player_id, games_played, wins, rounds_played, updated_at
	  ) VALUES ($1, 1, $2, $3, NOW())
	  ON CONFLICT (player_id) DO UPDATE SET
	    games_played  = player_stats.games_played + 1,
	    wins          = player_stats.wins + EXCLUDED.wins,
	    rounds_played = player_stats.rounds_played + EXCLUDED.rounds_played,
	    updated_at    = NOW()`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin stats tx: %w", err)
	}
	for _, pid := range []string{res.HostID, res.GuestID} {
		if strings.TrimSpace(pid) == "" {
			continue
		}
		wins := 0
		if pid == res.WinnerID {
			wins = 1
		}
		if _, err := tx.ExecContext(ctx, q, pid, wins, res.GuessCount); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert player stats: %w", err)
		}
	}
	return tx.Commit()
}

func (r *Repository) PlayerStats(ctx context.Context, playerID string) (*PlayerStats, error) {
	const q = `SELECT player_id, games_played, wins, rounds_played, updated_at
	  FROM player_stats WHERE player_id = $1 LIMIT 1`

	var ps PlayerStats
	err := r.db.QueryRowContext(ctx, q, playerID).Scan(
		&ps.PlayerID,
		&ps.GamesPlayed,
		&ps.Wins,
		&ps.RoundsPlayed,
		&ps.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select player stats: %w", err)
	}
	return &ps, nil
}
