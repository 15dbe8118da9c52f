package game

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Ledger owns round numbering and the guess history of the current game
// instance. A round is up to one guess from each player; the n-th round is
// complete once both players have guessed in it.
type Ledger struct{ rdb *redis.Client }

func NewLedger(rdb *redis.Client) *Ledger { return &Ledger{rdb: rdb} }

// NextRoundNumber assigns the round for the next guess given how many
// guesses the current instance already holds.
func (l *Ledger) NextRoundNumber(guessesSoFar int64) int {
	return int(guessesSoFar/2) + 1
}

// ActiveRounds returns the ordered guesses of the room's current instance.
// Rounds from earlier instances are never included.
func (l *Ledger) ActiveRounds(ctx context.Context, r *Room) ([]*Round, error) {
	raws, err := l.rdb.LRange(ctx, keyRounds(r.ID, r.Instance), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrStorageUnavailable, err)
	}
	out := make([]*Round, 0, len(raws))
	for _, raw := range raws {
		rd, err := decodeRound(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, rd)
	}
	return out, nil
}

// count reads the current-instance guess count through tx so the number is
// part of the WATCH boundary of the calling operation.
func (l *Ledger) count(ctx context.Context, tx *redis.Tx, r *Room) (int64, error) {
	n, err := tx.LLen(ctx, keyRounds(r.ID, r.Instance)).Result()
	if err != nil && err != redis.Nil {
		return 0, err
	}
	return n, nil
}
