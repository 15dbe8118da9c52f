// Package identity resolves player ids to display metadata through the user
// directory of the surrounding chat application. The engine only compares
// ids for equality; names are cosmetic.
package identity

import "context"

type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type Resolver interface {
	Resolve(ctx context.Context, playerID string) (*Profile, error)
}

// DisplayName resolves a best-effort name, falling back to the raw id when
// the directory is unreachable or unaware of the player.
func DisplayName(ctx context.Context, r Resolver, playerID string) string {
	if r == nil {
		return playerID
	}
	p, err := r.Resolve(ctx, playerID)
	if err != nil || p == nil || p.Username == "" {
		return playerID
	}
	return p.Username
}
