package identity

import "context"

// StaticResolver serves fixed profiles; used in tests and when no user API
// is configured.
type StaticResolver map[string]string

func (s StaticResolver) Resolve(ctx context.Context, playerID string) (*Profile, error) {
	if name, ok := s[playerID]; ok {
		return &Profile{ID: playerID, Username: name}, nil
	}
	return nil, ErrUserNotFound
}
