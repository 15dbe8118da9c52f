package game

import (
	"time"
)

// Status represents a room lifecycle state.
type Status string

const (
	StatusWaiting   Status = "WAITING"
	StatusPreparing Status = "PREPARING"
	StatusPlaying   Status = "PLAYING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Room is the persisted state of a guessing match. Secrets are stored here
// and must never be exposed outside the engine; use Snapshot for anything
// that reaches a client.
type Room struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Status        Status    `json:"status"`
	HostID        string    `json:"host_id"`
	HostName      string    `json:"host_name,omitempty"`
	GuestID       string    `json:"guest_id,omitempty"`
	GuestName     string    `json:"guest_name,omitempty"`
	HostSecret    string    `json:"host_secret,omitempty"`
	GuestSecret   string    `json:"guest_secret,omitempty"`
	CurrentTurnID string    `json:"current_turn_id,omitempty"`
	WinnerID      string    `json:"winner_id,omitempty"`
	Instance      int       `json:"instance"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsMember reports whether playerID is the host or the guest.
func (r *Room) IsMember(playerID string) bool {
	if playerID == "" {
		return false
	}
	return playerID == r.HostID || playerID == r.GuestID
}

// Opponent returns the other player's id, or "" when playerID is not a member.
func (r *Room) Opponent(playerID string) string {
	switch playerID {
	case r.HostID:
		return r.GuestID
	case r.GuestID:
		return r.HostID
	}
	return ""
}

// secretOf returns the secret submitted by playerID in the current instance.
func (r *Room) secretOf(playerID string) string {
	switch playerID {
	case r.HostID:
		return r.HostSecret
	case r.GuestID:
		return r.GuestSecret
	}
	return ""
}

// Snapshot is the client-visible view of a room. Secrets are reduced to
// ready flags so a subscriber can never learn the opponent's code.
type Snapshot struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Status        Status    `json:"status"`
	HostID        string    `json:"host_id"`
	HostName      string    `json:"host_name,omitempty"`
	GuestID       string    `json:"guest_id,omitempty"`
	GuestName     string    `json:"guest_name,omitempty"`
	HostReady     bool      `json:"host_ready"`
	GuestReady    bool      `json:"guest_ready"`
	CurrentTurnID string    `json:"current_turn_id,omitempty"`
	WinnerID      string    `json:"winner_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Snapshot strips both secrets from the room state.
func (r *Room) Snapshot() *Snapshot {
	if r == nil {
		return nil
	}
	return &Snapshot{
		ID:            r.ID,
		Name:          r.Name,
		Status:        r.Status,
		HostID:        r.HostID,
		HostName:      r.HostName,
		GuestID:       r.GuestID,
		GuestName:     r.GuestName,
		HostReady:     r.HostSecret != "",
		GuestReady:    r.GuestSecret != "",
		CurrentTurnID: r.CurrentTurnID,
		WinnerID:      r.WinnerID,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// Round is one scored guess.
type Round struct {
	ID          string    `json:"id"`
	RoomID      string    `json:"room_id"`
	Instance    int       `json:"instance"`
	PlayerID    string    `json:"player_id"`
	PlayerName  string    `json:"player_name,omitempty"`
	Guess       string    `json:"guess"`
	MatchCount  int       `json:"match_count"`
	RoundNumber int       `json:"round_number"`
	CreatedAt   time.Time `json:"created_at"`
}

// EventType tags a change notification.
type EventType string

const (
	EventRoomChanged EventType = "room_changed"
	EventRoundAdded  EventType = "round_added"
)

// Event is the notification delivered to subscribers of a room. At-least-once
// delivery; consumers dedupe on Room.UpdatedAt / Round.ID.
type Event struct {
	Type   EventType `json:"type"`
	RoomID string    `json:"room_id"`
	Room   *Snapshot `json:"room,omitempty"`
	Round  *Round    `json:"round,omitempty"`
	At     time.Time `json:"at"`
}
