package stats

import (
	"context"
	"strings"
	"sync"
	"time"
)

// memrepo is a development-only in-memory Recorder used when no DB is
// configured.
type memrepo struct {
	mu      sync.RWMutex
	players map[string]*PlayerStats
}

func NewMemoryRecorder() Recorder {
	return &memrepo{players: make(map[string]*PlayerStats)}
}

func (m *memrepo) RecordResult(ctx context.Context, res *Result) error {
	if res == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pid := range []string{res.HostID, res.GuestID} {
		if strings.TrimSpace(pid) == "" {
			continue
		}
		ps, ok := m.players[pid]
		if !ok {
			ps = &PlayerStats{PlayerID: pid}
			m.players[pid] = ps
		}
		ps.GamesPlayed++
		ps.RoundsPlayed += res.GuessCount
		if pid == res.WinnerID {
			ps.Wins++
		}
		ps.UpdatedAt = time.Now()
	}
	return nil
}

func (m *memrepo) PlayerStats(ctx context.Context, playerID string) (*PlayerStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if ps, ok := m.players[playerID]; ok && ps != nil {
		copy := *ps
		return &copy, nil
	}
	return nil, nil
}
