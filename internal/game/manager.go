package game

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/wofa4-engine/internal/monitor"
	"github.com/park285/wofa4-engine/internal/obslog"
	"github.com/park285/wofa4-engine/internal/stats"
)

// Manager is the authoritative state machine for game rooms. Every mutation
// of one room runs inside a WATCH boundary on the room key, so accepted
// mutations observe a total order per room; operations against different
// rooms proceed independently.
type Manager struct {
	rdb      *redis.Client
	store    *Store
	ledger   *Ledger
	notifier Notifier
	stream   EventStream
	recorder stats.Recorder
	metrics  *monitor.Metrics

	roomMu sync.Map // roomID -> *sync.Mutex
}

func NewManager(redisURL string) (*Manager, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for game manager")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	rn := NewRedisNotifier(rdb)
	return &Manager{
		rdb:      rdb,
		store:    NewStore(rdb),
		ledger:   NewLedger(rdb),
		notifier: rn,
		stream:   rn,
	}, nil
}

func (m *Manager) Close() error {
	if m == nil || m.rdb == nil {
		return nil
	}
	return m.rdb.Close()
}

// AttachRecorder wires the statistics collaborator. Results are applied
// asynchronously after a Completed transition.
func (m *Manager) AttachRecorder(r stats.Recorder) {
	if m != nil {
		m.recorder = r
	}
}

func (m *Manager) AttachMetrics(mm *monitor.Metrics) {
	if m != nil {
		m.metrics = mm
	}
}

// Events exposes the subscriber side of the change notifier.
func (m *Manager) Events() EventStream { return m.stream }

// lockRoom serializes a room's commit-and-publish sequence within this
// process so events leave in commit order.
func (m *Manager) lockRoom(roomID string) func() {
	v, _ := m.roomMu.LoadOrStore(roomID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// CreateRoom opens a new room in Waiting and lists it in the lobby.
func (m *Manager) CreateRoom(ctx context.Context, hostID, hostName, name string) (*Room, error) {
	defer m.observe(time.Now())
	hostID = strings.TrimSpace(hostID)
	name = strings.TrimSpace(name)
	if hostID == "" || name == "" {
		return nil, ErrInvalidInput
	}

	now := time.Now()
	r := &Room{
		ID:        uuid.NewString(),
		Name:      name,
		Status:    StatusWaiting,
		HostID:    hostID,
		HostName:  strings.TrimSpace(hostName),
		Instance:  1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	raw, err := encodeRoom(r)
	if err != nil {
		return nil, err
	}
	pipe := m.rdb.TxPipeline()
	pipe.Set(ctx, keyRoom(r.ID), raw, 0)
	pipe.SAdd(ctx, keyLobby(), r.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrStorageUnavailable, err)
	}

	obslog.L().Info("room_create",
		zap.String("room_id", r.ID),
		zap.String("host_id", r.HostID),
		zap.String("name", r.Name),
	)
	if m.metrics != nil {
		m.metrics.RoomsCreated.Inc()
	}
	m.publishRoom(ctx, r)
	return r, nil
}

// JoinRoom seats a guest. Legal only from Waiting.
func (m *Manager) JoinRoom(ctx context.Context, roomID, guestID, guestName string) (*Room, error) {
	defer m.observe(time.Now())
	guestID = strings.TrimSpace(guestID)
	if guestID == "" {
		return nil, ErrInvalidInput
	}
	defer m.lockRoom(roomID)()

	var out *Room
	err := m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		r, err := loadRoomTx(ctx, tx, roomID)
		if err != nil {
			return err
		}
		if r == nil {
			return ErrRoomNotFound
		}
		if guestID == r.HostID {
			return ErrInvalidInput
		}
		if r.GuestID != "" {
			return ErrRoomFull
		}
		if r.Status != StatusWaiting {
			return ErrGameNotInPlayableState
		}

		r.GuestID = guestID
		r.GuestName = strings.TrimSpace(guestName)
		r.Status = StatusPreparing
		r.UpdatedAt = time.Now()

		raw, err := encodeRoom(r)
		if err != nil {
			return err
		}
		pipe := tx.TxPipeline()
		pipe.Set(ctx, keyRoom(r.ID), raw, 0)
		pipe.SRem(ctx, keyLobby(), r.ID)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		out = r
		return nil
	}, keyRoom(roomID))
	if err != nil {
		return nil, mapTxErr(err)
	}

	obslog.L().Info("room_join",
		zap.String("room_id", out.ID),
		zap.String("guest_id", out.GuestID),
	)
	m.publishRoom(ctx, out)
	return out, nil
}

// SubmitSecret stores a player's 4-digit code. Once both codes are present
// the first turn is drawn at random and the game moves to Playing.
func (m *Manager) SubmitSecret(ctx context.Context, roomID, playerID, code string) (*Room, error) {
	defer m.observe(time.Now())
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return nil, ErrInvalidInput
	}
	if err := ValidateCode(code); err != nil {
		return nil, err
	}
	defer m.lockRoom(roomID)()

	var out *Room
	err := m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		r, err := loadRoomTx(ctx, tx, roomID)
		if err != nil {
			return err
		}
		if r == nil {
			return ErrRoomNotFound
		}
		if !r.IsMember(playerID) {
			return ErrPlayerNotInGame
		}
		if r.Status != StatusPreparing {
			return ErrGameNotInPlayableState
		}
		if r.secretOf(playerID) != "" {
			return ErrSecretAlreadySubmitted
		}

		if playerID == r.HostID {
			r.HostSecret = code
		} else {
			r.GuestSecret = code
		}
		if r.HostSecret != "" && r.GuestSecret != "" {
			r.CurrentTurnID = randomTurn(r.HostID, r.GuestID)
			r.Status = StatusPlaying
		}
		r.UpdatedAt = time.Now()

		raw, err := encodeRoom(r)
		if err != nil {
			return err
		}
		pipe := tx.TxPipeline()
		pipe.Set(ctx, keyRoom(r.ID), raw, 0)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		out = r
		return nil
	}, keyRoom(roomID))
	if err != nil {
		return nil, mapTxErr(err)
	}

	obslog.L().Info("secret_submit",
		zap.String("room_id", out.ID),
		zap.String("player_id", playerID),
		zap.String("status", string(out.Status)),
	)
	m.publishRoom(ctx, out)
	return out, nil
}

// SubmitGuess applies one guess for the player whose turn it is, scores it
// against the opponent's secret and appends it to the current-instance
// ledger. A full match completes the game; anything else flips the turn.
func (m *Manager) SubmitGuess(ctx context.Context, roomID, playerID, guess string) (*Round, *Room, error) {
	defer m.observe(time.Now())
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return nil, nil, ErrInvalidInput
	}
	if err := ValidateCode(guess); err != nil {
		return nil, nil, err
	}
	defer m.lockRoom(roomID)()

	var (
		out        *Room
		round      *Round
		finished   bool
		guessTotal int
	)
	err := m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		r, err := loadRoomTx(ctx, tx, roomID)
		if err != nil {
			return err
		}
		if r == nil {
			return ErrRoomNotFound
		}
		if r.Status != StatusPlaying {
			return ErrGameNotInPlayableState
		}
		if !r.IsMember(playerID) {
			return ErrPlayerNotInGame
		}
		// Server-side turn gate: a stale client can never move out of turn.
		if playerID != r.CurrentTurnID {
			return ErrNotYourTurn
		}

		opponent := r.Opponent(playerID)
		secret := r.secretOf(opponent)
		matches := MatchCount(guess, secret)

		count, err := m.ledger.count(ctx, tx, r)
		if err != nil {
			return err
		}
		guessTotal = int(count) + 1
		round = &Round{
			ID:          uuid.NewString(),
			RoomID:      r.ID,
			Instance:    r.Instance,
			PlayerID:    playerID,
			PlayerName:  r.playerName(playerID),
			Guess:       guess,
			MatchCount:  matches,
			RoundNumber: m.ledger.NextRoundNumber(count),
			CreatedAt:   time.Now(),
		}

		if matches == CodeLength {
			r.WinnerID = playerID
			r.CurrentTurnID = ""
			r.Status = StatusCompleted
			finished = true
		} else {
			r.CurrentTurnID = opponent
		}
		r.UpdatedAt = round.CreatedAt

		rawRoom, err := encodeRoom(r)
		if err != nil {
			return err
		}
		rawRound, err := encodeRound(round)
		if err != nil {
			return err
		}
		pipe := tx.TxPipeline()
		pipe.RPush(ctx, keyRounds(r.ID, r.Instance), rawRound)
		pipe.Set(ctx, keyRoom(r.ID), rawRoom, 0)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		out = r
		return nil
	}, keyRoom(roomID))
	if err != nil {
		return nil, nil, mapTxErr(err)
	}

	obslog.L().Info("guess",
		zap.String("room_id", out.ID),
		zap.String("player_id", playerID),
		zap.Int("round", round.RoundNumber),
		zap.Int("matches", round.MatchCount),
		zap.String("status", string(out.Status)),
	)
	if m.metrics != nil {
		m.metrics.GuessesTotal.Inc()
		if finished {
			m.metrics.GamesCompleted.Inc()
		}
	}
	m.publishRound(ctx, round)
	m.publishRoom(ctx, out)
	if finished {
		m.recordResultAsync(out, guessTotal)
	}
	return round, out, nil
}

// LeaveGame removes a player. The host leaving cancels the room outright; a
// guest leaving reverts it to Waiting with secrets and current-instance
// rounds cleared. Leaving an already cancelled room is a no-op for the host.
func (m *Manager) LeaveGame(ctx context.Context, roomID, playerID string) (*Room, error) {
	defer m.observe(time.Now())
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return nil, ErrInvalidInput
	}
	defer m.lockRoom(roomID)()

	var (
		out  *Room
		noop bool
	)
	err := m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		r, err := loadRoomTx(ctx, tx, roomID)
		if err != nil {
			return err
		}
		if r == nil {
			return ErrRoomNotFound
		}
		if r.Status == StatusCancelled {
			if playerID != r.HostID {
				return ErrPlayerNotInGame
			}
			out, noop = r, true
			return nil
		}
		if !r.IsMember(playerID) {
			return ErrPlayerNotInGame
		}

		oldRounds := keyRounds(r.ID, r.Instance)
		if playerID == r.HostID || r.HostID == "" {
			r.Status = StatusCancelled
		} else {
			// guest departs: host keeps the room open for a new guest
			r.Status = StatusWaiting
			r.Instance++
		}
		r.GuestID = ""
		r.GuestName = ""
		r.HostSecret = ""
		r.GuestSecret = ""
		r.CurrentTurnID = ""
		r.WinnerID = ""
		r.UpdatedAt = time.Now()

		raw, err := encodeRoom(r)
		if err != nil {
			return err
		}
		pipe := tx.TxPipeline()
		pipe.Del(ctx, oldRounds)
		pipe.Set(ctx, keyRoom(r.ID), raw, 0)
		if r.Status == StatusWaiting {
			pipe.SAdd(ctx, keyLobby(), r.ID)
		} else {
			pipe.SRem(ctx, keyLobby(), r.ID)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		out = r
		return nil
	}, keyRoom(roomID))
	if err != nil {
		return nil, mapTxErr(err)
	}
	if noop {
		return out, nil
	}

	obslog.L().Info("room_leave",
		zap.String("room_id", out.ID),
		zap.String("player_id", playerID),
		zap.String("status", string(out.Status)),
	)
	m.publishRoom(ctx, out)
	return out, nil
}

// RestartGame starts a fresh instance of a completed game with the same
// players. Round numbering restarts at 1.
func (m *Manager) RestartGame(ctx context.Context, roomID string) (*Room, error) {
	defer m.observe(time.Now())
	defer m.lockRoom(roomID)()

	var out *Room
	err := m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		r, err := loadRoomTx(ctx, tx, roomID)
		if err != nil {
			return err
		}
		if r == nil {
			return ErrRoomNotFound
		}
		if r.Status != StatusCompleted {
			return ErrGameNotInPlayableState
		}

		oldRounds := keyRounds(r.ID, r.Instance)
		r.Instance++
		r.HostSecret = ""
		r.GuestSecret = ""
		r.CurrentTurnID = ""
		r.WinnerID = ""
		r.Status = StatusPreparing
		r.UpdatedAt = time.Now()

		raw, err := encodeRoom(r)
		if err != nil {
			return err
		}
		pipe := tx.TxPipeline()
		pipe.Del(ctx, oldRounds)
		pipe.Set(ctx, keyRoom(r.ID), raw, 0)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		out = r
		return nil
	}, keyRoom(roomID))
	if err != nil {
		return nil, mapTxErr(err)
	}

	obslog.L().Info("room_restart",
		zap.String("room_id", out.ID),
		zap.Int("instance", out.Instance),
	)
	m.publishRoom(ctx, out)
	return out, nil
}

// GetRoom is a lock-free read; callers may observe a slightly stale snapshot.
func (m *Manager) GetRoom(ctx context.Context, roomID string) (*Room, error) {
	r, err := m.store.LoadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// Rounds returns the guesses of the room's current instance, in order.
func (m *Manager) Rounds(ctx context.Context, roomID string) ([]*Round, error) {
	r, err := m.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return m.ledger.ActiveRounds(ctx, r)
}

// ListWaiting returns lobby rooms still accepting a guest, newest first.
func (m *Manager) ListWaiting(ctx context.Context) ([]*Room, error) {
	rooms, err := m.store.ListWaiting(ctx)
	if err != nil {
		return nil, err
	}
	if m.metrics != nil {
		m.metrics.WaitingRooms.Set(float64(len(rooms)))
	}
	return rooms, nil
}

func (m *Manager) publishRoom(ctx context.Context, r *Room) {
	ev := &Event{Type: EventRoomChanged, RoomID: r.ID, Room: r.Snapshot(), At: time.Now()}
	if err := m.notifier.Publish(ctx, ev); err != nil {
		obslog.L().Warn("event_publish_error", zap.String("room_id", r.ID), zap.Error(err))
		return
	}
	if m.metrics != nil {
		m.metrics.EventsPublished.Inc()
	}
}

func (m *Manager) publishRound(ctx context.Context, rd *Round) {
	ev := &Event{Type: EventRoundAdded, RoomID: rd.RoomID, Round: rd, At: time.Now()}
	if err := m.notifier.Publish(ctx, ev); err != nil {
		obslog.L().Warn("event_publish_error", zap.String("room_id", rd.RoomID), zap.Error(err))
		return
	}
	if m.metrics != nil {
		m.metrics.EventsPublished.Inc()
	}
}

// recordResultAsync hands the finished game to the statistics collaborator.
// guessTotal is the instance's exact guess count including the winning one.
// Fire-and-forget: failures are logged and never reach the guesser.
func (m *Manager) recordResultAsync(r *Room, guessTotal int) {
	if m.recorder == nil {
		return
	}
	res := &stats.Result{
		RoomID:      r.ID,
		HostID:      r.HostID,
		GuestID:     r.GuestID,
		WinnerID:    r.WinnerID,
		GuessCount:  guessTotal,
		CompletedAt: r.UpdatedAt,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.recorder.RecordResult(ctx, res); err != nil {
			obslog.L().Error("stats_persist_error",
				zap.String("room_id", res.RoomID),
				zap.String("winner_id", res.WinnerID),
				zap.Error(err),
			)
			return
		}
		obslog.L().Info("stats_persist",
			zap.String("room_id", res.RoomID),
			zap.String("winner_id", res.WinnerID),
		)
	}()
}

func (m *Manager) observe(start time.Time) {
	if m.metrics != nil {
		m.metrics.OpDuration.Observe(time.Since(start).Seconds())
	}
}

func (r *Room) playerName(playerID string) string {
	switch playerID {
	case r.HostID:
		return r.HostName
	case r.GuestID:
		return r.GuestName
	}
	return ""
}

func loadRoomTx(ctx context.Context, tx *redis.Tx, roomID string) (*Room, error) {
	raw, err := tx.Get(ctx, keyRoom(roomID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeRoom(raw)
}

// mapTxErr classifies errors escaping a WATCH boundary: business rejections
// pass through, a stale write becomes ErrConcurrentModification, anything
// else is a storage failure.
func mapTxErr(err error) error {
	var se staticErr
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, redis.TxFailedErr) {
		return ErrConcurrentModification
	}
	return fmt.Errorf("%w: %s", ErrStorageUnavailable, err)
}

func randomTurn(hostID, guestID string) string {
	if n, _ := rand.Int(rand.Reader, big.NewInt(2)); n != nil && n.Int64() == 0 {
		return guestID
	}
	return hostID
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
