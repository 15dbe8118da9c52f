package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/wofa4-engine/internal/obslog"
)

// events upgrades to a websocket and relays the room's change feed. Each
// frame is one JSON Event; delivery follows the notifier's at-least-once,
// per-room-ordered contract.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	if _, err := s.mgr.GetRoom(r.Context(), roomID); err != nil {
		writeError(w, s.cat, err)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // origin checks belong to the fronting proxy
	})
	if err != nil {
		obslog.L().Warn("ws_accept_error", zap.String("room_id", roomID), zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closed")

	ctx := r.Context()
	ch, cancel, err := s.mgr.Events().Subscribe(ctx, roomID)
	if err != nil {
		conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cancel()

	obslog.L().Info("ws_subscribe", zap.String("room_id", roomID))
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case ev, ok := <-ch:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			raw, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := conn.Write(ctx, websocket.MessageText, raw); err != nil {
				obslog.L().Debug("ws_write_error", zap.String("room_id", roomID), zap.Error(err))
				return
			}
		}
	}
}
