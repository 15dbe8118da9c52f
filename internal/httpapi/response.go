package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/park285/wofa4-engine/internal/game"
	"github.com/park285/wofa4-engine/internal/msgcat"
	"github.com/park285/wofa4-engine/internal/obslog"
)

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps engine rejections to HTTP status codes and localized text.
func writeError(w http.ResponseWriter, cat *msgcat.Catalog, err error) {
	status, key := classify(err)
	if status >= 500 {
		obslog.L().Error("request_error", zap.Error(err))
	}
	var body errorBody
	body.Error.Code = key
	body.Error.Message = cat.Text("errors." + key)
	writeJSON(w, status, body)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, game.ErrInvalidGuessFormat):
		return http.StatusBadRequest, "invalid_guess_format"
	case errors.Is(err, game.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, game.ErrRoomNotFound):
		return http.StatusNotFound, "room_not_found"
	case errors.Is(err, game.ErrRoomFull):
		return http.StatusConflict, "room_full"
	case errors.Is(err, game.ErrGameNotInPlayableState):
		return http.StatusConflict, "not_playable"
	case errors.Is(err, game.ErrNotYourTurn):
		return http.StatusConflict, "not_your_turn"
	case errors.Is(err, game.ErrSecretAlreadySubmitted):
		return http.StatusConflict, "secret_already_submitted"
	case errors.Is(err, game.ErrPlayerNotInGame):
		return http.StatusForbidden, "player_not_in_game"
	case errors.Is(err, game.ErrConcurrentModification):
		return http.StatusConflict, "concurrent_modification"
	case errors.Is(err, game.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "storage_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
