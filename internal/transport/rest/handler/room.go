package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"exemplarparty/internal/game"
	"exemplarparty/internal/service"
)

const maxLeaderboardSize = 100

// RoomHandler exposes read-only views of live rooms
type RoomHandler struct {
	games *service.GameService
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(games *service.GameService) *RoomHandler {
	return &RoomHandler{games: games}
}

// Get handles GET /v1/rooms/{code}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	state, err := h.games.RoomState(mux.Vars(r)["code"])
	if err != nil {
		writeRoomError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// Leaderboard handles GET /v1/rooms/{code}/leaderboard
func (h *RoomHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	top := 10
	if v := r.URL.Query().Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxLeaderboardSize {
			writeError(w, http.StatusBadRequest, "top must be between 1 and 100")
			return
		}
		top = n
	}

	entries, err := h.games.Leaderboard(r.Context(), mux.Vars(r)["code"], top)
	if err != nil {
		writeRoomError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"leaderboard": entries})
}

func writeRoomError(w http.ResponseWriter, err error) {
	if errors.Is(err, game.ErrRoomNotFound) {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
