package httptransport

import (
	"errors"
	"net/http"

	"gamefleet/internal/arena"
	"gamefleet/internal/gameroom"
	"gamefleet/internal/node"

	"github.com/go-chi/chi/v5"
)

type RoomHandlers struct {
	node *node.Node
}

func NewRoomHandlers(n *node.Node) *RoomHandlers {
	return &RoomHandlers{node: n}
}

type roomView struct {
	*gameroom.Room
	Arena *arena.Arena `json:"arena,omitempty"`
}

// view attaches the room's arena when it has been launched.
func (h *RoomHandlers) view(r *http.Request, room *gameroom.Room) (roomView, error) {
	v := roomView{Room: room}
	a, err := h.node.Arenas.ArenaForRoom(r.Context(), room.ID)
	switch {
	case err == nil:
		v.Arena = &a
	case !errors.Is(err, arena.ErrArenaNotFound):
		return v, err
	}
	return v, nil
}

func (h *RoomHandlers) writeRoom(w http.ResponseWriter, r *http.Request, status int, room *gameroom.Room) {
	v, err := h.view(r, room)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, status, v)
}

func (h *RoomHandlers) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := h.node.Rooms.Get(r.Context(), chi.URLParam(r, "room_id"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		h.writeRoom(w, r, http.StatusOK, room)
	}
}

func (h *RoomHandlers) PlayerRoom() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := h.node.Rooms.RoomOfPlayer(r.Context(), chi.URLParam(r, "player_id"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		h.writeRoom(w, r, http.StatusOK, room)
	}
}

func (h *RoomHandlers) PlayerInvites() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := h.node.Rooms.InvitesFor(r.Context(), chi.URLParam(r, "player_id"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	}
}

type createRoomRequest struct {
	OwnerID  string `json:"owner_id"`
	GameType string `json:"game_type"`
	Private  bool   `json:"private"`
}

func (h *RoomHandlers) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRoomRequest
		if err := decodeBody(r, &req); err != nil || req.OwnerID == "" {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		g, err := arena.ParseGameType(req.GameType)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		room, err := h.node.Rooms.Create(r.Context(), req.OwnerID, g)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if req.Private {
			if room, err = h.node.Rooms.SetPrivate(r.Context(), room.ID, true); err != nil {
				writeServiceError(w, r, err)
				return
			}
		}
		writeJSON(w, http.StatusCreated, room)
	}
}

type playerRequest struct {
	PlayerID string `json:"player_id"`
}

func decodePlayer(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req playerRequest
	if err := decodeBody(r, &req); err != nil || req.PlayerID == "" {
		WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
		return "", false
	}
	return req.PlayerID, true
}

func (h *RoomHandlers) Join() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		player, ok := decodePlayer(w, r)
		if !ok {
			return
		}
		room, err := h.node.Rooms.Join(r.Context(), chi.URLParam(r, "room_id"), player)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, room)
	}
}

// Leave answers 204 when the last member left and the room was disbanded.
func (h *RoomHandlers) Leave() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		player, ok := decodePlayer(w, r)
		if !ok {
			return
		}
		room, err := h.node.Rooms.Leave(r.Context(), chi.URLParam(r, "room_id"), player)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if room == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, room)
	}
}

func (h *RoomHandlers) TransferOwner() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		player, ok := decodePlayer(w, r)
		if !ok {
			return
		}
		room, err := h.node.Rooms.TransferOwner(r.Context(), chi.URLParam(r, "room_id"), player)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, room)
	}
}

func (h *RoomHandlers) Disband() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.node.Rooms.Disband(r.Context(), chi.URLParam(r, "room_id")); err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type inviteRequest struct {
	From     string `json:"from"`
	PlayerID string `json:"player_id"`
}

func (h *RoomHandlers) Invite() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req inviteRequest
		if err := decodeBody(r, &req); err != nil || req.PlayerID == "" {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		inv, err := h.node.Rooms.SendInvite(r.Context(), chi.URLParam(r, "room_id"), req.From, req.PlayerID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, inv)
	}
}

func (h *RoomHandlers) AcceptInvite() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := h.node.Rooms.Accept(r.Context(), chi.URLParam(r, "invite_id"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, room)
	}
}

func (h *RoomHandlers) DeclineInvite() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.node.Rooms.Decline(r.Context(), chi.URLParam(r, "invite_id")); err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *RoomHandlers) Launch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricLaunchRequests.Add(1)
		a, err := h.node.Rooms.Launch(r.Context(), chi.URLParam(r, "room_id"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}
