package httptransport

import (
	"net/http"
	"strconv"

	"gamefleet/internal/arena"
	"gamefleet/internal/node"

	"github.com/go-chi/chi/v5"
)

type ArenaHandlers struct {
	node *node.Node
}

func NewArenaHandlers(n *node.Node) *ArenaHandlers {
	return &ArenaHandlers{node: n}
}

func gameTypeParam(w http.ResponseWriter, r *http.Request) (arena.GameType, bool) {
	g, err := arena.ParseGameType(r.URL.Query().Get("game_type"))
	if err != nil {
		WriteHTTPError(w, http.StatusBadRequest, "unknown_game_type")
		return "", false
	}
	return g, true
}

func (h *ArenaHandlers) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, ok := gameTypeParam(w, r)
		if !ok {
			return
		}
		items, err := h.node.Arenas.Arenas(r.Context(), g)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	}
}

// Available lists free arenas; with players set, only the first that fits.
func (h *ArenaHandlers) Available() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, ok := gameTypeParam(w, r)
		if !ok {
			return
		}
		if v := r.URL.Query().Get("players"); v != "" {
			players, err := strconv.Atoi(v)
			if err != nil || players < 1 {
				WriteHTTPError(w, http.StatusBadRequest, "invalid_players")
				return
			}
			a, found, err := h.node.Arenas.FirstAvailable(r.Context(), g, players)
			if err != nil {
				writeServiceError(w, r, err)
				return
			}
			if !found {
				WriteHTTPError(w, http.StatusNotFound, "no_arena_available")
				return
			}
			writeJSON(w, http.StatusOK, a)
			return
		}
		items, err := h.node.Arenas.Available(r.Context(), g)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	}
}

func (h *ArenaHandlers) Availability() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, ok := gameTypeParam(w, r)
		if !ok {
			return
		}
		buckets, err := h.node.Arenas.Availability(r.Context(), g)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		type bucket struct {
			arena.Bucket
			Available int `json:"available"`
		}
		items := make([]bucket, 0, len(buckets))
		for _, b := range buckets {
			items = append(items, bucket{Bucket: b, Available: b.Available()})
		}
		writeJSON(w, http.StatusOK, map[string]any{"game_type": g, "title": g.Title(), "items": items})
	}
}

func (h *ArenaHandlers) Local() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"server": h.node.Name, "items": h.node.Registry.LocalArenas()})
	}
}

type registerArenaRequest struct {
	ID          string `json:"id"`
	GameType    string `json:"game_type"`
	MinPlayers  int    `json:"min_players"`
	MaxPlayers  int    `json:"max_players"`
	DisplayItem string `json:"display_item"`
}

// Register starts hosting an arena on this server.
func (h *ArenaHandlers) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerArenaRequest
		if err := decodeBody(r, &req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		g, err := arena.ParseGameType(req.GameType)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if req.MinPlayers < 1 || req.MaxPlayers < req.MinPlayers {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_capacity")
			return
		}
		a, err := h.node.Registry.Register(r.Context(), arena.Arena{
			ID:          req.ID,
			GameType:    g,
			MinPlayers:  req.MinPlayers,
			MaxPlayers:  req.MaxPlayers,
			DisplayItem: req.DisplayItem,
		}, nil)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, a)
	}
}

func (h *ArenaHandlers) Unregister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.node.Registry.Unregister(r.Context(), chi.URLParam(r, "arena_id")); err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// Release frees an arena wherever it is hosted.
func (h *ArenaHandlers) Release() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.node.Registry.Release(r.Context(), chi.URLParam(r, "arena_id")); err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
