package httptransport

import (
	"net/http"

	"gamefleet/internal/node"

	"github.com/go-chi/chi/v5"
)

type UserHandlers struct {
	node *node.Node
}

func NewUserHandlers(n *node.Node) *UserHandlers {
	return &UserHandlers{node: n}
}

func (h *UserHandlers) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := h.node.Accounts.Get(r.Context(), chi.URLParam(r, "player_id"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

type ensureUserRequest struct {
	Name string `json:"name"`
}

func (h *UserHandlers) Ensure() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ensureUserRequest
		if err := decodeBody(r, &req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		u, err := h.node.Accounts.Ensure(r.Context(), chi.URLParam(r, "player_id"), req.Name)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

type pawsRequest struct {
	Amount *int64 `json:"amount"`
	Delta  *int64 `json:"delta"`
}

func (h *UserHandlers) SetPaws() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req pawsRequest
		if err := decodeBody(r, &req); err != nil || req.Amount == nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		playerID := chi.URLParam(r, "player_id")
		if err := h.node.Accounts.SetPaws(r.Context(), playerID, *req.Amount); err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"player_id": playerID, "paws": *req.Amount})
	}
}

// AddPaws takes a signed delta; a negative one takes paws away.
func (h *UserHandlers) AddPaws() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req pawsRequest
		if err := decodeBody(r, &req); err != nil || req.Delta == nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		playerID := chi.URLParam(r, "player_id")
		paws, err := h.node.Accounts.AddPaws(r.Context(), playerID, *req.Delta)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"player_id": playerID, "paws": paws})
	}
}
