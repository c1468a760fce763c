package httptransport

import (
	"net/http"
	"strings"

	"gamefleet/internal/node"
	"gamefleet/internal/useraction"

	"github.com/go-chi/chi/v5"
)

// PlayerHandlers front the fleet-wide user actions. Connect and Disconnect
// only work on a node running the in-memory player host.
type PlayerHandlers struct {
	node *node.Node
}

func NewPlayerHandlers(n *node.Node) *PlayerHandlers {
	return &PlayerHandlers{node: n}
}

func (h *PlayerHandlers) Online() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		players, err := h.node.Actions.OnlinePlayers(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": players})
	}
}

// Status asks the fleet about one player. Permissions come from a comma
// separated "permissions" query parameter.
func (h *PlayerHandlers) Status() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID := chi.URLParam(r, "player_id")
		user := h.node.Actions.For(playerID)
		ctx := r.Context()

		onlineCh := user.IsOnlineAsync(ctx)
		vanishedCh := user.IsVanishedAsync(ctx)
		var permsCh <-chan useraction.Result[bool]
		var perms []string
		if v := strings.TrimSpace(r.URL.Query().Get("permissions")); v != "" {
			perms = strings.Split(v, ",")
			permsCh = user.HasPermissionAsync(ctx, perms...)
		}

		online, vanished := <-onlineCh, <-vanishedCh
		if online.Err != nil {
			writeServiceError(w, r, online.Err)
			return
		}
		if vanished.Err != nil {
			writeServiceError(w, r, vanished.Err)
			return
		}
		resp := map[string]any{"player_id": playerID, "online": online.Value, "vanished": vanished.Value}
		if permsCh != nil {
			has := <-permsCh
			if has.Err != nil {
				writeServiceError(w, r, has.Err)
				return
			}
			resp["permissions"] = perms
			resp["has_permissions"] = has.Value
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type messageRequest struct {
	Lines []string `json:"lines"`
}

func (h *PlayerHandlers) Message() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req messageRequest
		if err := decodeBody(r, &req); err != nil || len(req.Lines) == 0 {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		metricPlayerActionTotal.Add(1)
		delivered, err := h.node.Actions.For(chi.URLParam(r, "player_id")).SendMessage(r.Context(), req.Lines...)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"delivered": delivered})
	}
}

// Mail is fire and forget: the answer only says the mail was sent out.
func (h *PlayerHandlers) Mail() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req messageRequest
		if err := decodeBody(r, &req); err != nil || len(req.Lines) == 0 {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		metricPlayerActionTotal.Add(1)
		if err := h.node.Actions.For(chi.URLParam(r, "player_id")).Mail(r.Context(), req.Lines...); err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"sent": true})
	}
}

func (h *PlayerHandlers) Teleport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var loc useraction.Location
		if err := decodeBody(r, &loc); err != nil || loc.Server == "" {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		metricPlayerActionTotal.Add(1)
		if err := h.node.Actions.For(chi.URLParam(r, "player_id")).Teleport(r.Context(), loc); err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"teleported": true, "location": loc.String()})
	}
}

type chatRequest struct {
	Message string   `json:"message"`
	Servers []string `json:"servers"`
}

func (h *PlayerHandlers) Chat() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := decodeBody(r, &req); err != nil || req.Message == "" {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		metricPlayerActionTotal.Add(1)
		out, err := h.node.Chat.Send(r.Context(), chi.URLParam(r, "player_id"), req.Message, req.Servers...)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type connectRequest struct {
	Permissions []string `json:"permissions"`
	Vanished    bool     `json:"vanished"`
}

func (h *PlayerHandlers) memoryHost(w http.ResponseWriter) (*useraction.MemoryHost, bool) {
	host, ok := h.node.Host.(*useraction.MemoryHost)
	if !ok {
		WriteHTTPError(w, http.StatusNotImplemented, "host_not_managed")
	}
	return host, ok
}

func (h *PlayerHandlers) Connect() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		host, ok := h.memoryHost(w)
		if !ok {
			return
		}
		var req connectRequest
		if err := decodeBody(r, &req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		playerID := chi.URLParam(r, "player_id")
		host.Connect(playerID, req.Permissions...)
		if err := host.SetVanished(playerID, req.Vanished); err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"player_id": playerID, "server": h.node.Name})
	}
}

func (h *PlayerHandlers) Disconnect() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		host, ok := h.memoryHost(w)
		if !ok {
			return
		}
		host.Disconnect(chi.URLParam(r, "player_id"))
		w.WriteHeader(http.StatusNoContent)
	}
}

// Inbox shows what this server delivered to a player it hosts.
func (h *PlayerHandlers) Inbox() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		host, ok := h.memoryHost(w)
		if !ok {
			return
		}
		playerID := chi.URLParam(r, "player_id")
		if !host.IsOnline(playerID) {
			writeServiceError(w, r, useraction.ErrPlayerOffline)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": host.Inbox(playerID)})
	}
}
