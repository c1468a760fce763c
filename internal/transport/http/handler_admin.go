package httptransport

import (
	"encoding/json"
	"net/http"

	"gamefleet/internal/node"
)

type AdminHandlers struct {
	node *node.Node
}

func NewAdminHandlers(n *node.Node) *AdminHandlers {
	return &AdminHandlers{node: n}
}

func (h *AdminHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{"ok": true, "server": h.node.Name, "db": "up", "pending": h.node.Dispatcher.Pending()}
		if h.node.Records.Disabled() {
			resp["db"] = "disabled"
		} else if err := h.node.Records.Ping(r.Context()); err != nil {
			resp["ok"] = false
			resp["db"] = "down"
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}
