package websocket

import (
	"errors"
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/casework/internal/auth"
	"github.com/dukerupert/casework/internal/workflow"
)

// HandleWebSocket upgrades GET /ws?workflow=<id> and streams that
// workflow's events. The caller must own the workflow.
func HandleWebSocket(hub *Hub, registry *workflow.Registry, originPatterns []string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("workflow")
		if _, err := registry.Get(id, auth.CaseworkerID(r.Context())); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, workflow.ErrNotFound) {
				status = http.StatusNotFound
			}
			http.Error(w, "workflow not found", status)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{OriginPatterns: originPatterns})
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}

		client := NewClient(hub, conn, id)
		client.Run(r.Context())
	}
}
