// Package websocket pushes workflow events to connected dashboards.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/dukerupert/casework/internal/workflow"
)

// Message is the JSON frame sent to clients for one workflow event.
type Message struct {
	Type       string `json:"type"`
	WorkflowID string `json:"workflow_id"`
	TabID      string `json:"tab_id,omitempty"`
	Status     string `json:"status,omitempty"`
	Action     string `json:"action,omitempty"`
	Error      string `json:"error,omitempty"`
}

// NewMessage converts a workflow event to its wire form.
func NewMessage(e workflow.Event) Message {
	return Message{
		Type:       string(e.Kind),
		WorkflowID: e.WorkflowID,
		TabID:      string(e.TabID),
		Status:     string(e.Status),
		Action:     string(e.Action),
		Error:      e.Err,
	}
}

// Hub maintains the set of active WebSocket clients and fans out messages to
// the clients watching the message's workflow.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger.With("component", "websocket"),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Publish is a workflow.Deps publish function.
func (h *Hub) Publish(e workflow.Event) {
	h.Broadcast(NewMessage(e))
}

// Broadcast sends msg to every client subscribed to msg.WorkflowID. Slow
// clients whose buffer is full miss the message.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if c.workflowID != msg.WorkflowID {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.logger.Debug("dropping message for slow client", "workflow_id", msg.WorkflowID, "type", msg.Type)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
