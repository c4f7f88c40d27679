package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/dkrylov/shoply/internal/auth"
)

// WSHandler serves the chat turn pipeline over a WebSocket connection.
// One live connection is kept per user; a reconnect replaces it.
type WSHandler struct {
	handler *Handler

	mu     sync.Mutex
	active map[int64]*websocket.Conn
}

// NewWSHandler creates a WebSocket chat handler on top of the HTTP one.
func NewWSHandler(handler *Handler) *WSHandler {
	return &WSHandler{
		handler: handler,
		active:  make(map[int64]*websocket.Conn),
	}
}

type wsTurn struct {
	Message string `json:"message"`
}

// ServeHTTP upgrades the connection and processes chat turns until the
// client disconnects.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept chat WebSocket", "error", err, "user_id", user.ID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "chat ended"); closeErr != nil {
			slog.Debug("Failed to close chat websocket", "error", closeErr, "user_id", user.ID)
		}
	}()

	h.register(user.ID, ws)
	defer h.unregister(user.ID, ws)
	slog.Info("Chat WebSocket connected", "user_id", user.ID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			slog.Debug("Chat WebSocket closed", "user_id", user.ID, "error", err)
			return
		}

		var turn wsTurn
		if err := json.Unmarshal(data, &turn); err != nil {
			continue
		}
		message := strings.TrimSpace(turn.Message)
		if message == "" {
			continue
		}

		resp := h.handler.processTurn(r, user, message)
		payload, err := json.Marshal(resp)
		if err != nil {
			slog.Error("Failed to encode chat turn", "user_id", user.ID, "error", err)
			continue
		}
		if err := ws.Write(ctx, websocket.MessageText, payload); err != nil {
			slog.Debug("Chat WebSocket write failed", "user_id", user.ID, "error", err)
			return
		}
	}
}

func (h *WSHandler) register(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if existing, ok := h.active[userID]; ok && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "connection replaced")
	}
	h.active[userID] = conn
}

func (h *WSHandler) unregister(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if current, ok := h.active[userID]; ok && current == conn {
		delete(h.active, userID)
	}
}
