package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dkrylov/shoply/internal/auth"
	"github.com/dkrylov/shoply/internal/domain"
	"github.com/dkrylov/shoply/internal/metrics"
	"github.com/dkrylov/shoply/internal/rag"
	"github.com/dkrylov/shoply/internal/store"
	"github.com/go-chi/chi/v5"
)

// maxRequestBodySize caps chat request bodies (1MB).
const maxRequestBodySize = 1 << 20

const historyLimit = 50

// StoreCommitter commits confirmed chat orders through the repository.
type StoreCommitter struct {
	Repo store.Repository
}

// Commit creates the order; stock is validated and decremented inside
// the repository's transaction.
func (c StoreCommitter) Commit(ctx context.Context, userID int64, lines []domain.OrderLine) (*domain.Order, error) {
	return c.Repo.CreateOrder(ctx, userID, lines, "")
}

// Handler serves the chat endpoints.
type Handler struct {
	repo       store.Repository
	assistant  rag.Assistant
	sessions   *Manager
	resolver   *Resolver
	negotiator *Negotiator
	presenter  *Presenter
}

// NewHandler creates the chat handler with its collaborators wired to
// the repository.
func NewHandler(repo store.Repository, assistant rag.Assistant, presenter *Presenter) *Handler {
	return &Handler{
		repo:       repo,
		assistant:  assistant,
		sessions:   NewManager(),
		resolver:   NewResolver(repo),
		negotiator: NewNegotiator(StoreCommitter{Repo: repo}),
		presenter:  presenter,
	}
}

// RegisterRoutes registers chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/chat", func(r chi.Router) {
		r.Post("/message", auth.RequireAuth(h.HandleMessage))
		r.Post("/order-verify", auth.RequireAuth(h.HandleOrderVerify))
		r.Get("/history", auth.RequireAuth(h.HandleHistory))
		r.Post("/clear-history", auth.RequireAuth(h.HandleClearHistory))
		r.Post("/init", h.HandleInit)
	})
}

// turnResponse is the JSON shape of a chat turn reply.
type turnResponse struct {
	Success    bool             `json:"success"`
	Response   string           `json:"response,omitempty"`
	Message    string           `json:"message,omitempty"`
	Action     string           `json:"action,omitempty"`
	Sources    []SuggestionView `json:"sources,omitempty"`
	ProductIDs []int64          `json:"product_ids,omitempty"`
	Quantities []int            `json:"quantities,omitempty"`
	Order      *domain.Order    `json:"order,omitempty"`
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode chat response", "error", err)
	}
}

func fail(w http.ResponseWriter, status int, message string) {
	respond(w, status, turnResponse{Success: false, Message: message})
}

// HandleMessage processes one free-text chat turn.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	body := http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		fail(w, http.StatusBadRequest, "Message cannot be empty")
		return
	}

	user := auth.UserFromContext(r.Context())
	resp := h.processTurn(r, user, message)
	respond(w, http.StatusOK, resp)
}

// processTurn runs the negotiation pipeline for one user message. It
// acquires the session lock for the whole turn so a confirmation can
// never race the commit of a previous one.
func (h *Handler) processTurn(r *http.Request, user *domain.User, message string) turnResponse {
	ctx := r.Context()

	s := h.sessions.Get(user.ID)
	s.Lock()
	defer s.Unlock()

	intent := Classify(message, s.HasPending())
	metrics.ObserveChatTurn(intent.String())

	var cmd RenderCommand
	switch intent {
	case IntentConfirmation:
		outcome := h.negotiator.Confirm(ctx, s)
		switch outcome.Kind {
		case OutcomeCommitted:
			metrics.ObserveCommit(true)
			cmd = h.presenter.Committed(outcome.Order)
		case OutcomeCommitFailed:
			metrics.ObserveCommit(false)
			cmd = h.presenter.CommitFailed(outcome.Err)
		default:
			cmd = h.presenter.NothingPending()
		}

	case IntentRejection:
		h.negotiator.Cancel(s)
		cmd = h.presenter.Cancelled()

	default:
		// An unrelated query while a confirmation was outstanding
		// abandons the proposal; the user moved on.
		if h.negotiator.Abandon(s) {
			slog.Info("Pending order abandoned by new query", "user_id", user.ID)
		}

		start := time.Now()
		reply, err := h.assistant.Chat(ctx, user.ID, message)
		metrics.ObserveAssistant(err, time.Since(start))
		if err != nil {
			slog.Error("Assistant call failed", "user_id", user.ID, "error", err)
			cmd = h.presenter.Apology()
			break
		}

		cmd = RenderCommand{Message: reply.Response}
		if reply.OrderIntent {
			if suggestions, err := Suggestions(reply.Sources); err == nil {
				cmd = h.presenter.OrderIntent(reply.Response, suggestions)
			}
		}
	}

	record := &domain.ChatRecord{UserID: user.ID, Message: message, Response: cmd.Message}
	if err := h.repo.AddChatRecord(ctx, record); err != nil {
		slog.Error("Failed to save chat record", "user_id", user.ID, "error", err)
	}

	return turnResponse{
		Success:    true,
		Response:   cmd.Message,
		Action:     cmd.Action,
		Sources:    cmd.Suggestions,
		ProductIDs: cmd.ProductIDs,
		Quantities: cmd.Quantities,
	}
}

// HandleOrderVerify resolves an explicit product selection into a
// pending order (confirm=false) or commits it (confirm=true).
func (h *Handler) HandleOrderVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductIDs []int64 `json:"product_ids"`
		Quantities []int   `json:"quantities"`
		Confirm    bool    `json:"confirm"`
	}
	body := http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.ProductIDs) == 0 {
		fail(w, http.StatusBadRequest, "No products specified for order")
		return
	}

	ctx := r.Context()
	user := auth.UserFromContext(ctx)

	s := h.sessions.Get(user.ID)
	s.Lock()
	defer s.Unlock()

	lines, products, err := h.resolver.ResolveLines(ctx, req.ProductIDs, req.Quantities)
	if err != nil {
		var notFound *ProductNotFoundError
		if errors.As(err, &notFound) {
			fail(w, http.StatusNotFound, notFound.Error())
			return
		}
		slog.Error("Failed to resolve order selection", "user_id", user.ID, "error", err)
		fail(w, http.StatusInternalServerError, h.presenter.Apology().Message)
		return
	}

	if !req.Confirm {
		for i, line := range lines {
			if line.Quantity > products[i].Stock {
				stockErr := &store.StockError{ProductName: products[i].Name, Available: products[i].Stock}
				fail(w, http.StatusBadRequest, stockErr.Error())
				return
			}
		}

		h.negotiator.Propose(s, lines)
		cmd := h.presenter.OrderSummary(products, lines)
		respond(w, http.StatusOK, turnResponse{
			Success:    true,
			Message:    cmd.Message,
			Action:     cmd.Action,
			ProductIDs: cmd.ProductIDs,
			Quantities: cmd.Quantities,
		})
		return
	}

	// Explicit confirmation commits the selection carried by this
	// request, replacing any proposal negotiated through chat. Stateless
	// clients supply the lines with the confirm request and never store
	// a proposal first.
	h.negotiator.Propose(s, lines)
	outcome := h.negotiator.Confirm(ctx, s)
	switch outcome.Kind {
	case OutcomeCommitted:
		metrics.ObserveCommit(true)
		cmd := h.presenter.Committed(outcome.Order)
		respond(w, http.StatusOK, turnResponse{
			Success: true,
			Message: cmd.Message,
			Action:  cmd.Action,
			Order:   outcome.Order,
		})
	case OutcomeCommitFailed:
		metrics.ObserveCommit(false)
		status := http.StatusBadRequest
		if !isCommitRejection(outcome.Err) {
			status = http.StatusInternalServerError
		}
		fail(w, status, outcome.Err.Error())
	default:
		fail(w, http.StatusBadRequest, h.presenter.NothingPending().Message)
	}
}

// isCommitRejection distinguishes a backend rejection (bad request)
// from a transport or storage failure.
func isCommitRejection(err error) bool {
	var stockErr *store.StockError
	return errors.As(err, &stockErr) ||
		errors.Is(err, store.ErrProductNotFound) ||
		errors.Is(err, store.ErrEmptyOrder)
}

// HandleHistory returns the user's recent chat exchanges, oldest first.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	records, err := h.repo.ListChatHistory(r.Context(), user.ID, historyLimit)
	if err != nil {
		slog.Error("Failed to load chat history", "user_id", user.ID, "error", err)
		fail(w, http.StatusInternalServerError, "failed to load chat history")
		return
	}
	if records == nil {
		records = []*domain.ChatRecord{}
	}

	respond(w, http.StatusOK, map[string]any{
		"success": true,
		"history": records,
	})
}

// HandleClearHistory clears the user's persisted history, assistant
// memory, and chat session.
func (h *Handler) HandleClearHistory(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	if _, err := h.repo.ClearChatHistory(r.Context(), user.ID); err != nil {
		slog.Error("Failed to clear chat history", "user_id", user.ID, "error", err)
		fail(w, http.StatusInternalServerError, "failed to clear chat history")
		return
	}
	h.assistant.ClearMemory(user.ID)
	h.sessions.End(user.ID)

	respond(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Chat history cleared",
	})
}

// HandleInit rebuilds the retrieval index from the current catalog.
func (h *Handler) HandleInit(w http.ResponseWriter, r *http.Request) {
	products, err := h.repo.ListProducts(r.Context(), store.ProductFilter{})
	if err != nil {
		slog.Error("Failed to list products for reindex", "error", err)
		fail(w, http.StatusInternalServerError, "failed to load catalog")
		return
	}

	if err := h.assistant.Reindex(r.Context(), products); err != nil {
		slog.Error("Failed to rebuild retrieval index", "error", err)
		respond(w, http.StatusOK, map[string]any{
			"success": false,
			"message": "Failed to initialize assistant",
		})
		return
	}

	respond(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Assistant initialized with %d products", len(products)),
	})
}
