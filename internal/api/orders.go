package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dkrylov/shoply/internal/auth"
	"github.com/dkrylov/shoply/internal/domain"
	"github.com/dkrylov/shoply/internal/store"
	"github.com/go-chi/chi/v5"
)

// OrderHandler handles order endpoints.
type OrderHandler struct {
	*Handler
}

// NewOrderHandler creates the order handler.
func NewOrderHandler(base *Handler) *OrderHandler {
	return &OrderHandler{Handler: base}
}

// RegisterRoutes registers order routes. All order routes require a
// logged-in user.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", auth.RequireAuth(h.List))
		r.Get("/pending", auth.RequireAuth(h.Pending))
		r.Post("/create", auth.RequireAuth(h.Create))
		r.Get("/{orderID}", auth.RequireAuth(h.Detail))
		r.Post("/{orderID}/confirm", auth.RequireAuth(h.Confirm))
		r.Post("/{orderID}/cancel", auth.RequireAuth(h.Cancel))
	})
}

// ownOrder loads the order and enforces that it belongs to the
// requesting user. Writes the error response itself on failure.
func (h *OrderHandler) ownOrder(w http.ResponseWriter, r *http.Request) *domain.Order {
	id, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil || id < 1 {
		Fail(w, http.StatusBadRequest, "invalid order id")
		return nil
	}

	order, err := h.repo.GetOrder(r.Context(), id)
	if err != nil {
		logHandlerError("Failed to load order", err)
		Fail(w, http.StatusInternalServerError, "failed to load order")
		return nil
	}
	if order == nil {
		Fail(w, http.StatusNotFound, "order not found")
		return nil
	}

	user := auth.UserFromContext(r.Context())
	if order.UserID != user.ID {
		Fail(w, http.StatusForbidden, "Unauthorized")
		return nil
	}
	return order
}

// List returns the user's orders, newest first.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	orders, err := h.repo.ListOrders(r.Context(), user.ID)
	if err != nil {
		logHandlerError("Failed to list orders", err)
		Fail(w, http.StatusInternalServerError, "failed to load orders")
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"orders":  orders,
	})
}

// Pending returns the user's pending orders.
func (h *OrderHandler) Pending(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	orders, err := h.repo.ListOrdersByStatus(r.Context(), user.ID, domain.OrderStatusPending)
	if err != nil {
		logHandlerError("Failed to list pending orders", err)
		Fail(w, http.StatusInternalServerError, "failed to load orders")
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"orders":  orders,
	})
}

// Detail returns one of the user's orders.
func (h *OrderHandler) Detail(w http.ResponseWriter, r *http.Request) {
	order := h.ownOrder(w, r)
	if order == nil {
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"order":   order,
	})
}

// Create places a new order.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items           []domain.OrderLine `json:"items"`
		ShippingAddress string             `json:"shipping_address"`
	}
	if !decode(w, r, &req) {
		return
	}
	if len(req.Items) == 0 {
		Fail(w, http.StatusBadRequest, "Order must contain at least one item")
		return
	}

	user := auth.UserFromContext(r.Context())
	order, err := h.repo.CreateOrder(r.Context(), user.ID, req.Items, req.ShippingAddress)
	if err != nil {
		var stockErr *store.StockError
		switch {
		case errors.As(err, &stockErr):
			Fail(w, http.StatusBadRequest, stockErr.Error())
		case errors.Is(err, store.ErrProductNotFound):
			Fail(w, http.StatusBadRequest, "Product not found")
		case errors.Is(err, store.ErrEmptyOrder):
			Fail(w, http.StatusBadRequest, "Order must contain at least one item")
		default:
			logHandlerError("Failed to create order", err)
			Fail(w, http.StatusInternalServerError, "failed to create order")
		}
		return
	}

	slog.Info("Order created", "order_id", order.ID, "user_id", user.ID, "total", order.TotalAmount)
	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Order created successfully",
		"order":   order,
	})
}

// Confirm moves a pending order to confirmed.
func (h *OrderHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	order := h.ownOrder(w, r)
	if order == nil {
		return
	}
	if !order.CanConfirm() {
		Fail(w, http.StatusBadRequest, "Order cannot be confirmed")
		return
	}

	// The store re-checks the transition inside the update, so a
	// concurrent status change still maps to the same error.
	if err := h.repo.ConfirmOrder(r.Context(), order.ID); err != nil {
		if errors.Is(err, store.ErrInvalidOrderState) {
			Fail(w, http.StatusBadRequest, "Order cannot be confirmed")
			return
		}
		logHandlerError("Failed to confirm order", err)
		Fail(w, http.StatusInternalServerError, "failed to confirm order")
		return
	}

	updated, err := h.repo.GetOrder(r.Context(), order.ID)
	if err != nil || updated == nil {
		updated = order
		updated.Status = domain.OrderStatusConfirmed
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Order confirmed successfully",
		"order":   updated,
	})
}

// Cancel cancels a pending or confirmed order and restores stock.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	order := h.ownOrder(w, r)
	if order == nil {
		return
	}
	if !order.CanCancel() {
		Fail(w, http.StatusBadRequest, "Order cannot be cancelled")
		return
	}

	if err := h.repo.CancelOrder(r.Context(), order.ID); err != nil {
		if errors.Is(err, store.ErrInvalidOrderState) {
			Fail(w, http.StatusBadRequest, "Order cannot be cancelled")
			return
		}
		logHandlerError("Failed to cancel order", err)
		Fail(w, http.StatusInternalServerError, "failed to cancel order")
		return
	}

	updated, err := h.repo.GetOrder(r.Context(), order.ID)
	if err != nil || updated == nil {
		updated = order
		updated.Status = domain.OrderStatusCancelled
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Order cancelled successfully",
		"order":   updated,
	})
}
