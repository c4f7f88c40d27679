package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/dkrylov/shoply/internal/domain"
)

func TestCreateOrderEndpoint(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	f.insertProduct(t, "Headphones", "electronics", 100, 5)
	cookies := f.registerAndLogin(t, "a@example.com")

	w := f.do(t, http.MethodPost, "/orders/create", map[string]any{
		"items":            []map[string]any{{"product_id": 1, "quantity": 2}},
		"shipping_address": "12 Main St",
	}, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d\n%s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	order := body["order"].(map[string]any)
	if order["total_amount"].(float64) != 200 {
		t.Fatalf("total = %v, want 200", order["total_amount"])
	}
	if order["status"] != domain.OrderStatusPending {
		t.Fatalf("status = %v, want pending", order["status"])
	}

	p, _ := f.repo.GetProduct(context.Background(), 1)
	if p.Stock != 3 {
		t.Fatalf("stock = %d, want 3", p.Stock)
	}
}

func TestCreateOrderInsufficientStockEndpoint(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	f.insertProduct(t, "Headphones", "electronics", 100, 1)
	cookies := f.registerAndLogin(t, "a@example.com")

	w := f.do(t, http.MethodPost, "/orders/create", map[string]any{
		"items": []map[string]any{{"product_id": 1, "quantity": 3}},
	}, cookies)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if got := decodeBody(t, w)["message"]; got != "Not enough stock for Headphones. Available: 1" {
		t.Fatalf("message = %v", got)
	}
}

func TestCreateOrderEmptyItems(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	cookies := f.registerAndLogin(t, "a@example.com")

	w := f.do(t, http.MethodPost, "/orders/create", map[string]any{
		"items": []map[string]any{},
	}, cookies)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestOrdersRequireAuth(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	if w := f.do(t, http.MethodGet, "/orders/", nil, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous list status = %d, want 401", w.Code)
	}
}

func TestOrderOwnershipEnforced(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	f.insertProduct(t, "Headphones", "electronics", 100, 5)
	owner := f.registerAndLogin(t, "owner@example.com")
	other := f.registerAndLogin(t, "other@example.com")

	w := f.do(t, http.MethodPost, "/orders/create", map[string]any{
		"items": []map[string]any{{"product_id": 1, "quantity": 1}},
	}, owner)
	if w.Code != http.StatusOK {
		t.Fatalf("create status = %d", w.Code)
	}

	if w := f.do(t, http.MethodGet, "/orders/1", nil, other); w.Code != http.StatusForbidden {
		t.Fatalf("foreign detail status = %d, want 403", w.Code)
	}
	if w := f.do(t, http.MethodPost, "/orders/1/cancel", nil, other); w.Code != http.StatusForbidden {
		t.Fatalf("foreign cancel status = %d, want 403", w.Code)
	}
	if w := f.do(t, http.MethodGet, "/orders/1", nil, owner); w.Code != http.StatusOK {
		t.Fatalf("owner detail status = %d", w.Code)
	}
}

func TestConfirmAndCancelFlow(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	f.insertProduct(t, "Headphones", "electronics", 100, 5)
	cookies := f.registerAndLogin(t, "a@example.com")

	f.do(t, http.MethodPost, "/orders/create", map[string]any{
		"items": []map[string]any{{"product_id": 1, "quantity": 2}},
	}, cookies)

	// Pending list shows it.
	w := f.do(t, http.MethodGet, "/orders/pending", nil, cookies)
	if orders := decodeBody(t, w)["orders"].([]any); len(orders) != 1 {
		t.Fatalf("got %d pending orders, want 1", len(orders))
	}

	w = f.do(t, http.MethodPost, "/orders/1/confirm", nil, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("confirm status = %d\n%s", w.Code, w.Body.String())
	}
	if order := decodeBody(t, w)["order"].(map[string]any); order["status"] != domain.OrderStatusConfirmed {
		t.Fatalf("status = %v, want confirmed", order["status"])
	}

	// Confirming twice is rejected.
	w = f.do(t, http.MethodPost, "/orders/1/confirm", nil, cookies)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("second confirm status = %d, want 400", w.Code)
	}
	if got := decodeBody(t, w)["message"]; got != "Order cannot be confirmed" {
		t.Fatalf("message = %v", got)
	}

	// A confirmed order can still be cancelled, restoring stock.
	w = f.do(t, http.MethodPost, "/orders/1/cancel", nil, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("cancel status = %d\n%s", w.Code, w.Body.String())
	}
	p, _ := f.repo.GetProduct(context.Background(), 1)
	if p.Stock != 5 {
		t.Fatalf("stock = %d, want restored 5", p.Stock)
	}

	// Cancelled orders cannot be cancelled again.
	w = f.do(t, http.MethodPost, "/orders/1/cancel", nil, cookies)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("second cancel status = %d, want 400", w.Code)
	}
}

func TestOrderDetailNotFound(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	cookies := f.registerAndLogin(t, "a@example.com")
	if w := f.do(t, http.MethodGet, "/orders/99", nil, cookies); w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
