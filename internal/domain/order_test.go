package domain

import "testing"

func TestOrderTransitions(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status     string
		canConfirm bool
		canCancel  bool
	}{
		{OrderStatusPending, true, true},
		{OrderStatusConfirmed, false, true},
		{OrderStatusShipped, false, false},
		{OrderStatusDelivered, false, false},
		{OrderStatusCancelled, false, false},
	}
	for _, tc := range cases {
		o := &Order{Status: tc.status}
		if got := o.CanConfirm(); got != tc.canConfirm {
			t.Fatalf("CanConfirm() with status %q = %v, want %v", tc.status, got, tc.canConfirm)
		}
		if got := o.CanCancel(); got != tc.canCancel {
			t.Fatalf("CanCancel() with status %q = %v, want %v", tc.status, got, tc.canCancel)
		}
	}
}

func TestOrderItemSubtotal(t *testing.T) {
	t.Parallel()

	item := &OrderItem{Quantity: 2, Price: 18.99}
	if got := item.Subtotal(); got != 37.98 {
		t.Fatalf("Subtotal() = %v, want 37.98", got)
	}
}
