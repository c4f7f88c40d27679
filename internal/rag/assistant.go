// Package rag provides the retrieval-augmented store assistant boundary.
//
// The conversational core treats the assistant as an external
// collaborator: it hands over free text and receives a reply with
// optional product sources and an order-intent signal. Two
// implementations exist, an OpenAI-backed one and a canned fallback
// used when no API key is configured.
package rag

import (
	"context"
	"strings"

	"github.com/dkrylov/shoply/internal/domain"
)

// Source identifies a catalog product that informed a reply.
type Source struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
}

// Reply is the assistant's answer to one chat turn.
type Reply struct {
	Response    string
	Sources     []Source
	OrderIntent bool
	Fallback    bool
}

// Assistant answers chat turns using the product catalog.
type Assistant interface {
	// Chat answers a single user message. Implementations keep their own
	// per-user conversation memory.
	Chat(ctx context.Context, userID int64, message string) (*Reply, error)

	// Reindex rebuilds the retrieval index from the catalog.
	Reindex(ctx context.Context, products []*domain.Product) error

	// ClearMemory drops the conversation memory for a user.
	ClearMemory(userID int64)
}

var orderIntentKeywords = []string{
	"order", "buy", "purchase", "add to cart", "checkout",
	"i want", "i need", "i'd like", "get me", "can i get",
}

// DetectOrderIntent reports whether the message looks like a request to
// place an order.
func DetectOrderIntent(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range orderIntentKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
