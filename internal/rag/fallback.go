package rag

import (
	"context"
	"strings"

	"github.com/dkrylov/shoply/internal/domain"
)

// FallbackAssistant answers with canned responses when the LLM-backed
// assistant is unavailable. It never fails a turn.
type FallbackAssistant struct{}

// NewFallback creates the canned-response assistant.
func NewFallback() *FallbackAssistant {
	return &FallbackAssistant{}
}

// Chat returns a keyword-matched canned response.
func (f *FallbackAssistant) Chat(_ context.Context, _ int64, message string) (*Reply, error) {
	lower := strings.ToLower(message)

	var response string
	switch {
	case strings.Contains(lower, "hello") || strings.Contains(lower, "hi"):
		response = "Hello! Welcome to our store. I can help you find products in our categories: " +
			"Electronics, Fashion, Home, Beauty, Books, Sports, Toys, and Grocery. How can I assist you today?"
	case strings.Contains(lower, "categor"):
		response = "We carry 8 categories: Electronics, Fashion, Home, Beauty, Books, Sports, Toys, and Grocery. " +
			"Which category interests you?"
	case strings.Contains(lower, "order"):
		response = "To place an order, please browse our products, select the items you want, and proceed to checkout. " +
			"Would you like me to help you find something specific?"
	case strings.Contains(lower, "help"):
		response = "I can help you with:\n- Finding products in different categories\n- Product recommendations\n" +
			"- Order placement and confirmation\n- Answering questions about items\n\nWhat would you like assistance with?"
	default:
		response = "I'm here to help! You can ask me about our products, categories, or placing orders. " +
			"What would you like to know?"
	}

	return &Reply{Response: response, Fallback: true}, nil
}

// Reindex is a no-op for the canned assistant.
func (f *FallbackAssistant) Reindex(_ context.Context, _ []*domain.Product) error {
	return nil
}

// ClearMemory is a no-op for the canned assistant.
func (f *FallbackAssistant) ClearMemory(_ int64) {}
