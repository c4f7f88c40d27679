package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkrylov/shoply/internal/domain"
	"github.com/dkrylov/shoply/internal/rag"
)

// Resolution errors.
var (
	// ErrProductNotFound is returned when an explicit product ID does
	// not exist in the catalog.
	ErrProductNotFound = errors.New("product not found in catalog")

	// ErrNoSuggestions is returned when retrieval produced no product
	// candidates; callers suppress the order prompt.
	ErrNoSuggestions = errors.New("no product suggestions")
)

// MaxSuggestions caps how many product suggestions are presented.
const MaxSuggestions = 3

// ProductNotFoundError reports which explicit product ID failed to
// resolve. Its message is shown to the user.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("Product with ID %d not found", e.ProductID)
}

// Unwrap lets errors.Is match ErrProductNotFound.
func (e *ProductNotFoundError) Unwrap() error {
	return ErrProductNotFound
}

// Catalog is the product lookup the resolver consults.
type Catalog interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
}

// Resolver maps explicit selections and retrieval candidates to
// concrete catalog products.
type Resolver struct {
	catalog Catalog
}

// NewResolver creates a resolver over the given catalog.
func NewResolver(catalog Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// ResolveLine validates an explicit product selection. A quantity below
// one defaults to one.
func (r *Resolver) ResolveLine(ctx context.Context, productID int64, quantity int) (domain.OrderLine, *domain.Product, error) {
	product, err := r.catalog.GetProduct(ctx, productID)
	if err != nil {
		return domain.OrderLine{}, nil, fmt.Errorf("look up product %d: %w", productID, err)
	}
	if product == nil {
		return domain.OrderLine{}, nil, &ProductNotFoundError{ProductID: productID}
	}
	if quantity < 1 {
		quantity = 1
	}
	return domain.OrderLine{ProductID: productID, Quantity: quantity}, product, nil
}

// ResolveLines validates a parallel product-ID/quantity selection.
// Missing quantities default to one; the returned products align with
// the returned lines.
func (r *Resolver) ResolveLines(ctx context.Context, productIDs []int64, quantities []int) ([]domain.OrderLine, []*domain.Product, error) {
	lines := make([]domain.OrderLine, 0, len(productIDs))
	products := make([]*domain.Product, 0, len(productIDs))

	for i, id := range productIDs {
		qty := 1
		if i < len(quantities) {
			qty = quantities[i]
		}
		line, product, err := r.ResolveLine(ctx, id, qty)
		if err != nil {
			return nil, nil, err
		}
		lines = append(lines, line)
		products = append(products, product)
	}
	return lines, products, nil
}

// Suggestions deduplicates retrieval candidates by product ID (first
// occurrence wins, order preserved) and caps the result at
// MaxSuggestions. The user must still pick one explicitly; nothing is
// auto-selected.
func Suggestions(sources []rag.Source) ([]domain.Suggestion, error) {
	seen := make(map[int64]bool, len(sources))
	var suggestions []domain.Suggestion

	for _, src := range sources {
		if seen[src.ProductID] {
			continue
		}
		seen[src.ProductID] = true
		suggestions = append(suggestions, domain.Suggestion{
			ProductID: src.ProductID,
			Name:      src.Name,
			Price:     src.Price,
		})
		if len(suggestions) == MaxSuggestions {
			break
		}
	}

	if len(suggestions) == 0 {
		return nil, ErrNoSuggestions
	}
	return suggestions, nil
}
