// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkrylov/shoply/internal/domain"
)

// Sentinel errors returned by Repository implementations.
var (
	// ErrProductNotFound is returned when a referenced product does not exist.
	ErrProductNotFound = errors.New("product not found")

	// ErrOrderNotFound is returned when a referenced order does not exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrEmptyOrder is returned when an order is created with no lines.
	ErrEmptyOrder = errors.New("order must contain at least one item")

	// ErrInvalidOrderState is returned when a status transition is not
	// allowed from the order's current status.
	ErrInvalidOrderState = errors.New("order state does not allow this transition")

	// ErrDuplicateEmail is returned when registering an already-used email.
	ErrDuplicateEmail = errors.New("email already registered")
)

// StockError reports insufficient stock for a product. Its message is
// shown to the user verbatim.
type StockError struct {
	ProductName string
	Available   int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("Not enough stock for %s. Available: %d", e.ProductName, e.Available)
}

// Product sort orders accepted by ProductFilter.
const (
	SortByName      = "name"
	SortByPriceLow  = "price_low"
	SortByPriceHigh = "price_high"
	SortByRating    = "rating"
)

// ProductFilter narrows and orders a product listing.
type ProductFilter struct {
	Category string
	Search   string
	Sort     string
}

// Repository defines the interface for persisting storefront data.
type Repository interface {
	// CreateUser inserts a new user and assigns its ID.
	// Returns ErrDuplicateEmail if the email is taken.
	CreateUser(ctx context.Context, user *domain.User) error

	// GetUser retrieves a user by ID. Returns nil, nil when not found.
	GetUser(ctx context.Context, id int64) (*domain.User, error)

	// GetUserByEmail retrieves a user by email. Returns nil, nil when not found.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// CreateAuthSession persists a login session.
	CreateAuthSession(ctx context.Context, session *domain.AuthSession) error

	// GetAuthSession retrieves a login session by token. Returns nil, nil when not found.
	GetAuthSession(ctx context.Context, token string) (*domain.AuthSession, error)

	// DeleteAuthSession removes a login session.
	DeleteAuthSession(ctx context.Context, token string) error

	// DeleteExpiredAuthSessions removes sessions past their expiry.
	DeleteExpiredAuthSessions(ctx context.Context) (int64, error)

	// ListProducts returns catalog items matching the filter.
	ListProducts(ctx context.Context, filter ProductFilter) ([]*domain.Product, error)

	// GetProduct retrieves a product by ID. Returns nil, nil when not found.
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)

	// InsertProduct adds a catalog item and assigns its ID.
	InsertProduct(ctx context.Context, p *domain.Product) error

	// CountProducts returns the catalog size.
	CountProducts(ctx context.Context) (int, error)

	// DeleteAllProducts clears the catalog (used by forced reseeding).
	DeleteAllProducts(ctx context.Context) (int64, error)

	// UpsertReview creates or replaces the user's review of a product
	// and recomputes the product's average rating.
	UpsertReview(ctx context.Context, review *domain.Review) error

	// ListReviews returns reviews for a product, newest first.
	ListReviews(ctx context.Context, productID int64) ([]*domain.Review, error)

	// GetUserReview retrieves one user's review of a product. Returns nil, nil when absent.
	GetUserReview(ctx context.Context, userID, productID int64) (*domain.Review, error)

	// IsFavorite reports whether the user has favorited the product.
	IsFavorite(ctx context.Context, userID, productID int64) (bool, error)

	// AddFavorite marks a product as a favorite.
	AddFavorite(ctx context.Context, userID, productID int64) error

	// RemoveFavorite unmarks a product as a favorite.
	RemoveFavorite(ctx context.Context, userID, productID int64) error

	// ListFavoriteProducts returns the user's favorited products.
	ListFavoriteProducts(ctx context.Context, userID int64) ([]*domain.Product, error)

	// ListFavoriteIDs returns the product IDs the user has favorited.
	ListFavoriteIDs(ctx context.Context, userID int64) ([]int64, error)

	// AddSearchEntry records a product search for the user.
	AddSearchEntry(ctx context.Context, userID int64, query string) error

	// ListSearchHistory returns the user's recent searches, newest first.
	ListSearchHistory(ctx context.Context, userID int64, limit int) ([]*domain.SearchEntry, error)

	// CreateOrder places an order in a single transaction: validates the
	// lines, captures current prices, checks and decrements stock.
	// Returns ErrProductNotFound or *StockError on validation failure,
	// leaving stock untouched.
	CreateOrder(ctx context.Context, userID int64, lines []domain.OrderLine, shippingAddress string) (*domain.Order, error)

	// GetOrder retrieves an order with its items. Returns nil, nil when not found.
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)

	// ListOrders returns the user's orders, newest first.
	ListOrders(ctx context.Context, userID int64) ([]*domain.Order, error)

	// ListOrdersByStatus returns the user's orders with the given status.
	ListOrdersByStatus(ctx context.Context, userID int64, status string) ([]*domain.Order, error)

	// ConfirmOrder moves a pending order to confirmed.
	// Returns ErrInvalidOrderState if the order is not pending.
	ConfirmOrder(ctx context.Context, orderID int64) error

	// CancelOrder cancels a pending or confirmed order and restores the
	// stock its items consumed, in one transaction.
	CancelOrder(ctx context.Context, orderID int64) error

	// AddChatRecord appends a chat exchange to the user's history.
	AddChatRecord(ctx context.Context, record *domain.ChatRecord) error

	// ListChatHistory returns the user's most recent chat exchanges,
	// oldest first, capped at limit.
	ListChatHistory(ctx context.Context, userID int64, limit int) ([]*domain.ChatRecord, error)

	// ClearChatHistory removes the user's chat history.
	ClearChatHistory(ctx context.Context, userID int64) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
