package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dkrylov/shoply/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		token TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_auth_sessions_expires ON auth_sessions(expires_at);

	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		description TEXT NOT NULL,
		price REAL NOT NULL,
		category TEXT NOT NULL,
		image_url TEXT,
		stock INTEGER NOT NULL DEFAULT 100,
		avg_rating REAL NOT NULL DEFAULT 0,
		rating_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);

	CREATE TABLE IF NOT EXISTS orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		order_date INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		total_amount REAL NOT NULL,
		shipping_address TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id);

	CREATE TABLE IF NOT EXISTS order_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id INTEGER NOT NULL,
		product_id INTEGER NOT NULL,
		quantity INTEGER NOT NULL,
		price REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id);

	CREATE TABLE IF NOT EXISTS reviews (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		product_id INTEGER NOT NULL,
		rating INTEGER NOT NULL,
		comment TEXT,
		created_at INTEGER NOT NULL,
		UNIQUE(user_id, product_id)
	);
	CREATE INDEX IF NOT EXISTS idx_reviews_product ON reviews(product_id);

	CREATE TABLE IF NOT EXISTS favorites (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		product_id INTEGER NOT NULL,
		added_at INTEGER NOT NULL,
		UNIQUE(user_id, product_id)
	);

	CREATE TABLE IF NOT EXISTS search_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		query TEXT NOT NULL,
		searched_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_search_history_user ON search_history(user_id, searched_at);

	CREATE TABLE IF NOT EXISTS chat_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		message TEXT NOT NULL,
		response TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chat_history_user ON chat_history(user_id, created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateUser inserts a new user and assigns its ID.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *domain.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, name, created_at) VALUES (?, ?, ?, ?)`,
		user.Email, user.PasswordHash, user.Name, user.CreatedAt.Unix(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("user insert id: %w", err)
	}
	user.ID = id
	return nil
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*domain.User, error) {
	var user domain.User
	var createdAt int64
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}
	user.CreatedAt = time.Unix(createdAt, 0)
	return &user, nil
}

// GetUser retrieves a user by ID.
func (s *SQLiteStore) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, name, created_at FROM users WHERE id = ?`, id)
	return s.scanUser(row)
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, name, created_at FROM users WHERE email = ?`, email)
	return s.scanUser(row)
}

// CreateAuthSession persists a login session.
func (s *SQLiteStore) CreateAuthSession(ctx context.Context, session *domain.AuthSession) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO auth_sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		session.Token, session.UserID, session.CreatedAt.Unix(), session.ExpiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert auth session: %w", err)
	}
	return nil
}

// GetAuthSession retrieves a login session by token.
func (s *SQLiteStore) GetAuthSession(ctx context.Context, token string) (*domain.AuthSession, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT token, user_id, created_at, expires_at FROM auth_sessions WHERE token = ?`, token)

	var session domain.AuthSession
	var createdAt, expiresAt int64
	err := row.Scan(&session.Token, &session.UserID, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan auth session row: %w", err)
	}
	session.CreatedAt = time.Unix(createdAt, 0)
	session.ExpiresAt = time.Unix(expiresAt, 0)
	return &session, nil
}

// DeleteAuthSession removes a login session.
func (s *SQLiteStore) DeleteAuthSession(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete auth session: %w", err)
	}
	return nil
}

// DeleteExpiredAuthSessions removes sessions past their expiry.
func (s *SQLiteStore) DeleteExpiredAuthSessions(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM auth_sessions WHERE expires_at < ?`, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("delete expired auth sessions: %w", err)
	}
	return res.RowsAffected()
}

const productColumns = `id, name, description, price, category, image_url, stock, avg_rating, rating_count, created_at`

func scanProduct(scan func(dest ...any) error) (*domain.Product, error) {
	var p domain.Product
	var imageURL sql.NullString
	var createdAt int64
	err := scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category,
		&imageURL, &p.Stock, &p.AvgRating, &p.RatingCount, &createdAt)
	if err != nil {
		return nil, err
	}
	p.ImageURL = imageURL.String
	p.CreatedAt = time.Unix(createdAt, 0)
	return &p, nil
}

// ListProducts returns catalog items matching the filter.
func (s *SQLiteStore) ListProducts(ctx context.Context, filter ProductFilter) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	var conds []string
	var args []any

	if filter.Category != "" {
		conds = append(conds, `category = ?`)
		args = append(args, filter.Category)
	}
	if filter.Search != "" {
		conds = append(conds, `(name LIKE ? OR description LIKE ?)`)
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}

	switch filter.Sort {
	case SortByPriceLow:
		query += ` ORDER BY price ASC`
	case SortByPriceHigh:
		query += ` ORDER BY price DESC`
	case SortByRating:
		query += ` ORDER BY avg_rating DESC`
	default:
		query += ` ORDER BY name ASC`
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// GetProduct retrieves a product by ID.
func (s *SQLiteStore) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan product row: %w", err)
	}
	return p, nil
}

// InsertProduct adds a catalog item and assigns its ID.
func (s *SQLiteStore) InsertProduct(ctx context.Context, p *domain.Product) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO products (name, description, price, category, image_url, stock, avg_rating, rating_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Description, p.Price, p.Category, nullString(p.ImageURL),
		p.Stock, p.AvgRating, p.RatingCount, p.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("product insert id: %w", err)
	}
	p.ID = id
	return nil
}

// CountProducts returns the catalog size.
func (s *SQLiteStore) CountProducts(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return count, nil
}

// DeleteAllProducts clears the catalog.
func (s *SQLiteStore) DeleteAllProducts(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products`)
	if err != nil {
		return 0, fmt.Errorf("delete products: %w", err)
	}
	return res.RowsAffected()
}

// UpsertReview creates or replaces the user's review of a product and
// recomputes the product's average rating in the same transaction.
func (s *SQLiteStore) UpsertReview(ctx context.Context, review *domain.Review) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin review tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO reviews (user_id, product_id, rating, comment, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, product_id) DO UPDATE SET rating = excluded.rating, comment = excluded.comment`,
		review.UserID, review.ProductID, review.Rating, review.Comment, review.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert review: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE products SET
			avg_rating = (SELECT AVG(rating) FROM reviews WHERE product_id = ?),
			rating_count = (SELECT COUNT(*) FROM reviews WHERE product_id = ?)
		 WHERE id = ?`,
		review.ProductID, review.ProductID, review.ProductID,
	)
	if err != nil {
		return fmt.Errorf("recompute product rating: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit review tx: %w", err)
	}
	return nil
}

// ListReviews returns reviews for a product, newest first.
func (s *SQLiteStore) ListReviews(ctx context.Context, productID int64) ([]*domain.Review, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.user_id, u.name, r.product_id, r.rating, r.comment, r.created_at
		 FROM reviews r LEFT JOIN users u ON u.id = r.user_id
		 WHERE r.product_id = ?
		 ORDER BY r.created_at DESC, r.id DESC`, productID)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*domain.Review
	for rows.Next() {
		var r domain.Review
		var userName, comment sql.NullString
		var createdAt int64
		if err := rows.Scan(&r.ID, &r.UserID, &userName, &r.ProductID, &r.Rating, &comment, &createdAt); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		r.UserName = userName.String
		r.Comment = comment.String
		r.CreatedAt = time.Unix(createdAt, 0)
		reviews = append(reviews, &r)
	}
	return reviews, rows.Err()
}

// GetUserReview retrieves one user's review of a product.
func (s *SQLiteStore) GetUserReview(ctx context.Context, userID, productID int64) (*domain.Review, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, product_id, rating, comment, created_at
		 FROM reviews WHERE user_id = ? AND product_id = ?`, userID, productID)

	var r domain.Review
	var comment sql.NullString
	var createdAt int64
	err := row.Scan(&r.ID, &r.UserID, &r.ProductID, &r.Rating, &comment, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan review row: %w", err)
	}
	r.Comment = comment.String
	r.CreatedAt = time.Unix(createdAt, 0)
	return &r, nil
}

// IsFavorite reports whether the user has favorited the product.
func (s *SQLiteStore) IsFavorite(ctx context.Context, userID, productID int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM favorites WHERE user_id = ? AND product_id = ?`,
		userID, productID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query favorite: %w", err)
	}
	return count > 0, nil
}

// AddFavorite marks a product as a favorite.
func (s *SQLiteStore) AddFavorite(ctx context.Context, userID, productID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO favorites (user_id, product_id, added_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id, product_id) DO NOTHING`,
		userID, productID, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("insert favorite: %w", err)
	}
	return nil
}

// RemoveFavorite unmarks a product as a favorite.
func (s *SQLiteStore) RemoveFavorite(ctx context.Context, userID, productID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE user_id = ? AND product_id = ?`, userID, productID)
	if err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	return nil
}

// ListFavoriteProducts returns the user's favorited products.
func (s *SQLiteStore) ListFavoriteProducts(ctx context.Context, userID int64) ([]*domain.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.name, p.description, p.price, p.category, p.image_url,
		        p.stock, p.avg_rating, p.rating_count, p.created_at
		 FROM favorites f JOIN products p ON p.id = f.product_id
		 WHERE f.user_id = ?
		 ORDER BY f.added_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query favorite products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// ListFavoriteIDs returns the product IDs the user has favorited.
func (s *SQLiteStore) ListFavoriteIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT product_id FROM favorites WHERE user_id = ? ORDER BY added_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query favorite ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan favorite id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddSearchEntry records a product search for the user.
func (s *SQLiteStore) AddSearchEntry(ctx context.Context, userID int64, query string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO search_history (user_id, query, searched_at) VALUES (?, ?, ?)`,
		userID, query, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("insert search entry: %w", err)
	}
	return nil
}

// ListSearchHistory returns the user's recent searches, newest first.
func (s *SQLiteStore) ListSearchHistory(ctx context.Context, userID int64, limit int) ([]*domain.SearchEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, query, searched_at FROM search_history
		 WHERE user_id = ? ORDER BY searched_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query search history: %w", err)
	}
	defer rows.Close()

	var entries []*domain.SearchEntry
	for rows.Next() {
		var e domain.SearchEntry
		var searchedAt int64
		if err := rows.Scan(&e.ID, &e.UserID, &e.Query, &searchedAt); err != nil {
			return nil, fmt.Errorf("scan search entry: %w", err)
		}
		e.SearchedAt = time.Unix(searchedAt, 0)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// CreateOrder places an order in a single transaction.
func (s *SQLiteStore) CreateOrder(ctx context.Context, userID int64, lines []domain.OrderLine, shippingAddress string) (*domain.Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyOrder
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin order tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	order := &domain.Order{
		UserID:          userID,
		OrderDate:       time.Now(),
		Status:          domain.OrderStatusPending,
		ShippingAddress: shippingAddress,
	}

	// Validate every line before any stock mutation so a failure leaves
	// stock untouched (the tx rollback guarantees it regardless).
	for _, line := range lines {
		qty := line.Quantity
		if qty < 1 {
			qty = 1
		}

		row := tx.QueryRowContext(ctx,
			`SELECT id, name, price, stock FROM products WHERE id = ?`, line.ProductID)
		var id int64
		var name string
		var price float64
		var stock int
		if err := row.Scan(&id, &name, &price, &stock); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrProductNotFound
			}
			return nil, fmt.Errorf("scan order product: %w", err)
		}
		if qty > stock {
			return nil, &StockError{ProductName: name, Available: stock}
		}

		order.Items = append(order.Items, domain.OrderItem{
			ProductID:   id,
			ProductName: name,
			Quantity:    qty,
			Price:       price,
		})
		order.TotalAmount += price * float64(qty)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO orders (user_id, order_date, status, total_amount, shipping_address)
		 VALUES (?, ?, ?, ?, ?)`,
		order.UserID, order.OrderDate.Unix(), order.Status, order.TotalAmount, nullString(order.ShippingAddress),
	)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	orderID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("order insert id: %w", err)
	}
	order.ID = orderID

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = orderID

		itemRes, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity, price) VALUES (?, ?, ?, ?)`,
			orderID, item.ProductID, item.Quantity, item.Price,
		)
		if err != nil {
			return nil, fmt.Errorf("insert order item: %w", err)
		}
		itemID, err := itemRes.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("order item insert id: %w", err)
		}
		item.ID = itemID

		if _, err := tx.ExecContext(ctx,
			`UPDATE products SET stock = stock - ? WHERE id = ?`,
			item.Quantity, item.ProductID); err != nil {
			return nil, fmt.Errorf("decrement stock: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit order tx: %w", err)
	}
	return order, nil
}

// GetOrder retrieves an order with its items.
func (s *SQLiteStore) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, order_date, status, total_amount, shipping_address
		 FROM orders WHERE id = ?`, id)

	order, err := scanOrder(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadOrderItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func scanOrder(scan func(dest ...any) error) (*domain.Order, error) {
	var o domain.Order
	var orderDate int64
	var shippingAddress sql.NullString
	if err := scan(&o.ID, &o.UserID, &orderDate, &o.Status, &o.TotalAmount, &shippingAddress); err != nil {
		return nil, err
	}
	o.OrderDate = time.Unix(orderDate, 0)
	o.ShippingAddress = shippingAddress.String
	return &o, nil
}

func (s *SQLiteStore) loadOrderItems(ctx context.Context, order *domain.Order) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT i.id, i.order_id, i.product_id, p.name, i.quantity, i.price
		 FROM order_items i LEFT JOIN products p ON p.id = i.product_id
		 WHERE i.order_id = ?
		 ORDER BY i.id ASC`, order.ID)
	if err != nil {
		return fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		var name sql.NullString
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &name, &item.Quantity, &item.Price); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		item.ProductName = name.String
		order.Items = append(order.Items, item)
	}
	return rows.Err()
}

func (s *SQLiteStore) listOrders(ctx context.Context, query string, args ...any) ([]*domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, order := range orders {
		if err := s.loadOrderItems(ctx, order); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// ListOrders returns the user's orders, newest first.
func (s *SQLiteStore) ListOrders(ctx context.Context, userID int64) ([]*domain.Order, error) {
	return s.listOrders(ctx,
		`SELECT id, user_id, order_date, status, total_amount, shipping_address
		 FROM orders WHERE user_id = ? ORDER BY order_date DESC, id DESC`, userID)
}

// ListOrdersByStatus returns the user's orders with the given status.
func (s *SQLiteStore) ListOrdersByStatus(ctx context.Context, userID int64, status string) ([]*domain.Order, error) {
	return s.listOrders(ctx,
		`SELECT id, user_id, order_date, status, total_amount, shipping_address
		 FROM orders WHERE user_id = ? AND status = ? ORDER BY order_date DESC, id DESC`,
		userID, status)
}

// ConfirmOrder moves a pending order to confirmed.
func (s *SQLiteStore) ConfirmOrder(ctx context.Context, orderID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET status = ? WHERE id = ? AND status = ?`,
		domain.OrderStatusConfirmed, orderID, domain.OrderStatusPending)
	if err != nil {
		return fmt.Errorf("confirm order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("confirm order rows: %w", err)
	}
	if affected == 0 {
		order, err := s.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		return ErrInvalidOrderState
	}
	return nil
}

// CancelOrder cancels a pending or confirmed order and restores stock.
func (s *SQLiteStore) CancelOrder(ctx context.Context, orderID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cancel tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = ?`, orderID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("scan order status: %w", err)
	}
	if status != domain.OrderStatusPending && status != domain.OrderStatusConfirmed {
		return ErrInvalidOrderState
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE products SET stock = stock + (
			SELECT quantity FROM order_items WHERE order_id = ? AND product_id = products.id
		 ) WHERE id IN (SELECT product_id FROM order_items WHERE order_id = ?)`,
		orderID, orderID); err != nil {
		return fmt.Errorf("restore stock: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = ? WHERE id = ?`,
		domain.OrderStatusCancelled, orderID); err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cancel tx: %w", err)
	}
	return nil
}

// AddChatRecord appends a chat exchange to the user's history.
func (s *SQLiteStore) AddChatRecord(ctx context.Context, record *domain.ChatRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_history (user_id, message, response, created_at) VALUES (?, ?, ?, ?)`,
		record.UserID, record.Message, record.Response, record.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert chat record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("chat record insert id: %w", err)
	}
	record.ID = id
	return nil
}

// ListChatHistory returns the user's most recent chat exchanges, oldest first.
func (s *SQLiteStore) ListChatHistory(ctx context.Context, userID int64, limit int) ([]*domain.ChatRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, message, response, created_at FROM chat_history
		 WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query chat history: %w", err)
	}
	defer rows.Close()

	var records []*domain.ChatRecord
	for rows.Next() {
		var rec domain.ChatRecord
		var createdAt int64
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Message, &rec.Response, &createdAt); err != nil {
			return nil, fmt.Errorf("scan chat record: %w", err)
		}
		rec.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to oldest-first for presentation.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// ClearChatHistory removes the user's chat history.
func (s *SQLiteStore) ClearChatHistory(ctx context.Context, userID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chat_history WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete chat history: %w", err)
	}
	return res.RowsAffected()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
