package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/ordercast-server/internal/store"
)

// Schema creates every table the store uses.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	super_admin   BOOLEAN NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS user_stores (
	user_id  INTEGER NOT NULL,
	store_id TEXT NOT NULL,
	PRIMARY KEY (user_id, store_id),
	FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS orders (
	id            TEXT PRIMARY KEY,
	store_id      TEXT NOT NULL,
	number        INTEGER NOT NULL,
	customer_name TEXT NOT NULL,
	items         TEXT NOT NULL,
	total_cents   INTEGER NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	created_at    DATETIME NOT NULL,
	UNIQUE (store_id, number)
);

CREATE INDEX IF NOT EXISTS idx_orders_store ON orders(store_id, number DESC);
`

// ApplySchema runs Schema on db.
func ApplySchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens the database at dbPath and applies the schema.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, ApplySchema)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply schema on an in-memory database.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser creates an admin and records the stores they may watch.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string, storeIDs []string, superAdmin bool) (*store.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, super_admin) VALUES (?, ?, ?)`,
		username, passwordHash, superAdmin,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	for _, storeID := range storeIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO user_stores (user_id, store_id) VALUES (?, ?)`,
			id, storeID,
		); err != nil {
			return nil, fmt.Errorf("insert user store: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit user: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	return s.getUser(ctx, `WHERE id = ?`, id)
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	return s.getUser(ctx, `WHERE username = ?`, username)
}

func (s *SQLiteStore) getUser(ctx context.Context, where string, arg any) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, super_admin, created_at
		FROM users
	` + where
	var user store.User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.SuperAdmin,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT store_id FROM user_stores WHERE user_id = ? ORDER BY store_id`, user.ID)
	if err != nil {
		return nil, fmt.Errorf("query user stores: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var storeID string
		if err := rows.Scan(&storeID); err != nil {
			return nil, fmt.Errorf("scan user store: %w", err)
		}
		user.StoreIDs = append(user.StoreIDs, storeID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user stores: %w", err)
	}

	return &user, nil
}

// ==== OrderStore implementation ====

// CreateOrder saves the order, assigning the next number for its store.
func (s *SQLiteStore) CreateOrder(ctx context.Context, order *store.Order) (*store.Order, error) {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var number int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(number), 0) + 1 FROM orders WHERE store_id = ?`, order.StoreID,
	).Scan(&number); err != nil {
		return nil, fmt.Errorf("next order number: %w", err)
	}

	status := order.Status
	if status == "" {
		status = store.OrderStatusPending
	}
	createdAt := order.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO orders (id, store_id, number, customer_name, items, total_cents, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.StoreID, number, order.CustomerName, string(items), order.TotalCents, status, createdAt.UTC(),
	); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit order: %w", err)
	}

	saved := *order
	saved.Number = number
	saved.Status = status
	saved.CreatedAt = createdAt.UTC()
	return &saved, nil
}

// GetOrder retrieves an order by store and number.
func (s *SQLiteStore) GetOrder(ctx context.Context, storeID string, number int64) (*store.Order, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, store_id, number, customer_name, items, total_cents, status, created_at
		FROM orders
		WHERE store_id = ? AND number = ?`, storeID, number)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("order: %w", store.ErrNotFound)
		}
		return nil, err
	}
	return order, nil
}

// ListOrders returns the newest orders of a store first.
func (s *SQLiteStore) ListOrders(ctx context.Context, storeID string, limit int) ([]store.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, store_id, number, customer_name, items, total_cents, status, created_at
		FROM orders
		WHERE store_id = ?
		ORDER BY number DESC
		LIMIT ?`, storeID, limit)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]store.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (*store.Order, error) {
	var (
		order store.Order
		items string
	)
	if err := row.Scan(
		&order.ID,
		&order.StoreID,
		&order.Number,
		&order.CustomerName,
		&items,
		&order.TotalCents,
		&order.Status,
		&order.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	if err := json.Unmarshal([]byte(items), &order.Items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	return &order, nil
}
