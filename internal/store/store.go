package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// User is an admin account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	StoreIDs     []string // stores the admin may watch
	SuperAdmin   bool
	CreatedAt    time.Time
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

// OrderStatusPending is the state of every newly placed order.
const OrderStatusPending OrderStatus = "pending"

// OrderItem is one cart line.
type OrderItem struct {
	Name           string `json:"name" bson:"name"`
	Quantity       int    `json:"quantity" bson:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents" bson:"unit_price_cents"`
}

// Order is a persisted store order.
type Order struct {
	ID           string
	StoreID      string
	Number       int64 // sequential per store, assigned by the store
	CustomerName string
	Items        []OrderItem
	TotalCents   int64
	Status       OrderStatus
	CreatedAt    time.Time
}

// UserStore handles admin persistence.
type UserStore interface {
	// CreateUser creates an admin with hashed password and permitted stores.
	CreateUser(ctx context.Context, username, passwordHash string, storeIDs []string, superAdmin bool) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// OrderStore handles order persistence.
type OrderStore interface {
	// CreateOrder saves the order and assigns its per-store Number.
	CreateOrder(ctx context.Context, order *Order) (*Order, error)

	// GetOrder retrieves an order by store and number.
	GetOrder(ctx context.Context, storeID string, number int64) (*Order, error)

	// ListOrders returns the newest orders of a store first.
	ListOrders(ctx context.Context, storeID string, limit int) ([]Order, error)
}

// Store combines all persistence interfaces.
type Store interface {
	UserStore
	OrderStore
	Close() error
}
