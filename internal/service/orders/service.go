package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/ordercast-server/internal/core"
	"github.com/vovakirdan/ordercast-server/internal/store"
	"github.com/vovakirdan/ordercast-server/internal/utils"
)

// ErrInvalidOrder is returned when an order fails validation.
var ErrInvalidOrder = errors.New("invalid order")

// Broadcaster delivers new-order notifications to the store's watchers.
type Broadcaster interface {
	Broadcast(ctx context.Context, storeID string, order *core.OrderNotification) error
}

// CreateInput is a cart submitted for a store.
type CreateInput struct {
	StoreID      string
	CustomerName string
	Items        []store.OrderItem
}

// Service creates and lists orders.
type Service struct {
	store       store.OrderStore
	broadcaster Broadcaster
	log         *zerolog.Logger
	now         func() time.Time
}

// NewService creates an order service. broadcaster may be nil.
func NewService(st store.OrderStore, broadcaster Broadcaster, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		store:       st,
		broadcaster: broadcaster,
		log:         logger,
		now:         time.Now,
	}
}

// Create validates and prices the cart, saves the order and then notifies the
// store room. A failed notification does not fail the order: watchers can always
// re-fetch the list.
func (s *Service) Create(ctx context.Context, in CreateInput) (*store.Order, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	order := &store.Order{
		ID:           utils.NewID(),
		StoreID:      in.StoreID,
		CustomerName: strings.TrimSpace(in.CustomerName),
		Items:        in.Items,
		TotalCents:   CartTotal(in.Items),
		Status:       store.OrderStatusPending,
		CreatedAt:    s.now(),
	}

	saved, err := s.store.CreateOrder(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.log.Info().
		Str("store_id", saved.StoreID).
		Int64("order_number", saved.Number).
		Str("total", FormatPrice(saved.TotalCents)).
		Msg("order created")

	if s.broadcaster != nil {
		if err := s.broadcaster.Broadcast(ctx, saved.StoreID, Notification(saved)); err != nil {
			s.log.Warn().Err(err).
				Str("store_id", saved.StoreID).
				Int64("order_number", saved.Number).
				Msg("failed to broadcast new order")
		}
	}

	return saved, nil
}

// List returns the newest orders of a store.
func (s *Service) List(ctx context.Context, storeID string, limit int) ([]store.Order, error) {
	if storeID == "" {
		return nil, fmt.Errorf("%w: store id is required", ErrInvalidOrder)
	}
	orders, err := s.store.ListOrders(ctx, storeID, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// Get returns one order of a store by its number.
func (s *Service) Get(ctx context.Context, storeID string, number int64) (*store.Order, error) {
	if storeID == "" || number <= 0 {
		return nil, fmt.Errorf("%w: store id and order number are required", ErrInvalidOrder)
	}
	order, err := s.store.GetOrder(ctx, storeID, number)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// Notification builds the new-order event payload for a saved order.
func Notification(o *store.Order) *core.OrderNotification {
	lines := make([]core.OrderLine, 0, len(o.Items))
	for _, item := range o.Items {
		lines = append(lines, core.OrderLine{Name: item.Name, Quantity: item.Quantity})
	}
	return &core.OrderNotification{
		OrderID:      o.ID,
		OrderNumber:  strconv.FormatInt(o.Number, 10),
		CustomerName: o.CustomerName,
		StoreID:      o.StoreID,
		TotalCents:   o.TotalCents,
		Items:        lines,
		Summary:      FormatItems(o.Items),
		CreatedAt:    o.CreatedAt,
	}
}

func validate(in CreateInput) error {
	if strings.TrimSpace(in.StoreID) == "" {
		return fmt.Errorf("%w: store id is required", ErrInvalidOrder)
	}
	if strings.TrimSpace(in.CustomerName) == "" {
		return fmt.Errorf("%w: customer name is required", ErrInvalidOrder)
	}
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: cart is empty", ErrInvalidOrder)
	}
	for _, item := range in.Items {
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("%w: item name is required", ErrInvalidOrder)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: quantity of %q must be positive", ErrInvalidOrder, item.Name)
		}
		if item.UnitPriceCents < 0 {
			return fmt.Errorf("%w: price of %q must not be negative", ErrInvalidOrder, item.Name)
		}
	}
	return nil
}
