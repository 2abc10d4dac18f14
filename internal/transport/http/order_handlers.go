package http

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/ordercast-server/internal/service/orders"
	"github.com/vovakirdan/ordercast-server/internal/store"
)

// OrderHandlers provides HTTP handlers for store orders.
type OrderHandlers struct {
	orders *orders.Service
	log    *zerolog.Logger
}

// NewOrderHandlers creates a new order handlers instance.
func NewOrderHandlers(svc *orders.Service, logger *zerolog.Logger) *OrderHandlers {
	return &OrderHandlers{
		orders: svc,
		log:    logger,
	}
}

// OrderItemRequest is one cart line; price is a decimal amount.
type OrderItemRequest struct {
	Name     string  `json:"name" binding:"required,max=128"`
	Quantity int     `json:"quantity" binding:"required,min=1"`
	Price    float64 `json:"price" binding:"min=0"`
}

// CreateOrderRequest represents the checkout request body.
type CreateOrderRequest struct {
	CustomerName string             `json:"customerName" binding:"required,max=128"`
	Items        []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// OrderItemResponse is one line of an order in API responses.
type OrderItemResponse struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// OrderResponse represents an order in API responses.
type OrderResponse struct {
	ID           string              `json:"id"`
	StoreID      string              `json:"storeId"`
	OrderNumber  int64               `json:"orderNumber"`
	CustomerName string              `json:"customerName"`
	Items        []OrderItemResponse `json:"items"`
	Summary      string              `json:"summary"`
	Total        float64             `json:"total"`
	Status       string              `json:"status"`
	CreatedAt    string              `json:"createdAt"`
}

// CreateOrder handles checkout for a store and notifies its watchers.
// POST /api/stores/:storeId/orders
func (h *OrderHandlers) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create order request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	items := make([]store.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, store.OrderItem{
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitPriceCents: int64(math.Round(item.Price * 100)),
		})
	}

	order, err := h.orders.Create(c.Request.Context(), orders.CreateInput{
		StoreID:      c.Param("storeId"),
		CustomerName: req.CustomerName,
		Items:        items,
	})
	if err != nil {
		if errors.Is(err, orders.ErrInvalidOrder) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		h.log.Error().Err(err).Str("store_id", c.Param("storeId")).Msg("failed to create order")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, toOrderResponse(order))
}

// ListOrders returns the newest orders of a store.
// GET /api/stores/:storeId/orders?limit=50
func (h *OrderHandlers) ListOrders(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be between 1 and 500"})
			return
		}
		limit = parsed
	}

	list, err := h.orders.List(c.Request.Context(), c.Param("storeId"), limit)
	if err != nil {
		h.log.Error().Err(err).Str("store_id", c.Param("storeId")).Msg("failed to list orders")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	resp := make([]OrderResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toOrderResponse(&list[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// GetOrder returns one order by its per-store number.
// GET /api/stores/:storeId/orders/:number
func (h *OrderHandlers) GetOrder(c *gin.Context) {
	number, err := strconv.ParseInt(c.Param("number"), 10, 64)
	if err != nil || number <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid order number"})
		return
	}

	order, err := h.orders.Get(c.Request.Context(), c.Param("storeId"), number)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "order not found"})
			return
		}
		h.log.Error().Err(err).Str("store_id", c.Param("storeId")).Int64("order_number", number).Msg("failed to get order")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}

func toOrderResponse(o *store.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemResponse{
			Name:     item.Name,
			Quantity: item.Quantity,
			Price:    float64(item.UnitPriceCents) / 100,
		})
	}
	return OrderResponse{
		ID:           o.ID,
		StoreID:      o.StoreID,
		OrderNumber:  o.Number,
		CustomerName: o.CustomerName,
		Items:        items,
		Summary:      orders.FormatItems(o.Items),
		Total:        float64(o.TotalCents) / 100,
		Status:       string(o.Status),
		CreatedAt:    o.CreatedAt.Format(time.RFC3339),
	}
}
