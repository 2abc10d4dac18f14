package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/ordercast-server/internal/auth"
	"github.com/vovakirdan/ordercast-server/internal/config"
	"github.com/vovakirdan/ordercast-server/internal/core"
	"github.com/vovakirdan/ordercast-server/internal/service/orders"
)

// NewServer builds the HTTP server: health, metrics, websocket and REST routes.
// reg may be nil, in which case a private registry is used.
//
// /ws is served by the mux directly: gin's response writer wrapper breaks the
// hijacked websocket stream.
func NewServer(
	hub *core.Hub,
	authService *auth.Service,
	orderService *orders.Service,
	cfg *config.Config,
	logger *zerolog.Logger,
	reg *prometheus.Registry,
) *http.Server {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	origins := NewOriginPolicy(cfg.AllowedOrigins)
	metrics := newHTTPMetrics(reg)

	router.Use(gin.Recovery(), LoggerMiddleware(logger), metrics.middleware())

	router.GET("/health", healthHandler(hub))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	apiHandlers := NewAPIHandlers(authService, logger)
	orderHandlers := NewOrderHandlers(orderService, logger)

	api := router.Group("/api", CORSMiddleware(origins))
	api.OPTIONS("/*path", func(c *gin.Context) {})
	api.POST("/login", apiHandlers.Login)
	api.POST("/stores/:storeId/orders", orderHandlers.CreateOrder)

	protected := api.Group("", AuthMiddleware(authService, logger))
	protected.POST("/register", RequireSuperAdmin(), apiHandlers.Register)
	protected.GET("/stores/:storeId/orders", RequireStoreAccess(), orderHandlers.ListOrders)
	protected.GET("/stores/:storeId/orders/:number", RequireStoreAccess(), orderHandlers.GetOrder)

	mux := http.NewServeMux()
	mux.Handle("/ws", NewWSHandler(hub, authService, origins, WSOptions{
		MaxMessageBytes: cfg.MaxMessageBytes,
		ClientBuffer:    cfg.ClientBuffer,
		RateLimit:       cfg.WSRateLimit,
	}, logger))
	mux.Handle("/", router)

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// HealthResponse reports liveness and hub occupancy.
type HealthResponse struct {
	Status      string `json:"status"`
	Rooms       int    `json:"rooms"`
	Connections int    `json:"connections"`
}

func healthHandler(hub *core.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		stats, err := hub.Stats(ctx)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
			return
		}
		c.JSON(http.StatusOK, HealthResponse{Status: "ok", Rooms: stats.Rooms, Connections: stats.Clients})
	}
}
