package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/ordercast-server/internal/auth"
	"github.com/vovakirdan/ordercast-server/internal/config"
	"github.com/vovakirdan/ordercast-server/internal/core"
	"github.com/vovakirdan/ordercast-server/internal/relay"
	"github.com/vovakirdan/ordercast-server/internal/service/orders"
	"github.com/vovakirdan/ordercast-server/internal/store"
	"github.com/vovakirdan/ordercast-server/internal/store/mongo"
	"github.com/vovakirdan/ordercast-server/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/ordercast-server/internal/transport/http"
)

// App wires together core, storage and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	relay           *relay.Relay
	redis           *redis.Client
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application and installs its hub as the process-wide channel.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := OpenStore(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database initialized")

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	}
	authService := auth.NewService(st, jwtConfig)

	if admin := cfg.BootstrapAdmin; admin.Username != "" {
		created, err := authService.EnsureSuperAdmin(ctx, admin.Username, admin.Password)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("bootstrap superadmin: %w", err)
		}
		if created {
			logger.Info().Str("username", admin.Username).Msg("bootstrap superadmin created")
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	hub := core.NewHub(
		core.WithAuthorizer(core.PrincipalAuthorizer),
		core.WithMetrics(core.NewMetrics(reg)),
		core.WithLogger(logger),
	)
	if err := core.Initialize(hub); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("init order channel: %w", err)
	}

	a := &App{
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		log:             logger,
	}

	var broadcaster orders.Broadcaster = hub
	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.cleanup()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.relay = relay.New(a.redis, cfg.Redis.ChannelPrefix, hub, logger)
		broadcaster = a.relay
		logger.Info().Str("redis", cfg.Redis.Addr).Msg("order relay enabled")
	}

	orderService := orders.NewService(st, broadcaster, logger)
	a.server = transporthttp.NewServer(hub, authService, orderService, cfg, logger, reg)

	return a, nil
}

// OpenStore opens the order and user store selected by cfg.Driver.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		return mongo.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case config.DriverSQLite, "":
		return sqlite.New(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// Run starts the hub, the relay and the HTTP server, and blocks until context
// cancellation or a fatal error.
func (a *App) Run(ctx context.Context) error {
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go a.hub.Run(hubCtx)

	serverErr := make(chan error, 2)

	if a.relay != nil {
		go func() {
			if err := a.relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				serverErr <- fmt.Errorf("order relay: %w", err)
			}
		}()
	}

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		err := a.server.Shutdown(shutdownCtx)
		stopHub()
		a.cleanup()
		return err
	}
}

// cleanup releases the process-wide channel, the store and the redis client.
func (a *App) cleanup() {
	core.Teardown()
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close redis client")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
