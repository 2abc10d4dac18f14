package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/ordercast-server/internal/binding"
	"github.com/vovakirdan/ordercast-server/internal/log"
	transporthttp "github.com/vovakirdan/ordercast-server/internal/transport/http"
)

func newWatchCmd(logLevel *string) *cobra.Command {
	var (
		serverURL string
		token     string
		storeID   string
		origin    string
		quiet     bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a store for new orders in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if token == "" {
				token = os.Getenv("ORDERCAST_TOKEN")
			}
			if token == "" {
				return errors.New("a token is required (--token or ORDERCAST_TOKEN)")
			}
			if storeID == "" {
				return errors.New("--store is required")
			}

			level := *logLevel
			if level == "" {
				level = "warn"
				if quiet {
					level = "info"
				}
			}
			logger := log.NewWithWriter(level, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return watch(ctx, cmd, watchOptions{
				serverURL: strings.TrimRight(serverURL, "/"),
				token:     token,
				storeID:   storeID,
				origin:    origin,
				quiet:     quiet,
			}, logger)
		},
	}
	cmd.Flags().StringVar(&serverURL, "url", "http://localhost:8080", "server base URL")
	cmd.Flags().StringVar(&token, "token", "", "admin JWT (defaults to $ORDERCAST_TOKEN)")
	cmd.Flags().StringVar(&storeID, "store", "", "store id to watch")
	cmd.Flags().StringVar(&origin, "origin", "", "Origin header for the websocket handshake")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "log notifications instead of printing them")
	return cmd
}

type watchOptions struct {
	serverURL string
	token     string
	storeID   string
	origin    string
	quiet     bool
}

func watch(ctx context.Context, cmd *cobra.Command, opts watchOptions, logger *zerolog.Logger) error {
	wsURL, err := websocketURL(opts.serverURL)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	client := binding.NewClient(wsURL, opts.token, binding.WithOrigin(opts.origin), binding.WithLogger(logger))
	cache, err := binding.NewQueryCache(16)
	if err != nil {
		return err
	}

	key := binding.OrdersQueryKey
	load := func(ctx context.Context) (any, error) {
		return fetchOrders(ctx, opts)
	}
	refresh := func() {
		v, err := cache.Fetch(ctx, key, load)
		if err != nil {
			logger.Warn().Err(err).Msg("refetch orders")
			return
		}
		list := v.([]transporthttp.OrderResponse)
		fmt.Fprintf(out, "%d orders on record for %s\n", len(list), opts.storeID)
	}
	refresh()

	b := binding.New(client, refetchOnInvalidate{cache: cache, refetch: refresh}, newNotifier(opts, out, logger), logger)
	defer b.Close()
	if err := b.Bind(ctx, opts.storeID); err != nil {
		return err
	}

	fmt.Fprintf(out, "Watching store %s on %s. Ctrl+C to exit.\n", opts.storeID, opts.serverURL)
	return client.Run(ctx)
}

func newNotifier(opts watchOptions, out io.Writer, logger *zerolog.Logger) binding.Notifier {
	if opts.quiet {
		return binding.LogNotifier{Log: logger}
	}
	return binding.NewTerminalNotifier(out)
}

// refetchOnInvalidate reloads the order list whenever it is marked stale.
type refetchOnInvalidate struct {
	cache   *binding.QueryCache
	refetch func()
}

func (r refetchOnInvalidate) Invalidate(keys ...string) int {
	n := r.cache.Invalidate(keys...)
	if n > 0 {
		go r.refetch()
	}
	return n
}

func websocketURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

func fetchOrders(ctx context.Context, opts watchOptions) ([]transporthttp.OrderResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	endpoint := opts.serverURL + "/api/stores/" + url.PathEscape(opts.storeID) + "/orders"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+opts.token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch orders: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch orders: %s", resp.Status)
	}

	var list []transporthttp.OrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return list, nil
}
