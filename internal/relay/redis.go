// Package relay fans new-order events out across processes over Redis pub/sub.
// Every process publishes into Redis and forwards what it receives into its own hub,
// so an order created anywhere reaches admins connected to any process.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/ordercast-server/internal/core"
)

// LocalBroadcaster is the in-process side of the relay, normally *core.Hub.
type LocalBroadcaster interface {
	Broadcast(ctx context.Context, storeID string, order *core.OrderNotification) error
}

// message is the Redis payload for one new-order event.
type message struct {
	OrderID      string           `json:"orderId"`
	OrderNumber  string           `json:"orderNumber"`
	CustomerName string           `json:"customerName"`
	StoreID      string           `json:"storeId"`
	TotalCents   int64            `json:"totalCents"`
	Items        []core.OrderLine `json:"items,omitempty"`
	Summary      string           `json:"summary,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
}

// Relay publishes to and subscribes from Redis channels named prefix+storeID.
type Relay struct {
	client *redis.Client
	prefix string
	local  LocalBroadcaster
	log    *zerolog.Logger
}

// New creates a relay forwarding received events into local.
func New(client *redis.Client, prefix string, local LocalBroadcaster, logger *zerolog.Logger) *Relay {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Relay{client: client, prefix: prefix, local: local, log: logger}
}

// Broadcast publishes the event; delivery to local watchers happens in Run.
func (r *Relay) Broadcast(ctx context.Context, storeID string, order *core.OrderNotification) error {
	payload, err := encode(storeID, order)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel(storeID), payload).Err(); err != nil {
		return fmt.Errorf("relay publish: %w", err)
	}
	return nil
}

// Run subscribes to every store channel and forwards events until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.PSubscribe(ctx, r.prefix+"*")
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("relay subscribe: %w", err)
	}
	r.log.Info().Str("pattern", r.prefix+"*").Msg("relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			storeID, order, err := r.decode(msg.Channel, msg.Payload)
			if err != nil {
				r.log.Warn().Err(err).Str("channel", msg.Channel).Msg("drop relay message")
				continue
			}
			if err := r.local.Broadcast(ctx, storeID, order); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				r.log.Warn().Err(err).Str("store_id", storeID).Msg("relay local broadcast")
			}
		}
	}
}

func (r *Relay) channel(storeID string) string {
	return r.prefix + storeID
}

func encode(storeID string, o *core.OrderNotification) (string, error) {
	if o == nil {
		return "", errors.New("relay: nil order")
	}
	data, err := json.Marshal(message{
		OrderID:      o.OrderID,
		OrderNumber:  o.OrderNumber,
		CustomerName: o.CustomerName,
		StoreID:      storeID,
		TotalCents:   o.TotalCents,
		Items:        o.Items,
		Summary:      o.Summary,
		CreatedAt:    o.CreatedAt,
	})
	if err != nil {
		return "", fmt.Errorf("relay encode: %w", err)
	}
	return string(data), nil
}

func (r *Relay) decode(channel, payload string) (string, *core.OrderNotification, error) {
	storeID, ok := strings.CutPrefix(channel, r.prefix)
	if !ok || storeID == "" {
		return "", nil, fmt.Errorf("unexpected channel %q", channel)
	}
	var m message
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return "", nil, fmt.Errorf("relay decode: %w", err)
	}
	if m.StoreID != storeID {
		return "", nil, fmt.Errorf("store id mismatch: channel %q payload %q", storeID, m.StoreID)
	}
	return storeID, &core.OrderNotification{
		OrderID:      m.OrderID,
		OrderNumber:  m.OrderNumber,
		CustomerName: m.CustomerName,
		StoreID:      m.StoreID,
		TotalCents:   m.TotalCents,
		Items:        m.Items,
		Summary:      m.Summary,
		CreatedAt:    m.CreatedAt,
	}, nil
}
