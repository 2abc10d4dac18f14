package relay

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/ordercast-server/internal/core"
)

func TestDecodeRejectsForeignChannels(t *testing.T) {
	r := New(nil, "ordercast:orders:", nil, nil)

	_, _, err := r.decode("other:store-1", `{"storeId":"store-1"}`)
	assert.Error(t, err)

	_, _, err = r.decode("ordercast:orders:store-1", `{"storeId":"store-2"}`)
	assert.Error(t, err, "payload store id must match the channel")

	_, _, err = r.decode("ordercast:orders:store-1", `not json`)
	assert.Error(t, err)
}

func TestEncodeDecodeKeepsStoreScope(t *testing.T) {
	r := New(nil, "ordercast:orders:", nil, nil)
	created := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

	payload, err := encode("store-42", &core.OrderNotification{
		OrderNumber:  "7",
		CustomerName: "Jane",
		StoreID:      "store-42",
		TotalCents:   1150,
		CreatedAt:    created,
	})
	require.NoError(t, err)

	storeID, order, err := r.decode(r.channel("store-42"), payload)
	require.NoError(t, err)
	assert.Equal(t, "store-42", storeID)
	assert.Equal(t, "7", order.OrderNumber)
	assert.Equal(t, "Jane", order.CustomerName)
	assert.True(t, created.Equal(order.CreatedAt))

	_, err = encode("store-42", nil)
	assert.Error(t, err)
}

type captureLocal struct {
	got chan *core.OrderNotification
}

func (c *captureLocal) Broadcast(_ context.Context, _ string, order *core.OrderNotification) error {
	c.got <- order
	return nil
}

func TestRelayRoundTripThroughRedis(t *testing.T) {
	addr := os.Getenv("ORDERCAST_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ORDERCAST_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	local := &captureLocal{got: make(chan *core.OrderNotification, 1)}
	r := New(client, "ordercast:test:"+t.Name()+":", local, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	// PSubscribe is asynchronous; publish until the subscriber sees one.
	require.Eventually(t, func() bool {
		_ = r.Broadcast(ctx, "store-1", &core.OrderNotification{OrderNumber: "3", CustomerName: "Jane"})
		select {
		case order := <-local.got:
			return order.OrderNumber == "3" && order.StoreID == "store-1"
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 3*time.Second, 10*time.Millisecond)
}
