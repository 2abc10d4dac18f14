package core

import (
	"context"
	"strconv"
	"testing"
)

func benchmarkRoomBroadcast(b *testing.B, recipients int) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	clients := make([]*Client, 0, recipients)
	for i := 0; i < recipients; i++ {
		c := NewClient("c"+strconv.Itoa(i), Principal{}, 64)
		_ = hub.RegisterClient(c)
		c.Commands <- &Command{Kind: CommandJoinStore, StoreID: "bench"}
		<-c.Events // join ack
		clients = append(clients, c)
	}

	// Drain events for all but the first recipient to avoid queue backpressure.
	target := clients[0]
	for _, c := range clients[1:] {
		go func(cl *Client) {
			for range cl.Events {
			}
		}(c)
	}

	order := &OrderNotification{OrderNumber: "1", CustomerName: "bench", StoreID: "bench"}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if err := hub.Broadcast(ctx, "bench", order); err != nil {
			b.Fatal(err)
		}
		<-target.Events
	}
}

func BenchmarkRoomBroadcast_10(b *testing.B)  { benchmarkRoomBroadcast(b, 10) }
func BenchmarkRoomBroadcast_100(b *testing.B) { benchmarkRoomBroadcast(b, 100) }
func BenchmarkRoomBroadcast_500(b *testing.B) { benchmarkRoomBroadcast(b, 500) }
