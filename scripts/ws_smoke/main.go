package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/ordercast-server/internal/proto"
)

// Smoke check against a running server: join a store room over the websocket,
// place an order through the REST API and wait for the new-order event.
func main() {
	base := flag.String("url", "http://localhost:8080", "server base URL")
	token := flag.String("token", "", "admin JWT allowed to watch the store")
	store := flag.String("store", "store-1", "store id")
	customer := flag.String("customer", "Smoke Test", "customer name on the order")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	if *token == "" {
		log.Fatal("-token is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	wsURL := strings.Replace(*base, "http", "ws", 1) + "/ws?token=" + *token
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "smoke done")

	joinPayload, _ := json.Marshal(proto.StoreData{StoreID: *store})
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeJoinStore, Data: joinPayload}); err != nil {
		log.Fatalf("send join: %v", err)
	}
	expect(ctx, conn, proto.EventJoinedName)

	order, _ := json.Marshal(map[string]any{
		"customerName": *customer,
		"items":        []map[string]any{{"name": "Smoke Burger", "quantity": 1, "price": 9.99}},
	})
	resp, err := http.Post(*base+"/api/stores/"+*store+"/orders", "application/json", bytes.NewReader(order))
	if err != nil {
		log.Fatalf("place order: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		log.Fatalf("place order: %s", resp.Status)
	}

	frame := expect(ctx, conn, proto.EventNewOrderName)
	var ev proto.EventNewOrder
	if err := json.Unmarshal(frame.Data, &ev); err != nil {
		log.Fatalf("decode new-order: %v", err)
	}
	fmt.Printf("order #%s from %s delivered to store %s\n", ev.OrderNumber, ev.CustomerName, ev.StoreID)
}

func expect(ctx context.Context, conn *websocket.Conn, event string) proto.Frame {
	for {
		var frame proto.Frame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			log.Fatalf("waiting for %s: %v", event, err)
		}
		if frame.Type == proto.OutboundTypeError && frame.Error != nil {
			log.Fatalf("server error: %s: %s", frame.Error.Code, frame.Error.Msg)
		}
		if frame.Event == event {
			return frame
		}
	}
}
