package http

import (
	"bytes"
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/ordercast-server/internal/auth"
	"github.com/vovakirdan/ordercast-server/internal/config"
	"github.com/vovakirdan/ordercast-server/internal/core"
	"github.com/vovakirdan/ordercast-server/internal/proto"
	"github.com/vovakirdan/ordercast-server/internal/service/orders"
	"github.com/vovakirdan/ordercast-server/internal/store/sqlite"
)

const testOrigin = "https://admin.example.com"

type testEnv struct {
	server *httptest.Server
	auth   *auth.Service
	hub    *core.Hub
}

func startTestServer(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", sqlite.ApplySchema)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	logger := zerolog.Nop()
	hub := core.NewHub(core.WithAuthorizer(core.PrincipalAuthorizer), core.WithLogger(&logger))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	})
	orderService := orders.NewService(st, hub, &logger)

	cfg := config.Default()
	cfg.AllowedOrigins = []string{testOrigin}

	server := NewServer(hub, authService, orderService, &cfg, &logger, nil)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{server: ts, auth: authService, hub: hub}
}

func (e *testEnv) register(t *testing.T, username string, storeIDs ...string) string {
	t.Helper()
	token, err := e.auth.Register(context.Background(), username, "password123", storeIDs)
	require.NoError(t, err)
	return token
}

// superAdminToken provisions a superadmin the way the bootstrap path does and logs it in.
func (e *testEnv) superAdminToken(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	_, err := e.auth.EnsureSuperAdmin(ctx, "root", "password123")
	require.NoError(t, err)
	token, err := e.auth.Login(ctx, "root", "password123")
	require.NoError(t, err)
	return token
}

func (e *testEnv) wsURL(token string) string {
	u := strings.Replace(e.server.URL, "http", "ws", 1) + "/ws"
	if token != "" {
		u += "?token=" + token
	}
	return u
}

func (e *testEnv) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, e.wsURL(token), &websocket.DialOptions{
		HTTPHeader: stdhttp.Header{"Origin": []string{testOrigin}},
	})
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func (e *testEnv) postJSON(t *testing.T, path, token string, body any) *stdhttp.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := stdhttp.NewRequest(stdhttp.MethodPost, e.server.URL+path, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func sendJoin(t *testing.T, conn *websocket.Conn, storeID string) {
	t.Helper()
	data, err := json.Marshal(proto.StoreData{StoreID: storeID})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeJoinStore, Data: data}))
}

func readFrame(t *testing.T, conn *websocket.Conn) proto.Frame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var frame proto.Frame
	require.NoError(t, wsjson.Read(ctx, conn, &frame))
	return frame
}

// expectSilence fails if a frame arrives within a short window.
func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var frame proto.Frame
	if err := wsjson.Read(ctx, conn, &frame); err == nil {
		t.Fatalf("unexpected frame: %+v", frame)
	}
}

func orderBody(customer string) map[string]any {
	return map[string]any{
		"customerName": customer,
		"items": []map[string]any{
			{"name": "Burger", "quantity": 2, "price": 5.5},
			{"name": "Fries", "quantity": 1, "price": 2.25},
		},
	}
}
