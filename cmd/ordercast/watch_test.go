package main

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/ordercast-server/internal/binding"
)

func TestWebsocketURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:8080":         "ws://localhost:8080/ws",
		"https://orders.example.com/":   "wss://orders.example.com/ws",
		"https://example.com/ordercast": "wss://example.com/ordercast/ws",
	}
	for in, want := range cases {
		got, err := websocketURL(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}

func TestNewNotifierQuietLogs(t *testing.T) {
	var out bytes.Buffer
	logger := zerolog.Nop()

	_, isLog := newNotifier(watchOptions{quiet: true}, &out, &logger).(binding.LogNotifier)
	assert.True(t, isLog)

	_, isTerminal := newNotifier(watchOptions{}, &out, &logger).(*binding.TerminalNotifier)
	assert.True(t, isTerminal)
}
