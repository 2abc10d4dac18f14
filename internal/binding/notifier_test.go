package binding

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestTerminalNotifierPrintsTitleAndDescription(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer

	NewTerminalNotifier(&out).Show("New order received", "Order #7 from Jane", KindSuccess)

	assert.Equal(t, "New order received  Order #7 from Jane\n", out.String())
}

func TestLogNotifierWritesKind(t *testing.T) {
	var out bytes.Buffer
	logger := zerolog.New(&out)

	LogNotifier{Log: &logger}.Show("New order received", "Order #7 from Jane", KindSuccess)

	assert.Contains(t, out.String(), `"kind":"success"`)
	assert.Contains(t, out.String(), `"message":"New order received"`)
	assert.Contains(t, out.String(), "Order #7 from Jane")
}
