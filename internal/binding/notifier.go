package binding

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// Kind is the severity of a notification.
type Kind int

const (
	KindInfo Kind = iota
	KindSuccess
	KindWarning
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindWarning:
		return "warning"
	case KindError:
		return "error"
	default:
		return "info"
	}
}

// Notifier shows a transient notification to the operator.
type Notifier interface {
	Show(title, description string, kind Kind)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(title, description string, kind Kind)

// Show calls f.
func (f NotifierFunc) Show(title, description string, kind Kind) { f(title, description, kind) }

// TerminalNotifier prints colored notifications to a terminal.
type TerminalNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

// NewTerminalNotifier writes to out, usually os.Stdout.
func NewTerminalNotifier(out io.Writer) *TerminalNotifier {
	return &TerminalNotifier{out: out}
}

// Show prints the title colored by kind, followed by the description.
func (n *TerminalNotifier) Show(title, description string, kind Kind) {
	var c *color.Color
	switch kind {
	case KindSuccess:
		c = color.New(color.FgGreen, color.Bold)
	case KindWarning:
		c = color.New(color.FgYellow, color.Bold)
	case KindError:
		c = color.New(color.FgRed, color.Bold)
	default:
		c = color.New(color.FgCyan, color.Bold)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	c.Fprint(n.out, title)
	fmt.Fprintf(n.out, "  %s\n", description)
}

// LogNotifier writes notifications as log lines.
type LogNotifier struct {
	Log *zerolog.Logger
}

// Show logs the notification at info level.
func (n LogNotifier) Show(title, description string, kind Kind) {
	n.Log.Info().Str("kind", kind.String()).Str("description", description).Msg(title)
}
