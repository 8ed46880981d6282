package notify

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// ConsoleSender writes notifications to an io.Writer, usually stdout. Useful
// for local runs and paper trading where no chat channel is configured.
type ConsoleSender struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleSender creates a ConsoleSender writing to out.
func NewConsoleSender(out io.Writer) *ConsoleSender {
	return &ConsoleSender{out: out}
}

// Send prints the notification with a timestamp header.
func (c *ConsoleSender) Send(_ context.Context, title, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, "\n[%s] %s\n%s\n", time.Now().Format("15:04:05"), title, message)
	return err
}

// Name returns the sender identifier.
func (c *ConsoleSender) Name() string {
	return "console"
}
