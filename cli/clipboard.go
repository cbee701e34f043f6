package cli

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
)

// Clipboard is the system clipboard.
type Clipboard interface {
	WriteAll(text string) error
	ReadAll() (string, error)
}

type systemClipboard struct{}

func (systemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }
func (systemClipboard) ReadAll() (string, error)   { return clipboard.ReadAll() }

func SystemClipboard() Clipboard { return systemClipboard{} }

// clearAfter empties the clipboard after ttl unless it no longer holds text.
func clearAfter(ctx context.Context, cb Clipboard, text string, ttl time.Duration) {
	t := time.NewTimer(ttl)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
	if cur, err := cb.ReadAll(); err == nil && cur == text {
		_ = cb.WriteAll("")
	}
}
