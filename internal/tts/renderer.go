// Package tts delivers assistant replies to the user.
package tts

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Renderer speaks or prints a reply. Failures are reported to the caller, which
// logs them and carries on.
type Renderer interface {
	Speak(ctx context.Context, text string) error
}

// Console writes replies as text lines. It is used for the text loop and when
// no speech backend is configured.
type Console struct {
	w      io.Writer
	prefix string
	mu     sync.Mutex
}

func NewConsole(w io.Writer, prefix string) *Console {
	return &Console{w: w, prefix: prefix}
}

func (c *Console) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := fmt.Fprintf(c.w, "%s%s\n", c.prefix, text); err != nil {
		return fmt.Errorf("failed to write reply: %w", err)
	}
	return nil
}

// Tee renders each reply with every renderer in order. All renderers are tried;
// the first error is returned.
type Tee []Renderer

func (t Tee) Speak(ctx context.Context, text string) error {
	var first error
	for _, r := range t {
		if err := r.Speak(ctx, text); err != nil && first == nil {
			first = err
		}
	}
	return first
}
