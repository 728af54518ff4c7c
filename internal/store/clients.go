package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Clients is the persisted set of caller names. It only grows, and every
// addition is written through to disk before Add returns.
type Clients struct {
	path string

	mu     sync.Mutex
	names  map[string]struct{}
	loaded bool
}

func NewClients(path string) *Clients {
	return &Clients{
		path:  path,
		names: make(map[string]struct{}),
	}
}

func (c *Clients) load() {
	if c.loaded {
		return
	}
	c.loaded = true

	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		log.Warn().Err(err).Str("file", c.path).Msg("Failed to read known clients, starting empty")
		return
	}

	var list []any
	if err := json.Unmarshal(data, &list); err != nil {
		log.Warn().Err(err).Str("file", c.path).Msg("Failed to decode known clients, starting empty")
		return
	}
	for _, v := range list {
		if name := strings.TrimSpace(fmt.Sprint(v)); name != "" {
			c.names[name] = struct{}{}
		}
	}
}

// Add records name. It reports whether the set grew; adding a known name is a
// no-op that does not touch the file.
func (c *Clients) Add(name string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.load()
	clean := strings.TrimSpace(name)
	if clean == "" {
		return false, nil
	}
	if _, ok := c.names[clean]; ok {
		return false, nil
	}

	c.names[clean] = struct{}{}
	if err := c.persist(); err != nil {
		return true, err
	}

	log.Info().Str("name", clean).Int("known_clients", len(c.names)).Msg("Added known client")
	return true, nil
}

// All returns the names in sorted order.
func (c *Clients) All() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.load()
	return c.sorted()
}

// FindIn returns the first known name, in sorted order, that appears in text
// ignoring case, or "".
func (c *Clients) FindIn(text string) string {
	lower := strings.ToLower(text)
	for _, name := range c.All() {
		if strings.Contains(lower, strings.ToLower(name)) {
			return name
		}
	}
	return ""
}

func (c *Clients) sorted() []string {
	out := make([]string, 0, len(c.names))
	for n := range c.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (c *Clients) persist() error {
	data, err := json.MarshalIndent(c.sorted(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode known clients: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("failed to create clients directory: %w", err)
	}
	if err := writeFileAtomic(c.path, data); err != nil {
		return fmt.Errorf("failed to write known clients: %w", err)
	}
	return nil
}
