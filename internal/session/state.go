// Package session holds the mutable conversation memory of one running bot and
// its serialisable snapshot.
package session

import (
	"strings"

	"github.com/user/mana-voicebot/internal/intent"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Record is one history entry.
type Record struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Profile holds the caller's identity. Nil means unknown.
type Profile struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
}

// Blob is the free-form per-domain fact map.
type Blob map[string]any

// State is the single mutable aggregate of a session. It is not safe for
// concurrent use; the orchestrator is its only writer.
type State struct {
	Profile Profile
	Notes   []string
	History []Record

	Reservation Blob
	Sales       Blob
	Produce     Blob
	Visitor     Blob

	historyLimit int
}

func New(historyLimit int) *State {
	if historyLimit <= 0 {
		historyLimit = 1
	}
	return &State{
		Notes:        []string{},
		Reservation:  Blob{},
		Sales:        Blob{},
		Produce:      Blob{},
		Visitor:      Blob{},
		historyLimit: historyLimit,
	}
}

func (s *State) HistoryLimit() int {
	return s.historyLimit
}

// Append adds a history record and evicts the oldest entries beyond the limit.
func (s *State) Append(role, text string) {
	s.History = append(s.History, Record{Role: role, Text: text})
	if over := len(s.History) - s.historyLimit; over > 0 {
		s.History = append([]Record(nil), s.History[over:]...)
	}
}

// Domain returns the blob owned by a domain, or nil for domains without one.
func (s *State) Domain(name string) Blob {
	switch name {
	case intent.DomainReservation:
		return s.Reservation
	case intent.DomainSales:
		return s.Sales
	case intent.DomainProduce:
		return s.Produce
	case intent.DomainVisitor:
		return s.Visitor
	default:
		return nil
	}
}

// SetName stores name if it is non-empty and differs from the current value.
func (s *State) SetName(name string) bool {
	return setIfChanged(&s.Profile.Name, name)
}

// SetAddress stores address if it is non-empty and differs from the current value.
func (s *State) SetAddress(address string) bool {
	return setIfChanged(&s.Profile.Address, address)
}

func (s *State) Name() string    { return deref(s.Profile.Name) }
func (s *State) Address() string { return deref(s.Profile.Address) }

// AddNote appends a non-empty note.
func (s *State) AddNote(note string) bool {
	note = strings.TrimSpace(note)
	if note == "" {
		return false
	}
	s.Notes = append(s.Notes, note)
	return true
}

// HistoryText renders the history as "role: text" lines for prompts.
func (s *State) HistoryText() string {
	if len(s.History) == 0 {
		return "No prior conversation."
	}
	lines := make([]string, len(s.History))
	for i, r := range s.History {
		lines[i] = r.Role + ": " + r.Text
	}
	return strings.Join(lines, "\n")
}

func setIfChanged(field **string, value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	if *field != nil && **field == value {
		return false
	}
	*field = &value
	return true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
