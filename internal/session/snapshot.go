package session

import (
	"encoding/json"
	"fmt"
)

// Snapshot is the persisted projection of a State. History is deliberately not
// part of it; the turn log carries the conversation.
type Snapshot struct {
	Session     string   `json:"session"`
	Profile     Profile  `json:"profile"`
	Notes       []string `json:"notes"`
	Reservation Blob     `json:"reservation"`
	Sales       Blob     `json:"sales"`
	Produce     Blob     `json:"produce"`
	Visitor     Blob     `json:"visitor"`
}

// Snapshot copies the persisted fields of s under the given session name.
func (s *State) Snapshot(sessionName string) Snapshot {
	return Snapshot{
		Session:     sessionName,
		Profile:     Profile{Name: clonePtr(s.Profile.Name), Address: clonePtr(s.Profile.Address)},
		Notes:       append([]string{}, s.Notes...),
		Reservation: cloneBlob(s.Reservation),
		Sales:       cloneBlob(s.Sales),
		Produce:     cloneBlob(s.Produce),
		Visitor:     cloneBlob(s.Visitor),
	}
}

// Marshal encodes the snapshot as indented JSON. Map keys are sorted, so equal
// states always encode to identical bytes.
func (snap Snapshot) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// Seed copies recognised keys from a previously persisted snapshot. Unknown keys
// and values of the wrong type are ignored.
func (s *State) Seed(raw map[string]any) {
	if raw == nil {
		return
	}

	if profile, ok := raw["profile"].(map[string]any); ok {
		if name, ok := profile["name"].(string); ok {
			s.Profile.Name = &name
		}
		if address, ok := profile["address"].(string); ok {
			s.Profile.Address = &address
		}
	}

	if notes, ok := raw["notes"].([]any); ok {
		s.Notes = make([]string, 0, len(notes))
		for _, n := range notes {
			s.Notes = append(s.Notes, fmt.Sprint(n))
		}
	}

	for key, dst := range map[string]*Blob{
		"reservation": &s.Reservation,
		"sales":       &s.Sales,
		"produce":     &s.Produce,
		"visitor":     &s.Visitor,
	} {
		if blob, ok := raw[key].(map[string]any); ok {
			*dst = cloneBlob(blob)
		}
	}
}

func cloneBlob(b map[string]any) Blob {
	out := make(Blob, len(b))
	for k, v := range b {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return map[string]any(cloneBlob(t))
	case Blob:
		return cloneBlob(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string{}, t...)
	default:
		return v
	}
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
