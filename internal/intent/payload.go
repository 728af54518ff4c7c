package intent

import (
	"fmt"
	"strings"
)

// Payload is the per-domain slice of an interpretation. Fields are optional;
// accessors never panic on absent or mistyped values.
type Payload struct {
	fields map[string]any
}

// NewPayload copies m so later changes to either side stay independent.
func NewPayload(m map[string]any) Payload {
	fields := make(map[string]any, len(m))
	for k, v := range m {
		fields[k] = v
	}
	return Payload{fields: fields}
}

// Lookup returns the raw value and whether the key is present.
func (p Payload) Lookup(key string) (any, bool) {
	v, ok := p.fields[key]
	return v, ok
}

// Value returns the raw value, or nil when absent.
func (p Payload) Value(key string) any {
	return p.fields[key]
}

// Has reports whether key holds a non-null value.
func (p Payload) Has(key string) bool {
	return p.fields[key] != nil
}

// String returns the trimmed string at key. Numbers and booleans are formatted;
// any other type, null or absence yields "".
func (p Payload) String(key string) string {
	switch v := p.fields[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64, int, int64, bool:
		return fmt.Sprint(v)
	default:
		return ""
	}
}

// StringOr is String with a default for empty results.
func (p Payload) StringOr(key, def string) string {
	if s := p.String(key); s != "" {
		return s
	}
	return def
}

func (p Payload) Intent() string { return p.String("intent") }
func (p Payload) Reply() string  { return p.String("reply") }

// Map returns a copy of the underlying fields.
func (p Payload) Map() map[string]any {
	out := make(map[string]any, len(p.fields))
	for k, v := range p.fields {
		out[k] = v
	}
	return out
}

// with returns a copy with key set.
func (p Payload) with(key string, value any) Payload {
	out := NewPayload(p.fields)
	out.fields[key] = value
	return out
}
