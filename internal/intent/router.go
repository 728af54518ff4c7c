// Package intent maps a reasoning-service interpretation onto one of the
// bot's domains and extracts that domain's payload.
package intent

import "strings"

const (
	DomainReservation = "reservation"
	DomainSales       = "sales"
	DomainSmalltalk   = "smalltalk"
	DomainProduce     = "produce"
	DomainVisitor     = "visitor"
)

var knownDomains = map[string]bool{
	DomainReservation: true,
	DomainSales:       true,
	DomainSmalltalk:   true,
	DomainProduce:     true,
	DomainVisitor:     true,
}

// IsKnownDomain reports whether d names a routable domain.
func IsKnownDomain(d string) bool {
	return knownDomains[d]
}

// Interpretation is the decoded JSON object returned by the reasoning
// service: a top-level domain, intent and reply plus one sub-object per domain.
type Interpretation map[string]any

// Decision is the outcome of routing one interpretation.
type Decision struct {
	Domain  string
	Payload Payload
}

func (d Decision) Intent() string { return d.Payload.Intent() }
func (d Decision) Reply() string  { return d.Payload.Reply() }

// Route selects the sub-object named by the interpretation's domain and makes
// sure it carries intent and reply, copying them from the top level when the
// sub-object lacks them. Unknown or missing domains route to smalltalk with an
// empty sub-object. Route has no side effects.
func Route(in Interpretation) Decision {
	top := NewPayload(in)

	domain := strings.ToLower(top.String("domain"))
	var sub map[string]any
	if IsKnownDomain(domain) {
		sub, _ = in[domain].(map[string]any)
	} else {
		domain = DomainSmalltalk
	}

	payload := NewPayload(sub)
	for _, key := range []string{"intent", "reply"} {
		if payload.String(key) == "" {
			if v, ok := top.Lookup(key); ok {
				payload = payload.with(key, v)
			}
		}
	}

	return Decision{
		Domain:  domain,
		Payload: payload,
	}
}
