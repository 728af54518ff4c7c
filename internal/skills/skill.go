// Package skills implements the per-domain reply and state-mutation handlers.
package skills

import (
	"github.com/rs/zerolog/log"
	"github.com/user/mana-voicebot/internal/intent"
	"github.com/user/mana-voicebot/internal/session"
)

// Result is produced by exactly one skill per turn.
type Result struct {
	Reply   string
	Domain  string
	Intent  string
	Payload map[string]any
}

// Skill handles one domain. Handle may mutate the shared profile and notes and
// the skill's own domain blob, and must not panic on missing payload fields.
type Skill interface {
	Name() string
	Handle(text string, st *session.State, p intent.Payload) Result
}

// Branding fills the templated replies.
type Branding struct {
	Assistant string
	Business  string
	Product   string
}

func DefaultBranding() Branding {
	return Branding{
		Assistant: "ManaCare",
		Business:  "DrX",
		Product:   "TeleBot AI",
	}
}

// Registry dispatches by domain; unknown domains go to the fallback skill.
type Registry struct {
	skills   map[string]Skill
	fallback Skill
}

func NewRegistry(fallback Skill, others ...Skill) *Registry {
	r := &Registry{
		skills:   make(map[string]Skill),
		fallback: fallback,
	}
	r.Register(fallback)
	for _, s := range others {
		r.Register(s)
	}
	return r
}

// NewDefaultRegistry wires every built-in skill with smalltalk as fallback.
func NewDefaultRegistry(b Branding) *Registry {
	return NewRegistry(
		NewSmalltalk(b),
		NewReservation(b),
		NewSales(b),
		NewProduce(b),
		NewVisitor(b),
	)
}

func (r *Registry) Register(s Skill) {
	r.skills[s.Name()] = s
}

// Lookup returns the skill for domain, or the fallback.
func (r *Registry) Lookup(domain string) Skill {
	if s, ok := r.skills[domain]; ok {
		return s
	}
	return r.fallback
}

func (r *Registry) Dispatch(text string, st *session.State, d intent.Decision) Result {
	skill := r.Lookup(d.Domain)
	if skill.Name() != d.Domain {
		log.Debug().
			Str("domain", d.Domain).
			Str("skill", skill.Name()).
			Msg("No skill for domain, using fallback")
	}
	return skill.Handle(text, st, d.Payload)
}
