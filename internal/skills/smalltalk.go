package skills

import (
	"fmt"

	"github.com/user/mana-voicebot/internal/intent"
	"github.com/user/mana-voicebot/internal/session"
)

type Smalltalk struct {
	brand Branding
}

func NewSmalltalk(b Branding) *Smalltalk {
	return &Smalltalk{brand: b}
}

func (s *Smalltalk) Name() string { return intent.DomainSmalltalk }

func (s *Smalltalk) Handle(text string, st *session.State, p intent.Payload) Result {
	reply := p.Reply()
	if reply == "" {
		reply = fmt.Sprintf("سلام، من دستیار %s هستم. چطور می‌توانم کمکتان کنم؟", s.brand.Assistant)
	}

	return Result{
		Reply:   reply,
		Domain:  s.Name(),
		Intent:  p.StringOr("intent", "smalltalk"),
		Payload: map[string]any{},
	}
}
