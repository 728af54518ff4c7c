package skills

import (
	"github.com/user/mana-voicebot/internal/intent"
	"github.com/user/mana-voicebot/internal/session"
)

type Sales struct {
	brand Branding
}

func NewSales(b Branding) *Sales {
	return &Sales{brand: b}
}

func (s *Sales) Name() string { return intent.DomainSales }

func (s *Sales) Handle(text string, st *session.State, p intent.Payload) Result {
	in := p.StringOr("intent", "product_question")

	product := p.String("product")
	if product != "" {
		st.Sales["last_product"] = product
	}
	if p.Has("quantity") {
		st.Sales["last_quantity"] = p.Value("quantity")
	}
	notes := p.String("notes")
	if notes != "" {
		st.Sales["notes"] = appendNote(st.Sales["notes"], notes)
	}

	reply := p.Reply()
	if reply == "" {
		reply = "در خدمت‌تان هستم. درباره کدام محصول یا خدمت می‌خواهید بیشتر بدانید؟"
	}

	return Result{
		Reply:  reply,
		Domain: s.Name(),
		Intent: in,
		Payload: map[string]any{
			"intent":   in,
			"product":  product,
			"quantity": p.Value("quantity"),
			"notes":    notes,
		},
	}
}

// appendNote appends to a notes list that may have been reloaded from JSON as
// []any or built in-process as []string. Anything else starts a new list.
func appendNote(existing any, note string) []any {
	var out []any
	switch v := existing.(type) {
	case []any:
		out = append(out, v...)
	case []string:
		for _, s := range v {
			out = append(out, s)
		}
	}
	return append(out, note)
}
