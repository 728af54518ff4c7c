package skills

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/mana-voicebot/internal/intent"
	"github.com/user/mana-voicebot/internal/session"
)

func payload(m map[string]any) intent.Payload {
	return intent.NewPayload(m)
}

func TestRegistry_UnknownDomainUsesFallback(t *testing.T) {
	r := NewDefaultRegistry(DefaultBranding())

	assert.Equal(t, intent.DomainSmalltalk, r.Lookup("unknown_xyz").Name())
	assert.Equal(t, intent.DomainVisitor, r.Lookup("visitor").Name())

	res := r.Dispatch("hi", session.New(4), intent.Decision{Domain: "unknown_xyz", Payload: payload(nil)})
	assert.Equal(t, intent.DomainSmalltalk, res.Domain)
	assert.NotEmpty(t, res.Reply)
}

func TestRegistry_RoutesEveryKnownDomain(t *testing.T) {
	r := NewDefaultRegistry(DefaultBranding())
	for _, d := range []string{"reservation", "sales", "smalltalk", "produce", "visitor"} {
		res := r.Dispatch("", session.New(4), intent.Decision{Domain: d, Payload: payload(nil)})
		assert.Equal(t, d, res.Domain)
		assert.NotEmpty(t, res.Reply, d)
	}
}

func TestReservation_NormalizesAndStores(t *testing.T) {
	st := session.New(4)
	res := NewReservation(DefaultBranding()).Handle("", st, payload(map[string]any{
		"name":        " علي   كريمي ",
		"address":     "Tehran",
		"appointment": "Saturday",
		"notes":       "first visit",
		"reply":       "ok",
	}))

	assert.Equal(t, "ok", res.Reply)
	assert.Equal(t, "booking", res.Intent)
	assert.Equal(t, "علی کریمی", st.Name())
	assert.Equal(t, "Tehran", st.Address())
	assert.Equal(t, "Saturday", st.Reservation["appointment"])
	assert.Equal(t, []string{"first visit"}, st.Notes)
	assert.Equal(t, "علی کریمی", res.Payload["name"])
}

func TestReservation_ClarifyingQuestions(t *testing.T) {
	r := NewReservation(DefaultBranding())
	st := session.New(4)

	res := r.Handle("", st, payload(nil))
	assert.Contains(t, res.Reply, "نام کامل")
	assert.Contains(t, res.Reply, "DrX")

	st.SetName("Ali")
	res = r.Handle("", st, payload(map[string]any{"name": nil, "address": 3.5e-1}))
	// A numeric address is formatted, not rejected.
	assert.Equal(t, "0.35", st.Address())

	st2 := session.New(4)
	st2.SetName("Ali")
	res = r.Handle("", st2, payload(nil))
	assert.Contains(t, res.Reply, "آدرس")

	st2.SetAddress("Tehran")
	res = r.Handle("", st2, payload(nil))
	assert.Contains(t, res.Reply, "نوبت")
}

func TestReservation_MalformedFieldsDoNotPanic(t *testing.T) {
	st := session.New(4)
	assert.NotPanics(t, func() {
		NewReservation(DefaultBranding()).Handle("", st, payload(map[string]any{
			"name":        map[string]any{"first": "Ali"},
			"appointment": []any{1.0},
			"notes":       nil,
		}))
	})
	assert.Nil(t, st.Profile.Name)
	assert.Empty(t, st.Reservation)
}

func TestSales_RecordsFacts(t *testing.T) {
	st := session.New(4)
	s := NewSales(DefaultBranding())

	s.Handle("", st, payload(map[string]any{"product": "Plan A", "quantity": 2.0, "notes": "call back"}))
	res := s.Handle("", st, payload(map[string]any{"notes": "wants discount"}))

	assert.Equal(t, "Plan A", st.Sales["last_product"])
	assert.Equal(t, 2.0, st.Sales["last_quantity"])
	assert.Equal(t, []any{"call back", "wants discount"}, st.Sales["notes"])
	assert.Equal(t, "product_question", res.Intent)
	assert.NotEmpty(t, res.Reply)
	assert.Nil(t, st.Profile.Name)
}

func TestSales_AppendsToReloadedNotes(t *testing.T) {
	st := session.New(4)
	st.Sales["notes"] = []string{"old"}

	NewSales(DefaultBranding()).Handle("", st, payload(map[string]any{"notes": "new"}))
	assert.Equal(t, []any{"old", "new"}, st.Sales["notes"])
}

func TestSmalltalk(t *testing.T) {
	st := session.New(4)
	s := NewSmalltalk(DefaultBranding())

	res := s.Handle("", st, payload(map[string]any{"reply": "hello", "intent": "greeting"}))
	assert.Equal(t, "hello", res.Reply)
	assert.Equal(t, "greeting", res.Intent)

	res = s.Handle("", st, payload(nil))
	assert.Contains(t, res.Reply, "ManaCare")
	assert.Equal(t, "smalltalk", res.Intent)
	assert.Equal(t, session.New(4).Snapshot("s"), st.Snapshot("s"))
}

func TestProduce_Templates(t *testing.T) {
	st := session.New(4)
	p := NewProduce(DefaultBranding())

	why := p.Handle("", st, payload(map[string]any{"intent": "why_buy", "pain_point": "missed calls"}))
	assert.Contains(t, why.Reply, "TeleBot AI")
	assert.Contains(t, why.Reply, "«missed calls»")
	assert.Contains(t, why.Reply, defaultCTA)

	generic := p.Handle("", st, payload(map[string]any{"product_name": "Bot X"}))
	assert.Equal(t, "pitch", generic.Intent)
	assert.Contains(t, generic.Reply, "Bot X")
	assert.NotEqual(t, why.Reply, generic.Reply)

	assert.Equal(t, "Bot X", st.Produce["last_product_name"])
	assert.Equal(t, "pitch", st.Produce["last_intent"])
}

func TestProduce_VerbatimReply(t *testing.T) {
	res := NewProduce(DefaultBranding()).Handle("", session.New(4), payload(map[string]any{"reply": "given"}))
	assert.Equal(t, "given", res.Reply)
	assert.Equal(t, defaultAudience, res.Payload["audience"])
}

func TestVisitor_IntentsAndState(t *testing.T) {
	v := NewVisitor(DefaultBranding())

	intents := []string{"intro", "needs", "product_info", "pricing", "objection", "closing", "other"}
	replies := map[string]bool{}
	for _, in := range intents {
		res := v.Handle("", session.New(4), payload(map[string]any{"intent": in}))
		require.NotEmpty(t, res.Reply, in)
		replies[res.Reply] = true
	}
	assert.Len(t, replies, len(intents))

	st := session.New(4)
	res := v.Handle("", st, payload(map[string]any{
		"intent":        "intro",
		"visitor_name":  "Sara",
		"business_type": "dental clinic",
		"question":      "how much?",
	}))

	assert.Contains(t, res.Reply, "Sara عزیز")
	assert.Equal(t, "Sara", st.Name())
	assert.Equal(t, "intro", st.Visitor["last_intent"])
	assert.Equal(t, "dental clinic", st.Visitor["business_type"])
	assert.Equal(t, "how much?", st.Visitor["last_question"])
	assert.Equal(t, res.Reply, st.Visitor["last_reply"])

	// Later turns fall back to remembered facts in the payload.
	res = v.Handle("", st, payload(map[string]any{"intent": "pricing"}))
	assert.Equal(t, "Sara", res.Payload["visitor_name"])
	assert.Equal(t, "dental clinic", res.Payload["business_type"])
}

func TestVisitor_KnowledgeBaseAnswer(t *testing.T) {
	res := NewVisitor(DefaultBranding()).Handle("", session.New(4), payload(map[string]any{
		"intent":    "objection",
		"kb_answer": "data stays on your servers.",
	}))
	assert.Contains(t, res.Reply, "data stays on your servers.")
}

func TestHandlersAreDeterministic(t *testing.T) {
	r := NewDefaultRegistry(DefaultBranding())
	d := intent.Route(intent.Interpretation{
		"domain":      "reservation",
		"reservation": map[string]any{"name": "Ali", "appointment": "Monday"},
	})

	a, b := session.New(4), session.New(4)
	ra := r.Dispatch("x", a, d)
	rb := r.Dispatch("x", b, d)

	assert.Equal(t, ra, rb)
	assert.Equal(t, a.Snapshot("s"), b.Snapshot("s"))
}
