package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoute_SelectsDomainSubObject(t *testing.T) {
	d := Route(Interpretation{
		"domain": "reservation",
		"intent": "booking",
		"reply":  "top reply",
		"reservation": map[string]any{
			"name":  "Ali",
			"reply": "sub reply",
		},
	})

	assert.Equal(t, DomainReservation, d.Domain)
	assert.Equal(t, "Ali", d.Payload.String("name"))
	assert.Equal(t, "sub reply", d.Reply())
	assert.Equal(t, "booking", d.Intent())
}

func TestRoute_FillsEmptyFieldsFromTopLevel(t *testing.T) {
	d := Route(Interpretation{
		"domain": "sales",
		"intent": "price",
		"reply":  "top",
		"sales":  map[string]any{"intent": "", "product": "X"},
	})

	assert.Equal(t, "price", d.Intent())
	assert.Equal(t, "top", d.Reply())
}

func TestRoute_MissingSubObject(t *testing.T) {
	d := Route(Interpretation{"domain": "produce", "intent": "why_buy"})

	assert.Equal(t, DomainProduce, d.Domain)
	assert.Equal(t, "why_buy", d.Intent())
	assert.Equal(t, "", d.Reply())
	assert.False(t, d.Payload.Has("reply"))
}

func TestRoute_SubObjectWrongType(t *testing.T) {
	d := Route(Interpretation{"domain": "sales", "sales": "not an object", "reply": "hi"})

	assert.Equal(t, DomainSales, d.Domain)
	assert.Equal(t, "hi", d.Reply())
}

func TestRoute_UnknownDomainFallsBackToSmalltalk(t *testing.T) {
	tests := []struct {
		name string
		in   Interpretation
	}{
		{"unknown", Interpretation{"domain": "unknown_xyz", "reply": "r", "unknown_xyz": map[string]any{"name": "Ali"}}},
		{"missing", Interpretation{"reply": "r"}},
		{"non-string", Interpretation{"domain": 42.0, "reply": "r"}},
		{"nil", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Route(tt.in)
			assert.Equal(t, DomainSmalltalk, d.Domain)
			assert.False(t, d.Payload.Has("name"))
		})
	}
}

func TestRoute_DomainCaseInsensitive(t *testing.T) {
	d := Route(Interpretation{"domain": " Visitor "})
	assert.Equal(t, DomainVisitor, d.Domain)
}

func TestRoute_DoesNotMutateInput(t *testing.T) {
	sub := map[string]any{"name": "Ali"}
	in := Interpretation{"domain": "reservation", "intent": "booking", "reservation": sub}

	Route(in)

	_, ok := sub["intent"]
	assert.False(t, ok)
}

func TestPayload_Accessors(t *testing.T) {
	p := NewPayload(map[string]any{
		"s":    "  text ",
		"n":    3.0,
		"b":    true,
		"null": nil,
		"obj":  map[string]any{},
	})

	assert.Equal(t, "text", p.String("s"))
	assert.Equal(t, "3", p.String("n"))
	assert.Equal(t, "true", p.String("b"))
	assert.Equal(t, "", p.String("null"))
	assert.Equal(t, "", p.String("obj"))
	assert.Equal(t, "", p.String("absent"))
	assert.Equal(t, "def", p.StringOr("absent", "def"))

	_, ok := p.Lookup("null")
	assert.True(t, ok)
	assert.False(t, p.Has("null"))
	assert.True(t, p.Has("n"))
	assert.Nil(t, p.Value("absent"))
}
