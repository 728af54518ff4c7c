package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTestUtterance(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"سلام، این فقط تست صدا است", true},
		{"🎤 آزمایش میکروفون", true},
		{"Mic test one two", true},
		{"برای تست می‌خواهم نوبت بگیرم", false},
		{"تست صدا، دكتر هست؟", false},
		{"سلام من علی هستم", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsTestUtterance(tt.text), tt.text)
	}
}

func TestClampNoise(t *testing.T) {
	d := Route(Interpretation{
		"domain":      "reservation",
		"intent":      "test",
		"reservation": map[string]any{"name": "Ali"},
	})

	clamped, ok := ClampNoise(d)
	assert.True(t, ok)
	assert.Equal(t, DomainSmalltalk, clamped.Domain)
	assert.Equal(t, testClampReply, clamped.Reply())
	assert.False(t, clamped.Payload.Has("name"))

	noise, ok := ClampNoise(Decision{Domain: DomainSales, Payload: NewPayload(map[string]any{"intent": "noise"})})
	assert.True(t, ok)
	assert.Equal(t, noiseClampReply, noise.Reply())

	other := Decision{Domain: DomainSales, Payload: NewPayload(map[string]any{"intent": "price"})}
	same, ok := ClampNoise(other)
	assert.False(t, ok)
	assert.Equal(t, other, same)
}

func TestTestDecision(t *testing.T) {
	d := TestDecision()
	assert.Equal(t, DomainSmalltalk, d.Domain)
	assert.Equal(t, IntentTest, d.Intent())
	assert.NotEmpty(t, d.Reply())
}
