// Package reasoner turns a user utterance plus conversation context into a
// structured interpretation produced by a language model.
package reasoner

import (
	"context"
	"errors"

	"github.com/user/mana-voicebot/internal/intent"
	"github.com/user/mana-voicebot/internal/session"
)

var (
	// ErrReasoning means the backend could not be reached or refused the request.
	ErrReasoning = errors.New("reasoning failed")
	// ErrMalformed means the backend answered with something that is not a JSON object.
	ErrMalformed = errors.New("malformed interpretation")
)

// FallbackReply is spoken when no interpretation could be obtained.
const FallbackReply = "در دریافت پاسخ فنی مشکلی پیش آمد. لطفاً جمله‌تان را کوتاه‌تر تکرار کنید."

// maxKnownClients bounds how many known names are sent with each request.
const maxKnownClients = 20

// Request carries everything a backend needs to interpret one utterance.
type Request struct {
	Text            string
	HistoryText     string
	Snapshot        session.Snapshot
	KnownClients    []string
	ReturningClient string
	SessionName     string
}

// Reasoner interface for language model backends
type Reasoner interface {
	Infer(ctx context.Context, req Request) (intent.Interpretation, error)
	Close() error
}

// IsMalformed reports whether err came from an unparseable model answer.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformed)
}
