package stt

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/user/mana-voicebot/internal/audio"
	"github.com/user/mana-voicebot/internal/metrics"
)

// ErrTranscription means no backend produced a transcript for the utterance.
// Callers treat it as "no input this cycle".
var ErrTranscription = errors.New("transcription failed")

// Transcript is the text recognised in one utterance. Empty Text means no
// speech was recognised, which is not an error.
type Transcript struct {
	UtteranceID uuid.UUID
	Text        string
	Source      string
	Confidence  float64
}

// Transcriber interface for STT backends
type Transcriber interface {
	Transcribe(ctx context.Context, u *audio.Utterance) (*Transcript, error)
	Close() error
}

// Fallback tries the primary backend and, when it fails, the secondary one.
// The first failure is logged at warn level, later ones at debug.
type Fallback struct {
	primary   Transcriber
	secondary Transcriber
	warned    atomic.Bool
}

// NewFallback wraps primary. secondary may be nil.
func NewFallback(primary, secondary Transcriber) *Fallback {
	return &Fallback{
		primary:   primary,
		secondary: secondary,
	}
}

func (f *Fallback) Transcribe(ctx context.Context, u *audio.Utterance) (*Transcript, error) {
	if u.Empty() {
		return &Transcript{}, nil
	}

	t, err := f.primary.Transcribe(ctx, u)
	if err == nil {
		return t, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	metrics.Fallbacks.WithLabelValues("transcription").Inc()
	if f.warned.CompareAndSwap(false, true) {
		log.Warn().Err(err).Msg("Primary transcription failed, using fallback backend")
	} else {
		log.Debug().Err(err).Msg("Primary transcription failed")
	}

	if f.secondary == nil {
		return nil, fmt.Errorf("%w: %v", ErrTranscription, err)
	}

	t, err2 := f.secondary.Transcribe(ctx, u)
	if err2 != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: primary: %v; fallback: %v", ErrTranscription, err, err2)
	}
	return t, nil
}

func (f *Fallback) Close() error {
	var errs []error
	if err := f.primary.Close(); err != nil {
		errs = append(errs, err)
	}
	if f.secondary != nil {
		if err := f.secondary.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
