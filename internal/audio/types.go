package audio

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrCapture classifies failures of the capture backend.
var ErrCapture = errors.New("audio capture failed")

// Frame is one fixed-duration block of mono 16-bit PCM as read from the device.
type Frame []int16

// Utterance is a span of captured audio believed to hold a single spoken turn.
// It is immutable once the segmenter hands it off.
type Utterance struct {
	ID         uuid.UUID
	PCM        []int16
	SampleRate int
	Start      time.Time
	End        time.Time
}

// Empty reports whether the utterance carries no samples.
func (u *Utterance) Empty() bool {
	return u == nil || len(u.PCM) == 0
}

// Duration is the audio length derived from the sample count.
func (u *Utterance) Duration() time.Duration {
	if u.Empty() || u.SampleRate <= 0 {
		return 0
	}
	return samplesDuration(len(u.PCM), u.SampleRate)
}

// Device is a capture backend.
//
// Stream pushes frames of frameSamples samples into out until ctx is done or the
// backend fails; it must not close out. Record blocks for a fixed window.
type Device interface {
	Stream(ctx context.Context, frameSamples int, out chan<- Frame) error
	Record(ctx context.Context, samples int) ([]int16, error)
}

// Player plays mono PCM at the given sample rate and blocks until done.
type Player interface {
	Play(ctx context.Context, pcm []int16, sampleRate int) error
}

// SpeechClassifier labels a short PCM sub-frame as voice or non-voice.
type SpeechClassifier interface {
	IsSpeech(pcm []int16, sampleRate int) bool
}

func samplesDuration(n, sampleRate int) time.Duration {
	return time.Duration(n) * time.Second / time.Duration(sampleRate)
}

func samplesFor(d time.Duration, sampleRate int) int {
	return int(int64(d) * int64(sampleRate) / int64(time.Second))
}
