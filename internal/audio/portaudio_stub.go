//go:build !portaudio

package audio

import (
	"context"
	"fmt"
)

// Without the portaudio build tag NewPortAudio always fails with ErrCapture, so
// voice mode stops at startup with a rebuild hint. The methods only keep the
// Device and Player signatures in step with the real implementation.
type PortAudio struct{}

func NewPortAudio(sampleRate int) (*PortAudio, error) {
	return nil, fmt.Errorf("%w: built without portaudio support (rebuild with -tags portaudio)", ErrCapture)
}

func (p *PortAudio) Close() error { return nil }

func (p *PortAudio) Stream(ctx context.Context, frameSamples int, out chan<- Frame) error {
	return fmt.Errorf("%w: portaudio unavailable", ErrCapture)
}

func (p *PortAudio) Record(ctx context.Context, samples int) ([]int16, error) {
	return nil, fmt.Errorf("%w: portaudio unavailable", ErrCapture)
}

func (p *PortAudio) Play(ctx context.Context, pcm []int16, sampleRate int) error {
	return fmt.Errorf("portaudio unavailable")
}
