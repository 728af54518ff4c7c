//go:build portaudio

package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog/log"
)

const playbackFramesPerBuffer = 960

// PortAudio is the microphone and speaker backend. Build with -tags portaudio.
type PortAudio struct {
	sampleRate int

	mu     sync.Mutex
	closed bool
}

func NewPortAudio(sampleRate int) (*PortAudio, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: failed to initialize PortAudio: %v", ErrCapture, err)
	}
	return &PortAudio{sampleRate: sampleRate}, nil
}

func (p *PortAudio) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return portaudio.Terminate()
}

func (p *PortAudio) Stream(ctx context.Context, frameSamples int, out chan<- Frame) error {
	in := make([]int16, frameSamples)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(p.sampleRate), frameSamples, in)
	if err != nil {
		return fmt.Errorf("%w: failed to open input stream: %v", ErrCapture, err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("%w: failed to start input stream: %v", ErrCapture, err)
	}
	defer stream.Stop()

	log.Debug().
		Int("sample_rate", p.sampleRate).
		Int("frame_samples", frameSamples).
		Msg("Microphone stream opened")

	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := stream.Read(); err != nil {
			if err == portaudio.InputOverflowed {
				log.Debug().Msg("Input overflowed, continuing")
				continue
			}
			return fmt.Errorf("%w: read failed: %v", ErrCapture, err)
		}

		frame := make(Frame, len(in))
		copy(frame, in)
		Offer(out, frame)
	}
}

func (p *PortAudio) Record(ctx context.Context, samples int) ([]int16, error) {
	const block = 1024
	in := make([]int16, block)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(p.sampleRate), block, in)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open input stream: %v", ErrCapture, err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start input stream: %v", ErrCapture, err)
	}
	defer stream.Stop()

	pcm := make([]int16, 0, samples)
	for len(pcm) < samples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := stream.Read(); err != nil && err != portaudio.InputOverflowed {
			return nil, fmt.Errorf("%w: read failed: %v", ErrCapture, err)
		}
		pcm = append(pcm, in...)
	}
	return pcm[:samples], nil
}

func (p *PortAudio) Play(ctx context.Context, pcm []int16, sampleRate int) error {
	out := make([]int16, playbackFramesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(sampleRate), len(out), out)
	if err != nil {
		return fmt.Errorf("failed to open output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("failed to start output stream: %w", err)
	}
	defer stream.Stop()

	for off := 0; off < len(pcm); off += len(out) {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := copy(out, pcm[off:])
		for i := n; i < len(out); i++ {
			out[i] = 0
		}
		if err := stream.Write(); err != nil && err != portaudio.OutputUnderflowed {
			return fmt.Errorf("failed to write output stream: %w", err)
		}
	}
	return nil
}
