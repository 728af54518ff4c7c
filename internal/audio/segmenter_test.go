package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDevice replays fixed frames. After the last frame it either returns
// streamErr or, when hold is set, waits for cancellation.
type fakeDevice struct {
	frames    []Frame
	streamErr error
	hold      bool

	recordPCM []int16
	recordErr error

	mu       sync.Mutex
	recorded int
}

func (d *fakeDevice) Stream(ctx context.Context, frameSamples int, out chan<- Frame) error {
	for _, f := range d.frames {
		select {
		case out <- f:
		case <-ctx.Done():
			return nil
		}
	}
	if d.streamErr != nil {
		return d.streamErr
	}
	if d.hold {
		<-ctx.Done()
	}
	return nil
}

func (d *fakeDevice) Record(ctx context.Context, samples int) ([]int16, error) {
	d.mu.Lock()
	d.recorded = samples
	d.mu.Unlock()
	return d.recordPCM, d.recordErr
}

func constFrame(n int, v int16) Frame {
	f := make(Frame, n)
	for i := range f {
		f[i] = v
	}
	return f
}

func energyFrames(levels ...int16) []Frame {
	frames := make([]Frame, len(levels))
	for i, l := range levels {
		frames[i] = constFrame(10, l)
	}
	return frames
}

// 1 kHz with 10-sample frames: every frame is 10 ms.
func testParams() Params {
	return Params{
		SampleRate:      1000,
		FrameDuration:   10 * time.Millisecond,
		MaxDuration:     time.Second,
		MinDuration:     50 * time.Millisecond,
		SilenceTimeout:  30 * time.Millisecond,
		EnergyThreshold: 100,
		TrimThreshold:   100,
	}
}

func newTestSegmenter(t *testing.T, dev Device, mutate func(*Options)) *Segmenter {
	t.Helper()
	opts := Options{PushToTalk: testParams(), Realtime: testParams()}
	if mutate != nil {
		mutate(&opts)
	}
	seg, err := NewSegmenter(dev, opts)
	require.NoError(t, err)
	return seg
}

func TestPushCutter_CutsAfterSilenceTimeout(t *testing.T) {
	c := newPushCutter(testParams())

	cutAt := -1
	for i, f := range energyFrames(10, 10, 10, 500, 500, 10, 10, 10, 10, 10) {
		if c.add(f) {
			cutAt = i
			break
		}
	}

	// The leading quiet run reaches the timeout before the minimum duration,
	// so only the run after the speech can end the capture.
	assert.Equal(t, 7, cutAt)
	assert.Len(t, c.buf, 80)
	assert.True(t, c.heard)
}

func TestPushCutter_MaxDuration(t *testing.T) {
	p := testParams()
	p.MaxDuration = 40 * time.Millisecond
	c := newPushCutter(p)

	var cut bool
	for _, f := range energyFrames(500, 500, 500, 500) {
		cut = c.add(f)
	}
	assert.True(t, cut)
	assert.Len(t, c.buf, 40)
}

func TestCapture_EnergySequence(t *testing.T) {
	dev := &fakeDevice{
		frames: energyFrames(10, 10, 10, 500, 500, 10, 10, 10, 10, 10),
		hold:   true,
	}
	seg := newTestSegmenter(t, dev, nil)

	u, err := seg.Capture(context.Background())
	require.NoError(t, err)
	require.False(t, u.Empty())

	want := append(append([]int16{}, constFrame(30, 10)...), constFrame(20, 500)...)
	assert.Equal(t, want, u.PCM)
	assert.Equal(t, 1000, u.SampleRate)
	assert.Equal(t, 50*time.Millisecond, u.Duration())
	assert.NotEqual(t, [16]byte{}, [16]byte(u.ID))
}

func TestCapture_AllSilenceYieldsEmpty(t *testing.T) {
	dev := &fakeDevice{
		frames: energyFrames(10, 20, 5, 10, 10, 10, 10, 10),
		hold:   true,
	}
	seg := newTestSegmenter(t, dev, nil)

	u, err := seg.Capture(context.Background())
	require.NoError(t, err)
	assert.True(t, u.Empty())
}

func TestCapture_StreamEndsBeforeCut(t *testing.T) {
	dev := &fakeDevice{frames: energyFrames(500, 500, 10)}
	seg := newTestSegmenter(t, dev, nil)

	u, err := seg.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int16(constFrame(20, 500)), u.PCM)
}

func TestCapture_StreamFailureFallsBackToFixedWindow(t *testing.T) {
	recorded := append(append([]int16{}, constFrame(10, 500)...), constFrame(10, 0)...)
	dev := &fakeDevice{
		streamErr: errors.New("device busy"),
		recordPCM: recorded,
	}
	seg := newTestSegmenter(t, dev, nil)

	u, err := seg.Capture(context.Background())
	require.NoError(t, err)

	// The fixed window is not trimmed.
	assert.Equal(t, recorded, u.PCM)
	assert.Equal(t, 1000, dev.recorded)
}

func TestCapture_BothPathsFail(t *testing.T) {
	dev := &fakeDevice{
		streamErr: errors.New("device busy"),
		recordErr: errors.New("still busy"),
	}
	seg := newTestSegmenter(t, dev, nil)

	u, err := seg.Capture(context.Background())
	require.NoError(t, err)
	assert.True(t, u.Empty())
}

func TestCapture_FallbackWindowWithoutSpeech(t *testing.T) {
	dev := &fakeDevice{
		streamErr: errors.New("device busy"),
		recordPCM: constFrame(100, 3),
	}
	seg := newTestSegmenter(t, dev, nil)

	u, err := seg.Capture(context.Background())
	require.NoError(t, err)
	assert.True(t, u.Empty())
}

func TestCapture_Cancelled(t *testing.T) {
	dev := &fakeDevice{hold: true}
	seg := newTestSegmenter(t, dev, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := seg.Capture(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCapture_WritesDebugAudio(t *testing.T) {
	dir := t.TempDir()
	dev := &fakeDevice{frames: energyFrames(500, 500)}
	seg := newTestSegmenter(t, dev, func(o *Options) { o.DebugDir = dir })

	_, err := seg.Capture(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "last_raw.wav"))
	require.NoError(t, err)
	assert.Len(t, data, 44+20*2)
}

func TestCapture_AppliesSpeechFilter(t *testing.T) {
	dev := &fakeDevice{frames: energyFrames(500, 500, 500, 500)}
	seg := newTestSegmenter(t, dev, func(o *Options) { o.Filter = rejectAll{} })

	u, err := seg.Capture(context.Background())
	require.NoError(t, err)
	assert.True(t, u.Empty())
}

func TestContinuousCutter(t *testing.T) {
	c := newContinuousCutter(testParams())

	var segments [][]int16
	for _, f := range energyFrames(10, 500, 500, 10, 10, 10, 10, 300, 10, 10, 10) {
		if seg := c.add(f); seg != nil {
			segments = append(segments, seg)
		}
	}

	require.Len(t, segments, 2)
	assert.Equal(t, []int16(constFrame(20, 500)), segments[0])
	assert.Equal(t, []int16(constFrame(10, 300)), segments[1])
}

func TestListen_EmitsSegments(t *testing.T) {
	dev := &fakeDevice{frames: energyFrames(10, 500, 500, 10, 10, 10, 400, 10, 10, 10, 500)}
	seg := newTestSegmenter(t, dev, nil)

	var got []*Utterance
	err := seg.Listen(context.Background(), NewEchoGuard(), func(ctx context.Context, u *Utterance) error {
		got = append(got, u)
		return nil
	})
	require.NoError(t, err)

	// The trailing speech frame never reaches the timeout and is not emitted.
	require.Len(t, got, 2)
	assert.Len(t, got[0].PCM, 20)
	assert.Len(t, got[1].PCM, 10)
	assert.NotEqual(t, got[0].ID, got[1].ID)
}

func TestListen_AllSilenceEmitsNothing(t *testing.T) {
	dev := &fakeDevice{frames: energyFrames(10, 10, 10, 10, 10, 10, 10, 10, 10, 10)}
	seg := newTestSegmenter(t, dev, nil)

	calls := 0
	err := seg.Listen(context.Background(), NewEchoGuard(), func(ctx context.Context, u *Utterance) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, calls)
}

func TestListen_DropsFramesWhileSpeaking(t *testing.T) {
	dev := &fakeDevice{frames: energyFrames(500, 500, 10, 10, 10)}
	seg := newTestSegmenter(t, dev, nil)

	guard := NewEchoGuard()
	guard.Raise()

	called := false
	err := seg.Listen(context.Background(), guard, func(ctx context.Context, u *Utterance) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestListen_HandlerErrorStops(t *testing.T) {
	dev := &fakeDevice{frames: energyFrames(500, 10, 10, 10), hold: true}
	seg := newTestSegmenter(t, dev, nil)

	boom := errors.New("boom")
	err := seg.Listen(context.Background(), nil, func(ctx context.Context, u *Utterance) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestListen_StreamFailure(t *testing.T) {
	dev := &fakeDevice{streamErr: ErrCapture}
	seg := newTestSegmenter(t, dev, nil)

	err := seg.Listen(context.Background(), nil, func(ctx context.Context, u *Utterance) error {
		return nil
	})
	assert.True(t, IsCaptureError(err))
}

func TestNewSegmenter_RejectsBadParams(t *testing.T) {
	p := testParams()
	p.MaxDuration = 0
	_, err := NewSegmenter(&fakeDevice{}, Options{PushToTalk: p, Realtime: testParams()})
	assert.Error(t, err)

	p = testParams()
	p.SilenceTimeout = 0
	_, err = NewSegmenter(&fakeDevice{}, Options{PushToTalk: testParams(), Realtime: p})
	assert.Error(t, err)
}

func TestEchoGuard(t *testing.T) {
	var nilGuard *EchoGuard
	assert.False(t, nilGuard.Speaking())
	nilGuard.Raise()

	g := NewEchoGuard()
	assert.False(t, g.Speaking())
	g.Raise()
	assert.True(t, g.Speaking())
	g.Lower()
	assert.False(t, g.Speaking())
}

func TestOffer_DropsWhenFull(t *testing.T) {
	ch := make(chan Frame, 1)
	assert.True(t, Offer(ch, Frame{1}))
	assert.False(t, Offer(ch, Frame{2}))
	assert.Equal(t, Frame{1}, <-ch)
}
