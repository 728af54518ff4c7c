package audio

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/user/mana-voicebot/internal/metrics"
	"golang.org/x/sync/errgroup"
)

const defaultQueueSize = 64

// Params tunes one segmentation mode. MaxDuration and MinDuration only apply to
// push-to-talk capture.
type Params struct {
	SampleRate      int
	FrameDuration   time.Duration
	MaxDuration     time.Duration
	MinDuration     time.Duration
	SilenceTimeout  time.Duration
	EnergyThreshold float64
	TrimThreshold   float64
}

// FrameSamples is the number of samples per device frame.
func (p Params) FrameSamples() int {
	n := samplesFor(p.FrameDuration, p.SampleRate)
	if n < 1 {
		return 1
	}
	return n
}

func (p Params) validate(push bool) error {
	if p.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive")
	}
	if p.SilenceTimeout <= 0 {
		return fmt.Errorf("silence timeout must be positive")
	}
	if push && p.MaxDuration <= 0 {
		return fmt.Errorf("max duration must be positive")
	}
	return nil
}

type Options struct {
	PushToTalk Params
	Realtime   Params

	// Filter, when set, strips non-speech sub-frames from every utterance.
	Filter SpeechClassifier

	// QueueSize bounds the producer/consumer frame channel.
	QueueSize int

	// DebugDir receives last_raw.wav after each push-to-talk capture when set.
	DebugDir string
}

// Segmenter turns a live frame stream into discrete utterances.
type Segmenter struct {
	device Device
	opts   Options
}

func NewSegmenter(device Device, opts Options) (*Segmenter, error) {
	if err := opts.PushToTalk.validate(true); err != nil {
		return nil, fmt.Errorf("invalid push-to-talk params: %w", err)
	}
	if err := opts.Realtime.validate(false); err != nil {
		return nil, fmt.Errorf("invalid realtime params: %w", err)
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}

	return &Segmenter{
		device: device,
		opts:   opts,
	}, nil
}

// Capture records one push-to-talk utterance. It returns an empty utterance when
// nothing usable was heard or both capture paths failed; the only error returned
// is the context's, when the caller interrupts the capture.
func (s *Segmenter) Capture(ctx context.Context) (*Utterance, error) {
	p := s.opts.PushToTalk
	start := time.Now()

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := make(chan Frame, s.opts.QueueSize)
	var streamErr error
	go func() {
		streamErr = s.device.Stream(streamCtx, p.FrameSamples(), frames)
		close(frames)
	}()

	cutter := newPushCutter(p)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case frame, ok := <-frames:
			if !ok {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				if streamErr != nil {
					return s.captureFixedWindow(ctx, start, streamErr)
				}
				log.Debug().Int("samples", len(cutter.buf)).Msg("Capture stream ended before silence cut")
				return s.finishPush(cutter, start), nil
			}
			if cutter.add(frame) {
				cancel()
				return s.finishPush(cutter, start), nil
			}
		}
	}
}

func (s *Segmenter) finishPush(c *pushCutter, start time.Time) *Utterance {
	p := s.opts.PushToTalk
	if !c.heard {
		log.Debug().Int("samples", len(c.buf)).Msg("No speech energy in capture")
		return s.emptyUtterance(p)
	}

	pcm := TrimTrailingSilence(c.buf, p.TrimThreshold)
	s.dumpDebug(pcm, p.SampleRate)
	return s.emit("push", pcm, p.SampleRate, start)
}

func (s *Segmenter) captureFixedWindow(ctx context.Context, start time.Time, cause error) (*Utterance, error) {
	p := s.opts.PushToTalk
	metrics.Fallbacks.WithLabelValues("capture").Inc()
	log.Warn().
		Err(cause).
		Dur("window", p.MaxDuration).
		Msg("Streaming capture failed, falling back to fixed window")

	pcm, err := s.device.Record(ctx, samplesFor(p.MaxDuration, p.SampleRate))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Error().Err(err).Msg("Fixed-window capture failed, nothing captured this cycle")
		return s.emptyUtterance(p), nil
	}

	if !hasSpeech(pcm, p.FrameSamples(), p.EnergyThreshold) {
		return s.emptyUtterance(p), nil
	}
	s.dumpDebug(pcm, p.SampleRate)
	return s.emit("push", pcm, p.SampleRate, start), nil
}

// Listen segments continuously until ctx is done or the device fails, calling
// handle for each completed utterance. Frames produced while guard is raised are
// discarded so the bot never hears its own reply. handle runs on the consuming
// goroutine; the next utterance is not cut until it returns.
func (s *Segmenter) Listen(ctx context.Context, guard *EchoGuard, handle func(context.Context, *Utterance) error) error {
	p := s.opts.Realtime
	raw := make(chan Frame, s.opts.QueueSize)
	frames := make(chan Frame, s.opts.QueueSize)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(raw)
		if err := s.device.Stream(gctx, p.FrameSamples(), raw); err != nil {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			return fmt.Errorf("realtime stream: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		defer close(frames)
		for frame := range raw {
			if guard.Speaking() {
				metrics.FramesDropped.WithLabelValues("echo").Inc()
				continue
			}
			if !Offer(frames, frame) {
				log.Warn().Msg("Frame queue full, dropping frame")
			}
		}
		return nil
	})

	g.Go(func() error {
		cutter := newContinuousCutter(p)
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case frame, ok := <-frames:
				if !ok {
					return nil
				}
				pcm := cutter.add(frame)
				if pcm == nil {
					continue
				}
				start := time.Now().Add(-samplesDuration(len(pcm), p.SampleRate))
				pcm = TrimTrailingSilence(pcm, p.TrimThreshold)
				u := s.emit("realtime", pcm, p.SampleRate, start)
				if u.Empty() {
					continue
				}
				if err := handle(gctx, u); err != nil {
					return err
				}
			}
		}
	})

	err := g.Wait()
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (s *Segmenter) emit(mode string, pcm []int16, sampleRate int, start time.Time) *Utterance {
	u := &Utterance{
		ID:         uuid.New(),
		PCM:        pcm,
		SampleRate: sampleRate,
		Start:      start,
	}
	u.End = start.Add(u.Duration())

	if s.opts.Filter != nil {
		u = FilterSpeech(u, s.opts.Filter)
		if u.Empty() {
			log.Info().Str("mode", mode).Msg("No usable speech after VAD filtering")
			return u
		}
	}

	metrics.Utterances.WithLabelValues(mode).Inc()
	log.Debug().
		Str("utterance_id", u.ID.String()).
		Str("mode", mode).
		Int("samples", len(u.PCM)).
		Dur("duration", u.Duration()).
		Msg("Segmented utterance")
	return u
}

func (s *Segmenter) emptyUtterance(p Params) *Utterance {
	return &Utterance{SampleRate: p.SampleRate}
}

func (s *Segmenter) dumpDebug(pcm []int16, sampleRate int) {
	if s.opts.DebugDir == "" {
		return
	}
	path := filepath.Join(s.opts.DebugDir, "last_raw.wav")
	if err := WriteWAVFile(path, pcm, sampleRate); err != nil {
		log.Warn().Err(err).Str("file", path).Msg("Failed to save debug audio")
		return
	}
	log.Debug().Str("file", path).Msg("Saved raw capture")
}

// Offer performs the non-blocking hand-off used by every frame producer: a full
// queue drops the frame instead of stalling the capture callback.
func Offer(out chan<- Frame, frame Frame) bool {
	select {
	case out <- frame:
		return true
	default:
		metrics.FramesDropped.WithLabelValues("queue_full").Inc()
		return false
	}
}

// pushCutter decides where a push-to-talk capture ends. Silence is measured in
// audio time, counting the current quiet frame, so the cut depends only on the
// samples and never on scheduling jitter.
type pushCutter struct {
	p          Params
	buf        []int16
	silence    time.Duration
	maxSamples int
	minSamples int
	heard      bool
}

func newPushCutter(p Params) *pushCutter {
	return &pushCutter{
		p:          p,
		maxSamples: samplesFor(p.MaxDuration, p.SampleRate),
		minSamples: samplesFor(p.MinDuration, p.SampleRate),
	}
}

func (c *pushCutter) add(frame Frame) bool {
	c.buf = append(c.buf, frame...)

	if MeanAbs(frame) >= c.p.EnergyThreshold {
		c.heard = true
		c.silence = 0
	} else {
		c.silence += samplesDuration(len(frame), c.p.SampleRate)
		if c.silence >= c.p.SilenceTimeout && len(c.buf) >= c.minSamples {
			return true
		}
	}

	return len(c.buf) >= c.maxSamples
}

// continuousCutter accumulates speech frames only and releases the buffer once a
// silence run reaches the timeout.
type continuousCutter struct {
	p       Params
	buf     []int16
	silence time.Duration
}

func newContinuousCutter(p Params) *continuousCutter {
	return &continuousCutter{p: p}
}

func (c *continuousCutter) add(frame Frame) []int16 {
	if MeanAbs(frame) >= c.p.EnergyThreshold {
		c.buf = append(c.buf, frame...)
		c.silence = 0
		return nil
	}
	if len(c.buf) == 0 {
		return nil
	}

	c.silence += samplesDuration(len(frame), c.p.SampleRate)
	if c.silence < c.p.SilenceTimeout {
		return nil
	}

	segment := c.buf
	c.buf = nil
	c.silence = 0
	return segment
}

func hasSpeech(pcm []int16, frameSamples int, threshold float64) bool {
	for off := 0; off < len(pcm); off += frameSamples {
		end := off + frameSamples
		if end > len(pcm) {
			end = len(pcm)
		}
		if MeanAbs(pcm[off:end]) >= threshold {
			return true
		}
	}
	return false
}

// IsCaptureError reports whether err came from the capture backend.
func IsCaptureError(err error) bool {
	return errors.Is(err, ErrCapture)
}
