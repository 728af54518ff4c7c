package bot

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/user/mana-voicebot/internal/audio"
	"github.com/user/mana-voicebot/internal/metrics"
	"github.com/user/mana-voicebot/internal/stt"
)

const (
	quitCommand = "q"

	defaultRestartBackoff = 2 * time.Second
	defaultMaxRestarts    = 5
)

// readLines forwards lines from r until it is exhausted or ctx is done.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

func isQuit(line string) bool {
	return strings.EqualFold(strings.TrimSpace(line), quitCommand)
}

// RunText reads one turn per line from in until "q", end of input or ctx is done.
func (o *Orchestrator) RunText(ctx context.Context, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Multi-domain bot (text mode). Type 'q' to quit.")
	lines := readLines(ctx, in)

	for {
		fmt.Fprint(out, "You: ")
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok || isQuit(line) {
				return nil
			}
			result, err := o.HandleTurn(ctx, line)
			if errors.Is(err, ErrEmptyTurn) {
				continue
			}
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			if o.renderer == nil {
				fmt.Fprintf(out, "[%s/%s] Bot: %s\n", result.Domain, result.Intent, result.Reply)
			}
		}
	}
}

// RunVoice runs push-to-talk turns: Enter starts a capture, "q" quits.
func (o *Orchestrator) RunVoice(ctx context.Context, in io.Reader, out io.Writer, seg *audio.Segmenter, tr stt.Transcriber) error {
	fmt.Fprintln(out, "Multi-domain bot (voice mode). Press Enter to speak, 'q' to quit.")
	lines := readLines(ctx, in)

	for {
		fmt.Fprint(out, "[Enter] to speak: ")
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok || isQuit(line) {
				return nil
			}
		}

		o.setPhase(PhaseCapturing)
		u, err := seg.Capture(ctx)
		if err != nil {
			o.setPhase(PhaseIdle)
			if ctx.Err() != nil {
				return nil
			}
			metrics.Fallbacks.WithLabelValues("capture").Inc()
			log.Warn().Err(err).Msg("Capture failed")
			continue
		}
		if u.Empty() {
			o.setPhase(PhaseIdle)
			fmt.Fprintln(out, "(nothing heard)")
			continue
		}

		if err := o.transcribeAndHandle(ctx, tr, u); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// RunRealtime listens continuously and handles every utterance as a turn. The
// guard should be the one raised by the renderer during playback. Capture
// failures restart the stream after a backoff; the loop gives up after
// repeated consecutive failures.
func (o *Orchestrator) RunRealtime(ctx context.Context, seg *audio.Segmenter, guard *audio.EchoGuard, tr stt.Transcriber) error {
	return o.runRealtime(ctx, seg, guard, tr, defaultRestartBackoff, defaultMaxRestarts)
}

func (o *Orchestrator) runRealtime(ctx context.Context, seg *audio.Segmenter, guard *audio.EchoGuard, tr stt.Transcriber, backoff time.Duration, maxRestarts int) error {
	handle := func(ctx context.Context, u *audio.Utterance) error {
		return o.transcribeAndHandle(ctx, tr, u)
	}

	failures := 0
	for {
		o.setPhase(PhaseCapturing)
		err := seg.Listen(ctx, guard, handle)
		o.setPhase(PhaseIdle)

		switch {
		case ctx.Err() != nil:
			return nil
		case err == nil:
			log.Info().Msg("Audio stream ended")
			return nil
		case !audio.IsCaptureError(err):
			return err
		}

		failures++
		metrics.Fallbacks.WithLabelValues("capture").Inc()
		if failures > maxRestarts {
			return fmt.Errorf("giving up after %d capture failures: %w", failures, err)
		}
		log.Warn().Err(err).Int("attempt", failures).Dur("backoff", backoff).Msg("Capture failed, restarting stream")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
	}
}

// transcribeAndHandle turns one utterance into a turn. Transcription failures and
// empty transcripts count as "no input this cycle".
func (o *Orchestrator) transcribeAndHandle(ctx context.Context, tr stt.Transcriber, u *audio.Utterance) error {
	o.setPhase(PhaseTranscribing)
	t, err := tr.Transcribe(ctx, u)
	if err != nil {
		o.setPhase(PhaseIdle)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Str("utterance_id", u.ID.String()).Msg("Transcription failed, skipping utterance")
		return nil
	}

	log.Info().
		Str("utterance_id", u.ID.String()).
		Str("source", t.Source).
		Dur("duration", u.Duration()).
		Str("text", t.Text).
		Msg("Heard utterance")

	if _, err := o.HandleTurn(ctx, t.Text); err != nil {
		if errors.Is(err, ErrEmptyTurn) {
			o.setPhase(PhaseIdle)
			return nil
		}
		return err
	}
	return nil
}
