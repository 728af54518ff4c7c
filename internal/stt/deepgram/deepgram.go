package deepgram

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	prerecorded "github.com/deepgram/deepgram-go-sdk/pkg/api/prerecorded/v1"
	interfaces "github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/pkg/client/prerecorded"
	"github.com/rs/zerolog/log"
	"github.com/user/mana-voicebot/internal/audio"
	"github.com/user/mana-voicebot/internal/stt"
)

const requestTimeout = 30 * time.Second

type DeepgramTranscriber struct {
	apiKey  string
	options interfaces.PreRecordedTranscriptionOptions

	// nil when the SDK rejected the client options, e.g. a missing API key.
	dg *prerecorded.PrerecordedClient
}

func NewDeepgramTranscriber(apiKey, model, language string, punctuate bool) *DeepgramTranscriber {
	d := &DeepgramTranscriber{
		apiKey: apiKey,
		options: interfaces.PreRecordedTranscriptionOptions{
			Model:       model,
			Language:    language,
			Punctuate:   punctuate,
			SmartFormat: true,
		},
	}
	d.connect(interfaces.ClientOptions{})
	return d
}

// WithBaseURL points the client at another host, e.g. a test server. The
// scheme is kept, so "http://127.0.0.1:port" works.
func (d *DeepgramTranscriber) WithBaseURL(u string) *DeepgramTranscriber {
	d.connect(interfaces.ClientOptions{Host: u})
	return d
}

func (d *DeepgramTranscriber) connect(opts interfaces.ClientOptions) {
	c := client.New(d.apiKey, opts)
	if c == nil {
		d.dg = nil
		return
	}
	d.dg = prerecorded.New(c)
}

func (d *DeepgramTranscriber) Transcribe(ctx context.Context, u *audio.Utterance) (*stt.Transcript, error) {
	if u.Empty() {
		return &stt.Transcript{Source: "deepgram"}, nil
	}
	if d.dg == nil {
		return nil, fmt.Errorf("%w: Deepgram client not configured", stt.ErrTranscription)
	}

	wavData := audio.EncodeWAV(u.PCM, u.SampleRate)

	log.Debug().
		Str("model", d.options.Model).
		Str("language", d.options.Language).
		Bool("punctuate", d.options.Punctuate).
		Int("audio_size_bytes", len(wavData)).
		Msg("Making Deepgram API request")

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := d.dg.FromStream(ctx, bytes.NewReader(wavData), d.options)
	if err != nil {
		log.Warn().Err(err).Msg("Deepgram API error response")
		return nil, fmt.Errorf("Deepgram API request failed: %w", err)
	}

	t := &stt.Transcript{UtteranceID: u.ID, Source: "deepgram"}
	if res.Results == nil || len(res.Results.Channels) == 0 || len(res.Results.Channels[0].Alternatives) == 0 {
		log.Debug().Msg("No alternatives in Deepgram response")
		return t, nil
	}

	best := res.Results.Channels[0].Alternatives[0]
	t.Text = strings.TrimSpace(best.Transcript)
	t.Confidence = best.Confidence

	log.Debug().
		Str("utterance_id", u.ID.String()).
		Str("transcript", t.Text).
		Float64("confidence", t.Confidence).
		Msg("Deepgram transcription completed")

	return t, nil
}

func (d *DeepgramTranscriber) Close() error {
	return nil
}
