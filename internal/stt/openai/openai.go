package openai

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"
	"github.com/user/mana-voicebot/internal/audio"
	"github.com/user/mana-voicebot/internal/names"
	"github.com/user/mana-voicebot/internal/stt"
)

// HintsFunc returns names the recogniser should be biased towards.
type HintsFunc func() []string

// OpenAITranscriber calls the hosted transcription endpoint. When the primary
// model fails the fallback model is tried with the same request.
type OpenAITranscriber struct {
	client        *openai.Client
	model         string
	fallbackModel string
	language      string
	hints         HintsFunc
	common        []string

	warned atomic.Bool
}

func NewOpenAITranscriber(apiKey, model, fallbackModel, language string, hints HintsFunc) *OpenAITranscriber {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAITranscriber{
		client:        &client,
		model:         model,
		fallbackModel: fallbackModel,
		language:      language,
		hints:         hints,
	}
}

// WithCommonNames replaces the default names hinted before any client is known.
func (o *OpenAITranscriber) WithCommonNames(common []string) *OpenAITranscriber {
	o.common = common
	return o
}

func (o *OpenAITranscriber) Transcribe(ctx context.Context, u *audio.Utterance) (*stt.Transcript, error) {
	if u.Empty() {
		return &stt.Transcript{Source: "openai"}, nil
	}

	wavData := audio.EncodeWAV(u.PCM, u.SampleRate)
	prompt := o.prompt()

	text, err := o.transcribe(ctx, o.model, wavData, prompt)
	source := o.model
	if err != nil && ctx.Err() == nil && o.fallbackModel != "" && o.fallbackModel != o.model {
		if o.warned.CompareAndSwap(false, true) {
			log.Warn().Err(err).Str("model", o.model).Str("fallback", o.fallbackModel).Msg("Transcription model failed, retrying with fallback model")
		}
		text, err = o.transcribe(ctx, o.fallbackModel, wavData, prompt)
		source = o.fallbackModel
	}
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("utterance_id", u.ID.String()).
		Str("model", source).
		Str("text", text).
		Msg("OpenAI transcription completed")

	return &stt.Transcript{
		UtteranceID: u.ID,
		Text:        text,
		Source:      "openai:" + source,
	}, nil
}

func (o *OpenAITranscriber) transcribe(ctx context.Context, model string, wavData []byte, prompt string) (string, error) {
	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(wavData), "speech.wav", "audio/wav"),
		Model: openai.AudioModel(model),
	}
	if o.language != "" {
		params.Language = openai.String(o.language)
	}
	if prompt != "" {
		params.Prompt = openai.String(prompt)
	}

	resp, err := o.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to transcribe with %s: %w", model, err)
	}
	return strings.TrimSpace(resp.Text), nil
}

func (o *OpenAITranscriber) prompt() string {
	var known []string
	if o.hints != nil {
		known = o.hints()
	}
	return names.TranscriptionPromptWith(known, o.common)
}

func (o *OpenAITranscriber) Close() error {
	return nil
}
