package openai

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"
	"github.com/user/mana-voicebot/internal/audio"
)

// SampleRate of the raw PCM returned by the speech endpoint.
const SampleRate = 24000

// OpenAISpeaker synthesises replies and plays them. The echo guard is raised for
// the whole synthesis and playback so the microphone ignores the bot's own voice.
type OpenAISpeaker struct {
	client *openai.Client
	model  string
	voice  string
	player audio.Player
	guard  *audio.EchoGuard
}

func NewOpenAISpeaker(apiKey, model, voice string, player audio.Player, guard *audio.EchoGuard) *OpenAISpeaker {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAISpeaker{
		client: &client,
		model:  model,
		voice:  voice,
		player: player,
		guard:  guard,
	}
}

func (s *OpenAISpeaker) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.guard.Raise()
	defer s.guard.Lower()

	pcm, err := s.synthesise(ctx, text)
	if err != nil {
		return err
	}

	log.Debug().
		Int("samples", len(pcm)).
		Str("voice", s.voice).
		Msg("Playing synthesised reply")

	if err := s.player.Play(ctx, pcm, SampleRate); err != nil {
		return fmt.Errorf("failed to play reply: %w", err)
	}
	return nil
}

func (s *OpenAISpeaker) synthesise(ctx context.Context, text string) ([]int16, error) {
	resp, err := s.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(s.model),
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(s.voice),
		Instructions:   openai.String("Speak naturally in Persian."),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatPCM,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to synthesise speech: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read speech audio: %w", err)
	}
	return audio.BytesToInt16(data), nil
}
