package vosk

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/alphacep/vosk-api/go"
	"github.com/rs/zerolog/log"
	"github.com/user/mana-voicebot/internal/audio"
	"github.com/user/mana-voicebot/internal/stt"
)

// VoskTranscriber runs recognition offline. A recognizer is stateful, so calls
// are serialised and the recognizer is reset after every utterance.
type VoskTranscriber struct {
	model      *vosk.VoskModel
	recognizer *vosk.VoskRecognizer
	sampleRate int
	mu         sync.Mutex
}

type VoskResult struct {
	Text   string     `json:"text"`
	Result []VoskWord `json:"result"`
}

type VoskWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Conf  float64 `json:"conf"`
}

// confidence averages the per-word confidences, or 0 without word results.
func (r VoskResult) confidence() float64 {
	if len(r.Result) == 0 {
		return 0
	}
	var sum float64
	for _, w := range r.Result {
		sum += w.Conf
	}
	return sum / float64(len(r.Result))
}

func NewVoskTranscriber(modelPath string, sampleRate int) (*VoskTranscriber, error) {
	log.Info().Str("model_path", modelPath).Msg("Loading Vosk model")

	model, err := vosk.NewModel(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load Vosk model from %s: %w", modelPath, err)
	}

	recognizer, err := vosk.NewRecognizer(model, float64(sampleRate))
	if err != nil {
		model.Free()
		return nil, fmt.Errorf("failed to create Vosk recognizer: %w", err)
	}
	recognizer.SetWords(1)

	log.Info().Msg("Vosk model loaded successfully")

	return &VoskTranscriber{
		model:      model,
		recognizer: recognizer,
		sampleRate: sampleRate,
	}, nil
}

func (v *VoskTranscriber) Transcribe(ctx context.Context, u *audio.Utterance) (*stt.Transcript, error) {
	if u.Empty() {
		return &stt.Transcript{Source: "vosk"}, nil
	}
	if u.SampleRate != v.sampleRate {
		return nil, fmt.Errorf("vosk recognizer expects %d Hz, got %d Hz", v.sampleRate, u.SampleRate)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	defer v.recognizer.Reset()

	if v.recognizer.AcceptWaveform(audio.EncodePCM(u.PCM)) < 0 {
		return nil, fmt.Errorf("failed to process audio")
	}

	jsonResult := v.recognizer.FinalResult()
	var voskResult VoskResult
	if err := json.Unmarshal([]byte(jsonResult), &voskResult); err != nil {
		return nil, fmt.Errorf("failed to parse Vosk result: %w", err)
	}

	t := &stt.Transcript{
		UtteranceID: u.ID,
		Text:        strings.TrimSpace(voskResult.Text),
		Source:      "vosk",
		Confidence:  voskResult.confidence(),
	}

	log.Debug().
		Str("utterance_id", u.ID.String()).
		Str("text", t.Text).
		Float64("confidence", t.Confidence).
		Msg("Vosk transcription completed")

	return t, nil
}

func (v *VoskTranscriber) Close() error {
	if v.recognizer != nil {
		v.recognizer.Free()
	}
	if v.model != nil {
		v.model.Free()
	}
	return nil
}
