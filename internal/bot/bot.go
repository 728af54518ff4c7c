package bot

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/user/mana-voicebot/internal/audio"
	"github.com/user/mana-voicebot/internal/config"
	"github.com/user/mana-voicebot/internal/names"
	"github.com/user/mana-voicebot/internal/reasoner"
	"github.com/user/mana-voicebot/internal/reasoner/gemini"
	reasoneropenai "github.com/user/mana-voicebot/internal/reasoner/openai"
	"github.com/user/mana-voicebot/internal/skills"
	"github.com/user/mana-voicebot/internal/store"
	"github.com/user/mana-voicebot/internal/stt"
	"github.com/user/mana-voicebot/internal/stt/deepgram"
	sttopenai "github.com/user/mana-voicebot/internal/stt/openai"
	"github.com/user/mana-voicebot/internal/stt/vosk"
	"github.com/user/mana-voicebot/internal/tts"
	ttsopenai "github.com/user/mana-voicebot/internal/tts/openai"
)

type Mode int

const (
	ModeText Mode = iota
	ModeVoice
)

type Bot struct {
	config       *config.Config
	mode         Mode
	store        *store.FileStore
	clients      *store.Clients
	reasoner     reasoner.Reasoner
	transcriber  stt.Transcriber
	device       *audio.PortAudio
	vad          *audio.WebRTCVAD
	guard        *audio.EchoGuard
	segmenter    *audio.Segmenter
	orchestrator *Orchestrator
}

func NewBot(cfg *config.Config, mode Mode) (*Bot, error) {
	if mode == ModeVoice {
		if err := cfg.ValidateVoice(); err != nil {
			return nil, err
		}
	}

	// Create store
	fileStore, err := store.NewFileStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	clients := store.NewClients(cfg.ClientsFile())

	// Create reasoner based on config
	systemPrompt := reasoner.LoadSystemPrompt(cfg.PromptsDir())
	var r reasoner.Reasoner
	switch cfg.ReasonerBackend {
	case "gemini":
		r, err = gemini.NewGeminiReasoner(cfg.GenAIAPIKey, cfg.GenAIModel, systemPrompt)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini reasoner: %w", err)
		}
	case "openai":
		r = reasoneropenai.NewOpenAIReasoner(cfg.OpenAIAPIKey, cfg.OpenAIResponseModel, systemPrompt)
	default:
		return nil, fmt.Errorf("unsupported reasoner backend: %s", cfg.ReasonerBackend)
	}

	b := &Bot{
		config:   cfg,
		mode:     mode,
		store:    fileStore,
		clients:  clients,
		reasoner: r,
		guard:    audio.NewEchoGuard(),
	}

	var renderer tts.Renderer
	if mode == ModeVoice {
		if err := b.setupVoice(); err != nil {
			b.Close()
			return nil, err
		}
		renderer = b.newRenderer()
	}

	registry := skills.NewDefaultRegistry(skills.Branding{
		Assistant: skills.DefaultBranding().Assistant,
		Business:  cfg.BusinessName,
		Product:   cfg.ProductName,
	})

	b.orchestrator = NewOrchestrator(fileStore, clients, r, registry, renderer, OrchestratorOptions{
		HistoryLimit:         cfg.HistoryLimit,
		ResumeHistory:        cfg.ResumeHistory,
		ScreenTestUtterances: cfg.ScreenTestUtterances,
	})

	return b, nil
}

func (b *Bot) setupVoice() error {
	cfg := b.config

	device, err := audio.NewPortAudio(cfg.SampleRate)
	if err != nil {
		return fmt.Errorf("failed to open audio device: %w", err)
	}
	b.device = device

	opts := audio.Options{
		PushToTalk: audio.Params{
			SampleRate:      cfg.SampleRate,
			FrameDuration:   cfg.PushChunk,
			MaxDuration:     cfg.RecordSeconds,
			MinDuration:     cfg.MinSpeechDuration,
			SilenceTimeout:  cfg.PushSilenceTimeout,
			EnergyThreshold: cfg.PushEnergyThreshold,
			TrimThreshold:   cfg.SilenceTrimThreshold,
		},
		Realtime: audio.Params{
			SampleRate:      cfg.SampleRate,
			FrameDuration:   cfg.RealtimeChunk,
			SilenceTimeout:  cfg.RealtimeSilenceTimeout,
			EnergyThreshold: cfg.RealtimeEnergyThreshold,
			TrimThreshold:   cfg.SilenceTrimThreshold,
		},
	}
	if cfg.UseVADFilter {
		vad, err := audio.NewWebRTCVAD(cfg.VADAggressiveness)
		if err != nil {
			return fmt.Errorf("failed to create voice activity detector: %w", err)
		}
		b.vad = vad
		opts.Filter = vad
	}
	if cfg.DebugAudio {
		opts.DebugDir = cfg.AudioDir()
	}

	b.segmenter, err = audio.NewSegmenter(device, opts)
	if err != nil {
		return fmt.Errorf("failed to create segmenter: %w", err)
	}

	primary, err := b.newTranscriber(cfg.STTBackend)
	if err != nil {
		return err
	}
	var secondary stt.Transcriber
	if cfg.STTFallbackBackend != "none" && cfg.STTFallbackBackend != cfg.STTBackend {
		secondary, err = b.newTranscriber(cfg.STTFallbackBackend)
		if err != nil {
			log.Warn().Err(err).Str("backend", cfg.STTFallbackBackend).Msg("Fallback transcriber unavailable")
			secondary = nil
		}
	}
	b.transcriber = stt.NewFallback(primary, secondary)
	return nil
}

// Create transcriber based on config
func (b *Bot) newTranscriber(backend string) (stt.Transcriber, error) {
	cfg := b.config
	switch backend {
	case "openai":
		return sttopenai.NewOpenAITranscriber(
			cfg.OpenAIAPIKey,
			cfg.OpenAITranscribeModel,
			cfg.OpenAITranscribeFallback,
			cfg.STTLanguage,
			b.clients.All,
		).WithCommonNames(names.LoadNames(cfg.NamesFile())), nil
	case "vosk":
		t, err := vosk.NewVoskTranscriber(cfg.VoskModelPath, cfg.SampleRate)
		if err != nil {
			return nil, fmt.Errorf("failed to create Vosk transcriber: %w", err)
		}
		return t, nil
	case "deepgram":
		return deepgram.NewDeepgramTranscriber(
			cfg.DeepgramAPIKey,
			cfg.DeepgramTier,
			cfg.STTLanguage,
			cfg.DeepgramPunctuate,
		), nil
	default:
		return nil, fmt.Errorf("unsupported STT backend: %s", backend)
	}
}

func (b *Bot) newRenderer() tts.Renderer {
	console := tts.NewConsole(os.Stdout, "Bot: ")
	if b.config.TTSBackend != "openai" {
		return console
	}
	return tts.Tee{
		console,
		ttsopenai.NewOpenAISpeaker(b.config.OpenAIAPIKey, b.config.TTSModel, b.config.TTSVoice, b.device, b.guard),
	}
}

// Start seeds the state and opens a new session.
func (b *Bot) Start() error {
	if err := b.orchestrator.Start(); err != nil {
		return err
	}
	log.Info().
		Str("session", b.orchestrator.SessionName()).
		Str("reasoner", b.config.ReasonerBackend).
		Str("data_dir", filepath.Clean(b.config.DataDir)).
		Msg("Voice bot started")
	return nil
}

func (b *Bot) RunText(ctx context.Context, in io.Reader, out io.Writer) error {
	return b.orchestrator.RunText(ctx, in, out)
}

func (b *Bot) RunVoice(ctx context.Context, in io.Reader, out io.Writer, realtime bool) error {
	if b.mode != ModeVoice {
		return fmt.Errorf("bot was not created in voice mode")
	}
	if realtime {
		log.Info().Msg("Listening continuously, press Ctrl+C to stop")
		return b.orchestrator.RunRealtime(ctx, b.segmenter, b.guard, b.transcriber)
	}
	return b.orchestrator.RunVoice(ctx, in, out, b.segmenter, b.transcriber)
}

func (b *Bot) Close() error {
	// Close transcriber
	if b.transcriber != nil {
		b.transcriber.Close()
	}

	// Close reasoner
	if b.reasoner != nil {
		b.reasoner.Close()
	}

	if b.vad != nil {
		b.vad.Close()
	}

	if b.device != nil {
		b.device.Close()
	}

	log.Info().Msg("Voice bot stopped")
	return nil
}
