package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// Credentials
	OpenAIAPIKey string
	GenAIAPIKey  string

	// Reasoning backend
	ReasonerBackend     string // "gemini" or "openai"
	GenAIModel          string
	OpenAIResponseModel string

	// STT backends
	STTBackend         string // "openai", "deepgram" or "vosk"
	STTFallbackBackend string // same values, or "none"
	STTLanguage        string

	OpenAITranscribeModel    string
	OpenAITranscribeFallback string

	VoskModelPath string

	DeepgramAPIKey    string
	DeepgramTier      string
	DeepgramPunctuate bool

	// Rendering
	TTSBackend string // "openai" or "console"
	TTSModel   string
	TTSVoice   string

	// Audio capture
	SampleRate    int
	RecordSeconds time.Duration

	PushChunk            time.Duration
	PushSilenceTimeout   time.Duration
	PushEnergyThreshold  float64
	SilenceTrimThreshold float64
	MinSpeechDuration    time.Duration

	RealtimeChunk           time.Duration
	RealtimeSilenceTimeout  time.Duration
	RealtimeEnergyThreshold float64

	VADAggressiveness int
	UseVADFilter      bool

	// Conversation
	HistoryLimit         int
	ResumeHistory        bool
	ScreenTestUtterances bool
	BusinessName         string
	ProductName          string

	// Storage
	DataDir    string
	DebugAudio bool

	// Metrics
	MetricsAddr string

	// Logging
	LogLevel string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("No .env file found, using environment variables only")
	}

	cfg := &Config{
		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		GenAIAPIKey:  os.Getenv("GENAI_API_KEY"),

		ReasonerBackend:     getEnvOrDefault("REASONER_BACKEND", "gemini"),
		GenAIModel:          getEnvOrDefault("GENAI_MODEL", "gemini-2.5-flash"),
		OpenAIResponseModel: getEnvOrDefault("OPENAI_RESPONSE_MODEL", "gpt-4o-mini"),

		STTBackend:         getEnvOrDefault("STT_BACKEND", "openai"),
		STTFallbackBackend: getEnvOrDefault("STT_FALLBACK_BACKEND", "openai"),
		STTLanguage:        getEnvOrDefault("STT_LANGUAGE", "fa"),

		OpenAITranscribeModel:    getEnvOrDefault("OPENAI_TRANSCRIBE_MODEL", "gpt-4o-mini-transcribe"),
		OpenAITranscribeFallback: getEnvOrDefault("OPENAI_TRANSCRIBE_FALLBACK", "whisper-1"),

		VoskModelPath: getEnvOrDefault("VOSK_MODEL_PATH", "./models/vosk/fa"),

		DeepgramAPIKey:    os.Getenv("DEEPGRAM_API_KEY"),
		DeepgramTier:      getEnvOrDefault("DEEPGRAM_TIER", "nova-2"),
		DeepgramPunctuate: getBoolEnvOrDefault("DEEPGRAM_PUNCTUATE", true),

		TTSBackend: getEnvOrDefault("TTS_BACKEND", "openai"),
		TTSModel:   getEnvOrDefault("OPENAI_TTS_MODEL", "gpt-4o-mini-tts"),
		TTSVoice:   getEnvOrDefault("OPENAI_TTS_VOICE", "alloy"),

		SampleRate:    getIntEnvOrDefault("SAMPLE_RATE", 16000),
		RecordSeconds: getDurationEnvOrDefault("RECORD_SECONDS", 8*time.Second),

		PushChunk:            getDurationEnvOrDefault("PUSH_CHUNK", 300*time.Millisecond),
		PushSilenceTimeout:   getDurationEnvOrDefault("PUSH_SILENCE_TIMEOUT", 1500*time.Millisecond),
		PushEnergyThreshold:  getFloatEnvOrDefault("PUSH_ENERGY_THRESHOLD", 80),
		SilenceTrimThreshold: getFloatEnvOrDefault("SILENCE_TRIM_THRESHOLD", 40),
		MinSpeechDuration:    getDurationEnvOrDefault("MIN_SPEECH_DURATION", 500*time.Millisecond),

		RealtimeChunk:           getDurationEnvOrDefault("REALTIME_CHUNK", 250*time.Millisecond),
		RealtimeSilenceTimeout:  getDurationEnvOrDefault("REALTIME_SILENCE_TIMEOUT", 350*time.Millisecond),
		RealtimeEnergyThreshold: getFloatEnvOrDefault("REALTIME_ENERGY_THRESHOLD", 200),

		VADAggressiveness: getIntEnvOrDefault("VAD_AGGRESSIVENESS", 1),
		UseVADFilter:      getBoolEnvOrDefault("USE_VAD_FILTER", false),

		HistoryLimit:         getIntEnvOrDefault("HISTORY_LIMIT", 16),
		ResumeHistory:        getBoolEnvOrDefault("RESUME_HISTORY", false),
		ScreenTestUtterances: getBoolEnvOrDefault("SCREEN_TEST_UTTERANCES", true),
		BusinessName:         getEnvOrDefault("BUSINESS_NAME", "DrX"),
		ProductName:          getEnvOrDefault("PRODUCT_NAME", "TeleBot AI"),

		DataDir:    getEnvOrDefault("DATA_DIR", "./var"),
		DebugAudio: getBoolEnvOrDefault("DEBUG_AUDIO", true),

		MetricsAddr: os.Getenv("METRICS_ADDR"),

		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
	}

	return cfg, cfg.validate()
}

// NeedsOpenAI reports whether any backend used in the given mode talks to the
// OpenAI API. Transcription and speech only run in voice mode.
func (c *Config) NeedsOpenAI(voice bool) bool {
	if c.ReasonerBackend == "openai" {
		return true
	}
	return voice && (c.STTBackend == "openai" ||
		c.STTFallbackBackend == "openai" ||
		c.TTSBackend == "openai")
}

func (c *Config) PromptsDir() string  { return filepath.Join(c.DataDir, "prompts") }
func (c *Config) AudioDir() string    { return filepath.Join(c.DataDir, "audio") }
func (c *Config) ClientsFile() string { return filepath.Join(c.DataDir, "clients.json") }
func (c *Config) NamesFile() string   { return filepath.Join(c.DataDir, "iranian_names.txt") }

func (c *Config) validate() error {
	switch c.ReasonerBackend {
	case "gemini":
		if c.GenAIAPIKey == "" {
			return fmt.Errorf("GENAI_API_KEY is required when using gemini reasoner")
		}
	case "openai":
	default:
		return fmt.Errorf("REASONER_BACKEND must be 'gemini' or 'openai'")
	}

	if !validSTT(c.STTBackend) {
		return fmt.Errorf("STT_BACKEND must be 'openai', 'deepgram' or 'vosk'")
	}
	if c.STTFallbackBackend != "none" && !validSTT(c.STTFallbackBackend) {
		return fmt.Errorf("STT_FALLBACK_BACKEND must be 'openai', 'deepgram', 'vosk' or 'none'")
	}
	if c.TTSBackend != "openai" && c.TTSBackend != "console" {
		return fmt.Errorf("TTS_BACKEND must be 'openai' or 'console'")
	}

	if c.NeedsOpenAI(false) && c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when using openai reasoner")
	}

	if c.HistoryLimit <= 0 {
		return fmt.Errorf("HISTORY_LIMIT must be positive")
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("SAMPLE_RATE must be positive")
	}
	if c.VADAggressiveness < 0 || c.VADAggressiveness > 3 {
		return fmt.Errorf("VAD_AGGRESSIVENESS must be between 0 and 3")
	}

	return nil
}

// ValidateVoice checks the credentials of the transcription and speech
// backends. Load leaves them alone so text mode runs without them.
func (c *Config) ValidateVoice() error {
	if (c.STTBackend == "deepgram" || c.STTFallbackBackend == "deepgram") && c.DeepgramAPIKey == "" {
		return fmt.Errorf("DEEPGRAM_API_KEY is required when using deepgram backend")
	}
	if c.NeedsOpenAI(true) && c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required for the selected voice backends")
	}
	return nil
}

func validSTT(backend string) bool {
	return backend == "openai" || backend == "deepgram" || backend == "vosk"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnvOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getBoolEnvOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getDurationEnvOrDefault accepts Go durations ("350ms") or plain seconds ("1.5").
func getDurationEnvOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return defaultValue
}
