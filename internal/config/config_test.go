package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every key Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"OPENAI_API_KEY", "GENAI_API_KEY", "REASONER_BACKEND", "GENAI_MODEL", "OPENAI_RESPONSE_MODEL",
		"STT_BACKEND", "STT_FALLBACK_BACKEND", "STT_LANGUAGE", "DEEPGRAM_API_KEY", "TTS_BACKEND",
		"SAMPLE_RATE", "RECORD_SECONDS", "PUSH_CHUNK", "PUSH_SILENCE_TIMEOUT", "REALTIME_CHUNK",
		"REALTIME_SILENCE_TIMEOUT", "HISTORY_LIMIT", "RESUME_HISTORY", "SCREEN_TEST_UTTERANCES",
		"VAD_AGGRESSIVENESS", "DATA_DIR",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("GENAI_API_KEY", "g")
	t.Setenv("OPENAI_API_KEY", "o")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.ReasonerBackend)
	assert.Equal(t, "openai", cfg.STTBackend)
	assert.Equal(t, 16, cfg.HistoryLimit)
	assert.Equal(t, 16000, cfg.SampleRate)
	assert.Equal(t, 8*time.Second, cfg.RecordSeconds)
	assert.Equal(t, 350*time.Millisecond, cfg.RealtimeSilenceTimeout)
	assert.True(t, cfg.ScreenTestUtterances)
	assert.Equal(t, filepath.Join("./var", "prompts"), cfg.PromptsDir())
	assert.Equal(t, filepath.Join("./var", "clients.json"), cfg.ClientsFile())
	assert.Equal(t, filepath.Join("./var", "iranian_names.txt"), cfg.NamesFile())
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("REASONER_BACKEND", "openai")
	t.Setenv("OPENAI_API_KEY", "o")
	t.Setenv("PUSH_SILENCE_TIMEOUT", "2.5")
	t.Setenv("REALTIME_CHUNK", "100ms")
	t.Setenv("HISTORY_LIMIT", "4")
	t.Setenv("RESUME_HISTORY", "true")
	t.Setenv("SAMPLE_RATE", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2500*time.Millisecond, cfg.PushSilenceTimeout)
	assert.Equal(t, 100*time.Millisecond, cfg.RealtimeChunk)
	assert.Equal(t, 4, cfg.HistoryLimit)
	assert.True(t, cfg.ResumeHistory)
	assert.Equal(t, 16000, cfg.SampleRate)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		msg  string
	}{
		{
			name: "gemini without key",
			env:  map[string]string{"OPENAI_API_KEY": "o"},
			msg:  "GENAI_API_KEY",
		},
		{
			name: "openai reasoner without key",
			env:  map[string]string{"REASONER_BACKEND": "openai"},
			msg:  "OPENAI_API_KEY",
		},
		{
			name: "unknown reasoner",
			env:  map[string]string{"REASONER_BACKEND": "llama"},
			msg:  "REASONER_BACKEND",
		},
		{
			name: "bad fallback",
			env:  map[string]string{"GENAI_API_KEY": "g", "OPENAI_API_KEY": "o", "STT_FALLBACK_BACKEND": "whisper"},
			msg:  "STT_FALLBACK_BACKEND",
		},
		{
			name: "bad vad",
			env:  map[string]string{"GENAI_API_KEY": "g", "OPENAI_API_KEY": "o", "VAD_AGGRESSIVENESS": "5"},
			msg:  "VAD_AGGRESSIVENESS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoad_LocalBackendsNeedNoOpenAIKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("GENAI_API_KEY", "g")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("STT_BACKEND", "vosk")
	t.Setenv("STT_FALLBACK_BACKEND", "none")
	t.Setenv("TTS_BACKEND", "console")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.NeedsOpenAI(true))
	assert.NoError(t, cfg.ValidateVoice())
}

func TestLoad_TextModeWithGeminiNeedsNoOpenAIKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("GENAI_API_KEY", "g")

	// STT and TTS default to openai, which only voice mode uses.
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.NeedsOpenAI(false))
	assert.True(t, cfg.NeedsOpenAI(true))

	err = cfg.ValidateVoice()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestValidateVoice(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		msg  string
	}{
		{
			name: "deepgram without key",
			cfg:  Config{ReasonerBackend: "gemini", STTBackend: "deepgram", STTFallbackBackend: "none", TTSBackend: "console"},
			msg:  "DEEPGRAM_API_KEY",
		},
		{
			name: "openai fallback without key",
			cfg:  Config{ReasonerBackend: "gemini", STTBackend: "vosk", STTFallbackBackend: "openai", TTSBackend: "console"},
			msg:  "OPENAI_API_KEY",
		},
		{
			name: "openai speech without key",
			cfg:  Config{ReasonerBackend: "gemini", STTBackend: "vosk", STTFallbackBackend: "none", TTSBackend: "openai"},
			msg:  "OPENAI_API_KEY",
		},
		{
			name: "all keys present",
			cfg: Config{ReasonerBackend: "gemini", STTBackend: "deepgram", STTFallbackBackend: "openai", TTSBackend: "openai",
				DeepgramAPIKey: "d", OpenAIAPIKey: "o"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.ValidateVoice()
			if tt.msg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
