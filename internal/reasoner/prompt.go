package reasoner

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	systemPromptFile = "main_system_prompt.txt"

	defaultSystemPrompt = "You are a JSON-only brain. Respond with a single valid JSON object."
)

// LoadSystemPrompt reads the system prompt from dir, falling back to a minimal
// built-in prompt when the file is missing or empty.
func LoadSystemPrompt(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, systemPromptFile))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("dir", dir).Msg("Failed to read system prompt, using built-in prompt")
		}
		return defaultSystemPrompt
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return defaultSystemPrompt
	}
	return prompt
}

// SaveSystemPrompt replaces the system prompt file in dir.
func SaveSystemPrompt(dir, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("system prompt is empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create prompts directory: %w", err)
	}
	path := filepath.Join(dir, systemPromptFile)
	if err := os.WriteFile(path, []byte(prompt+"\n"), 0644); err != nil {
		return "", fmt.Errorf("failed to write system prompt: %w", err)
	}
	return path, nil
}

// BuildUserPrompt renders the per-turn user message sent alongside the system prompt.
func BuildUserPrompt(req Request) string {
	known := req.KnownClients
	if len(known) > maxKnownClients {
		known = known[len(known)-maxKnownClients:]
	}
	if known == nil {
		known = []string{}
	}
	knownJSON, _ := json.Marshal(known)

	snapshot, err := req.Snapshot.Marshal()
	if err != nil {
		snapshot = []byte("{}")
	}

	returning := req.ReturningClient
	if returning == "" {
		returning = "none"
	}

	history := req.HistoryText
	if history == "" {
		history = "No prior conversation."
	}

	var b strings.Builder
	if req.SessionName != "" {
		fmt.Fprintf(&b, "Session name: %s\n\n", req.SessionName)
	}
	fmt.Fprintf(&b, "Known returning clients: %s\n", knownJSON)
	fmt.Fprintf(&b, "Possible returning client mentioned: %s\n\n", returning)
	fmt.Fprintf(&b, "Conversation so far:\n%s\n\n", history)
	fmt.Fprintf(&b, "Current state snapshot (from previous turns in this session):\n%s\n\n", snapshot)
	fmt.Fprintf(&b, "User said:\n%s\n\n", req.Text)
	b.WriteString("Remember to respond ONLY with one JSON as described in the system prompt.")
	return b.String()
}
