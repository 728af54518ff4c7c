package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"github.com/user/mana-voicebot/internal/intent"
	"github.com/user/mana-voicebot/internal/reasoner"
	"google.golang.org/api/option"
)

type GeminiReasoner struct {
	client       *genai.Client
	model        string
	systemPrompt string
}

func NewGeminiReasoner(apiKey, model, systemPrompt string) (*GeminiReasoner, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiReasoner{
		client:       client,
		model:        model,
		systemPrompt: systemPrompt,
	}, nil
}

func (g *GeminiReasoner) Infer(ctx context.Context, req reasoner.Request) (intent.Interpretation, error) {
	genModel := g.client.GenerativeModel(g.model)
	genModel.ResponseMIMEType = "application/json"
	genModel.SetTemperature(0.2)
	genModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(g.systemPrompt)},
	}

	resp, err := genModel.GenerateContent(ctx, genai.Text(reasoner.BuildUserPrompt(req)))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to generate interpretation: %v", reasoner.ErrReasoning, err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("%w: no interpretation generated", reasoner.ErrReasoning)
	}

	var answer strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			answer.WriteString(string(text))
		}
	}

	log.Debug().
		Str("model", g.model).
		Int("answer_length", answer.Len()).
		Msg("Generated interpretation")

	return reasoner.ParseInterpretation(answer.String())
}

func (g *GeminiReasoner) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
