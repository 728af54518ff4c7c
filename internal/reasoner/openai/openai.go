package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"
	"github.com/user/mana-voicebot/internal/intent"
	"github.com/user/mana-voicebot/internal/reasoner"
)

type OpenAIReasoner struct {
	client       *openai.Client
	model        string
	systemPrompt string
}

func NewOpenAIReasoner(apiKey, model, systemPrompt string) *OpenAIReasoner {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIReasoner{
		client:       &client,
		model:        model,
		systemPrompt: systemPrompt,
	}
}

func (o *OpenAIReasoner) Infer(ctx context.Context, req reasoner.Request) (intent.Interpretation, error) {
	params := openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(o.systemPrompt),
			openai.UserMessage(reasoner.BuildUserPrompt(req)),
		},
		Temperature: openai.Float(0.2),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: openai chat: %v", reasoner.ErrReasoning, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no interpretation generated", reasoner.ErrReasoning)
	}

	answer := resp.Choices[0].Message.Content

	log.Debug().
		Str("model", o.model).
		Int64("prompt_tokens", resp.Usage.PromptTokens).
		Int64("completion_tokens", resp.Usage.CompletionTokens).
		Msg("Generated interpretation")

	return reasoner.ParseInterpretation(answer)
}

func (o *OpenAIReasoner) Close() error {
	return nil
}
