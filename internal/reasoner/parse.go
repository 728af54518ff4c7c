package reasoner

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/user/mana-voicebot/internal/intent"
)

// ParseInterpretation decodes a model answer into an interpretation. Markdown
// code fences are stripped and near-JSON is repaired before giving up. The
// answer must decode to a JSON object.
func ParseInterpretation(raw string) (intent.Interpretation, error) {
	text := stripFences(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: %w: empty answer", ErrReasoning, ErrMalformed)
	}

	var v any
	err := json.Unmarshal([]byte(text), &v)
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		fixed, rerr := jsonrepair.JSONRepair(text)
		if rerr != nil {
			return nil, fmt.Errorf("%w: %w: %v", ErrReasoning, ErrMalformed, err)
		}
		err = json.Unmarshal([]byte(fixed), &v)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %v", ErrReasoning, ErrMalformed, err)
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %w: answer is not a JSON object", ErrReasoning, ErrMalformed)
	}
	return intent.Interpretation(obj), nil
}

func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		// drop the language tag line, e.g. ```json
		text = text[i+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
