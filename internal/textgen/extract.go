package textgen

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/oliveagle/jsonpath"
)

// Response paths for the supported provider APIs
const (
	OllamaResponsePath = "$.message.content"
	OpenAIResponsePath = "$.choices[0].message.content"
)

// ExtractText pulls the generated text out of a provider response body
func ExtractText(body []byte, expression string) (string, error) {
	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("failed to parse provider response: %w", err)
	}

	pattern, err := jsonpath.Compile(expression)
	if err != nil {
		return "", fmt.Errorf("invalid JSONPath expression '%s': %w", expression, err)
	}

	value, err := pattern.Lookup(data)
	if err != nil {
		return "", fmt.Errorf("JSONPath expression '%s' returned no results: %w", expression, err)
	}

	text, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("JSONPath expression '%s' returned %T, want string", expression, value)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("provider returned empty text")
	}
	return text, nil
}
