package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"apisense/internal/common/errors"
)

var (
	jsonFence    = regexp.MustCompile("```json\\s*")
	genericFence = regexp.MustCompile("```\\s*")
)

// DecodeObject turns a model response into a JSON object. The truncation
// check runs first so a cut-off answer is never partially parsed.
func DecodeObject(resp *Response, operation string) (map[string]interface{}, error) {
	if resp == nil {
		return nil, errors.NewEmptyResponseError(operation)
	}
	if resp.FinishReason == FinishReasonMaxTokens {
		return nil, errors.NewTruncatedResponseError(operation)
	}
	if strings.TrimSpace(resp.Text) == "" {
		return nil, errors.NewEmptyResponseError(operation)
	}

	raw, err := ExtractJSONObject(StripCodeFences(resp.Text))
	if err != nil {
		return nil, errors.NewMalformedResponseError(operation, err)
	}

	var value interface{}
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, errors.NewMalformedResponseError(operation, err)
	}

	obj, ok := value.(map[string]interface{})
	if !ok {
		return nil, errors.NewMalformedResponseError(operation, fmt.Errorf("top-level value is %T, not an object", value))
	}
	return obj, nil
}

// StripCodeFences removes every markdown fence marker from text.
func StripCodeFences(text string) string {
	text = jsonFence.ReplaceAllString(text, "")
	text = genericFence.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// ExtractJSONObject returns the span from the first '{' to the last '}'.
func ExtractJSONObject(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("no JSON object found in response")
	}
	return text[start : end+1], nil
}
