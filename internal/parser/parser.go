// Package parser turns raw model output into structured data. Model responses
// frequently arrive wrapped in markdown code fences; that is the only
// formatting quirk tolerated before a strict JSON parse.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMalformedResponse is returned when the response, after fence stripping,
// does not parse as a JSON object.
var ErrMalformedResponse = errors.New("malformed model response")

var fenceRe = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")

// StripFences removes a markdown code-fence wrapper if present, otherwise
// extracts the first balanced JSON object from the text.
func StripFences(content string) string {
	content = strings.TrimSpace(content)

	if matches := fenceRe.FindStringSubmatch(content); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	start := strings.Index(content, "{")
	if start == -1 {
		return content
	}

	// Find matching closing brace
	depth := 0
	for i := start; i < len(content); i++ {
		switch content[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[start : i+1]
			}
		}
	}

	return content[start:]
}

// Parse strips fence markers and parses the remainder as a JSON object.
// No schema validation happens here: callers read expected fields with the
// lenient accessors below and supply their own defaults.
func Parse(raw string) (map[string]any, error) {
	cleaned := StripFences(raw)

	var result map[string]any
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return result, nil
}

// String reads a string field, falling back to defaultVal when the key is
// absent or the wrong type.
func String(data map[string]any, key, defaultVal string) string {
	if v, ok := data[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return defaultVal
}

// Int reads a numeric field as int. JSON numbers decode as float64.
func Int(data map[string]any, key string, defaultVal int) int {
	if v, ok := data[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return defaultVal
}

// Bool reads a boolean field with a default
func Bool(data map[string]any, key string, defaultVal bool) bool {
	if v, ok := data[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultVal
}

// StringSlice reads an array field, keeping only string elements
func StringSlice(data map[string]any, key string) []string {
	v, ok := data[key]
	if !ok {
		return nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	result := make([]string, 0, len(arr))
	for _, elem := range arr {
		if s, ok := elem.(string); ok {
			result = append(result, s)
		}
	}
	return result
}

// Object reads a nested object field, returning nil when absent
func Object(data map[string]any, key string) map[string]any {
	if v, ok := data[key]; ok {
		if m, ok := v.(map[string]any); ok {
			return m
		}
	}
	return nil
}
