package llm

import (
	"encoding/json"
	"strings"

	"github.com/sirupsen/logrus"
)

// ParseJSONResponse parses a JSON response from an LLM, handling markdown
// code fences. Returns nil when the text is not valid JSON.
func ParseJSONResponse(text string) map[string]any {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		endIdx := len(lines) - 1
		for i := len(lines) - 1; i > 0; i-- {
			if strings.TrimSpace(lines[i]) == "```" {
				endIdx = i
				break
			}
		}
		text = strings.Join(lines[1:endIdx], "\n")
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		logrus.Warnf("Failed to parse LLM response as JSON: %v", err)
		return nil
	}
	return result
}

// GetString reads a string field from a parsed LLM response.
func GetString(m map[string]any, key, fallback string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return fallback
}

// GetFloat reads a numeric field from a parsed LLM response.
func GetFloat(m map[string]any, key string, fallback float64) float64 {
	if v, ok := m[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return f
			}
		}
	}
	return fallback
}

// GetStringSlice reads a string-array field from a parsed LLM response,
// keeping at most max entries (0 means unlimited).
func GetStringSlice(m map[string]any, key string, max int) []string {
	v, ok := m[key]
	if !ok {
		return nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}
