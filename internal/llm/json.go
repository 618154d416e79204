package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON pulls the JSON object out of an LLM reply. Providers are
// asked for bare JSON but in practice wrap it in markdown fences or
// surrounding prose, so this scans for the object instead of trusting
// the framing.
func ExtractJSON(response string) (map[string]any, error) {
	candidate := strings.TrimSpace(response)
	if candidate == "" {
		return nil, fmt.Errorf("empty response")
	}

	// Prefer the contents of a fenced code block when one is present.
	if start := strings.Index(candidate, "```"); start >= 0 {
		rest := candidate[start+3:]
		if end := strings.Index(rest, "```"); end >= 0 {
			candidate = rest[:end]
		}
	}

	open := strings.Index(candidate, "{")
	end := strings.LastIndex(candidate, "}")
	if open < 0 || end < open {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(candidate[open:end+1]), &result); err != nil {
		return nil, fmt.Errorf("parsing response JSON: %w", err)
	}
	return result, nil
}
