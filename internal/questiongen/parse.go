package questiongen

import (
	"encoding/json"
	"strings"
)

// ExtractJSON slices raw from the first '{' to the last '}'. It reports
// false when no such span exists.
func ExtractJSON(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

// parseCandidate decodes the JSON object embedded in raw. A nil result
// means nothing usable was found.
func parseCandidate(raw string) (*Candidate, json.RawMessage) {
	span, ok := ExtractJSON(raw)
	if !ok {
		return nil, nil
	}
	var c Candidate
	if err := json.Unmarshal([]byte(span), &c); err != nil {
		return nil, nil
	}
	return &c, json.RawMessage(span)
}
