package vision

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseLine parses a single "label | confidence" line. It returns nil for
// blank lines and common preamble.
func ParseLine(line string) *Result {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	// Skip common headers or non-answer lines
	if strings.HasPrefix(line, "Here") || strings.HasPrefix(line, "I see") || strings.HasPrefix(line, "Based on") {
		return nil
	}

	parts := strings.Split(line, "|")
	label := strings.Trim(strings.TrimSpace(parts[0]), `"`)
	if label == "" {
		return nil
	}

	res := &Result{Label: label, RawResponse: line}
	if len(parts) >= 2 {
		if c, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err == nil && c >= 0 && c <= 1 {
			res.Confidence = &c
		}
	}
	return res
}

// ParseResponse returns the first classification found in a model response.
func ParseResponse(raw string) (*Result, error) {
	for _, line := range strings.Split(raw, "\n") {
		if res := ParseLine(line); res != nil {
			res.RawResponse = raw
			return res, nil
		}
	}
	return nil, fmt.Errorf("%w: no label in response", ErrClassificationFailed)
}
