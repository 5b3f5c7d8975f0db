package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

// codeBlockPattern matches markdown code blocks with optional language tag.
// Captures: (1) optional language, (2) content.
var codeBlockPattern = regexp.MustCompile(`(?s)` + "```" + `(\w*)\s*\n(.+?)\n` + "```")

// ExtractJSON extracts JSON from a model response that may be wrapped in
// prose or markdown. Strategies are layered and attempted in order until
// one yields valid JSON:
//  1. the entire response parses as JSON
//  2. the largest brace-delimited substring parses
//  3. a fenced code block parses
//
// Returns the extracted JSON string, or a typed parse error when every
// strategy fails.
func ExtractJSON(response string) (string, error) {
	trimmed := strings.TrimSpace(response)

	if isValidJSON(trimmed) {
		return trimmed, nil
	}

	if jsonStr, found := extractBraceSubstring(trimmed); found {
		return jsonStr, nil
	}

	if jsonStr, found := extractFromCodeBlock(trimmed); found {
		return jsonStr, nil
	}

	return "", NewParseError("no valid JSON found in response", nil)
}

// extractBraceSubstring finds the largest balanced {...} substring that
// parses as JSON. Brace characters inside string literals are skipped.
func extractBraceSubstring(response string) (string, bool) {
	start := strings.Index(response, "{")
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(response); i++ {
		c := response[i]

		if escaped {
			escaped = false
			continue
		}

		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					candidate := response[start : i+1]
					if isValidJSON(candidate) {
						return candidate, true
					}
					// Unbalanced-but-parseable content further on is
					// still worth trying from the next opening brace.
					next := strings.Index(response[i+1:], "{")
					if next < 0 {
						return "", false
					}
					start = i + 1 + next
					depth = 0
				}
			}
		}
	}

	return "", false
}

// extractFromCodeBlock finds JSON in markdown code blocks. Blocks tagged
// with a non-json language are skipped.
func extractFromCodeBlock(response string) (string, bool) {
	matches := codeBlockPattern.FindAllStringSubmatch(response, -1)

	for _, match := range matches {
		if len(match) < 3 {
			continue
		}

		lang := strings.ToLower(match[1])
		content := strings.TrimSpace(match[2])

		if lang != "" && lang != "json" {
			continue
		}

		if strings.HasPrefix(content, "{") || strings.HasPrefix(content, "[") {
			if isValidJSON(content) {
				return content, true
			}
		}
	}

	return "", false
}

// isValidJSON checks if a string is parseable JSON.
func isValidJSON(s string) bool {
	if s == "" {
		return false
	}
	var js json.RawMessage
	return json.Unmarshal([]byte(s), &js) == nil
}
