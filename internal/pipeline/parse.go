package pipeline

import "strings"

// stripFences removes a wrapping Markdown code fence from a model
// reply: a leading "```json" or bare "```" and a trailing "```".
// The reply is expected to be a single JSON object afterwards.
func stripFences(reply string) string {
	s := strings.TrimSpace(reply)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	if strings.HasSuffix(s, "```") {
		s = s[:len(s)-len("```")]
	}
	return strings.TrimSpace(s)
}
