package collab

import (
	"regexp"
	"strings"
)

var jsonBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*\\S)\\s*```")

// extractJSON はAI応答からJSON本体を取り出します。コードフェンスを最優先し、
// なければ最外殻の波括弧、それもなければ応答全体をJSONとみなします。
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	matches := jsonBlockRegex.FindStringSubmatch(raw)
	if len(matches) > 1 {
		return matches[1]
	}

	firstBracket := strings.Index(raw, "{")
	lastBracket := strings.LastIndex(raw, "}")
	if firstBracket != -1 && lastBracket != -1 && lastBracket > firstBracket {
		return raw[firstBracket : lastBracket+1]
	}

	return raw
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
