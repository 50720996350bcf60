package prompts

import (
	"regexp"
	"strings"
)

// sanitizeRule は画像APIのコンテンツポリシーに触れやすい表現の置換規則です。
type sanitizeRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// 順序に意味があります。複合表現（"covered body" 等）を単語単位の規則より先に評価します。
var sanitizeRules = []sanitizeRule{
	{regexp.MustCompile(`(?i)\bcovered body\b`), "covered figure on the ground"},
	{regexp.MustCompile(`(?i)\bdead body\b`), "figure on the ground"},
	{regexp.MustCompile(`(?i)\bcorpse\b`), "figure"},
	{regexp.MustCompile(`(?i)\bpulling back the sheet\b`), "examining the scene"},
	{regexp.MustCompile(`(?i)\bexamines the body\b`), "examines the scene"},
	{regexp.MustCompile(`(?i)\bexamining the body\b`), "examining the scene"},
	{regexp.MustCompile(`(?i)\bbody\b`), "scene"},

	{regexp.MustCompile(`(?i)\bblood\b`), "dark stains"},
	{regexp.MustCompile(`(?i)\bbleeding\b`), "injured"},
	{regexp.MustCompile(`(?i)\bwounded\b`), "hurt"},
	{regexp.MustCompile(`(?i)\bgore\b`), ""},

	{regexp.MustCompile(`(?i)\bpointing (?:a )?gun\b`), "holding weapon at side"},
	{regexp.MustCompile(`(?i)\baiming (?:a )?gun\b`), "holding weapon"},
	{regexp.MustCompile(`(?i)\bfiring (?:a )?gun\b`), "in action"},
	{regexp.MustCompile(`(?i)\bshooting\b`), "in conflict"},
	{regexp.MustCompile(`(?i)\bwielding (?:a )?weapon\b`), "holding weapon"},

	{regexp.MustCompile(`(?i)\bkilling\b`), "confronting"},
	{regexp.MustCompile(`(?i)\bmurder\b`), "crime"},
	{regexp.MustCompile(`(?i)\battacking\b`), "confronting"},
	{regexp.MustCompile(`(?i)\bstabbing\b`), "in conflict"},
	{regexp.MustCompile(`(?i)\bbeating\b`), "fighting"},
}

// Sanitize は暴力・流血などの直接表現を穏当な言い換えに置換します。
// 置換後に連続スペースを畳み込みます。
func Sanitize(prompt string) string {
	sanitized := prompt
	for _, rule := range sanitizeRules {
		sanitized = rule.pattern.ReplaceAllString(sanitized, rule.replacement)
	}
	return strings.Join(strings.Fields(sanitized), " ")
}
