// Package normalize は物語テキストの決定論的な前処理を行います。
// 外部サービスは一切呼びません。失敗しうるのは不正なエンコーディング
// のみです。
package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

// Result は正規化済みテキストと構造メタデータです。
type Result struct {
	Text       string
	Paragraphs []string
	Structure  Structure
	Metadata   Metadata
}

// Structure は章区切り・場面転換の検出結果です。
type Structure struct {
	ChapterMarkers []int
	SceneBreaks    []int
	HasChapters    bool
}

// Metadata は後段のログとプロンプト構築に使う統計情報です。
type Metadata struct {
	WordCount      int
	ParagraphCount int
	ChapterCount   int
	SceneCount     int
	PointOfView    string
}

var (
	multiSpaceRegex   = regexp.MustCompile(` +`)
	trailingWSRegex   = regexp.MustCompile(` +\n`)
	multiNewlineRegex = regexp.MustCompile(`\n{3,}`)

	chapterRegex    = regexp.MustCompile(`(?i)^(chapter|ch\.?|第)\s*(\d+|one|two|three|four|five|six|seven|eight|nine|ten|[一二三四五六七八九十]+)`)
	sceneBreakRegex = regexp.MustCompile(`^[-*#]{3,}$`)

	// ギュメ «» は quoteReplacer が先に " へ寄せるため、ここでは扱いません。
	dialogueRegexes = []*regexp.Regexp{
		regexp.MustCompile(`"[^"]+"`),
		regexp.MustCompile(`'[^']+'`),
		regexp.MustCompile(`「[^」]+」`),
	}

	firstPersonRegex  = regexp.MustCompile(`(?i)\b(I|me|my|mine|we|us|our)\b`)
	secondPersonRegex = regexp.MustCompile(`(?i)\b(you|your|yours)\b`)
	thirdPersonRegex  = regexp.MustCompile(`(?i)\b(he|she|they|him|her|them|his|hers|their)\b`)
)

// 曲がった引用符などを標準形へ寄せる置換表です。
var quoteReplacer = strings.NewReplacer(
	"“", `"`, "”", `"`,
	"‘", "'", "’", "'",
	"«", `"`, "»", `"`,
)

// Normalize は生テキストを整形し、段落・構造・メタデータを返します。
//
// 手順: 空白整理 → 引用符の標準化 → 段落分割 → 構造検出 →
// セリフ/地の文の注記 → メタデータ抽出。
func Normalize(raw string) (Result, error) {
	if !utf8.ValidString(raw) {
		return Result{}, domain.NewError(domain.KindInput, "入力テキストが正しいUTF-8ではありません")
	}
	if strings.TrimSpace(raw) == "" {
		return Result{}, domain.NewError(domain.KindInput, "物語テキストが空です")
	}

	text := cleanWhitespace(raw)
	text = quoteReplacer.Replace(text)

	paragraphs := splitParagraphs(text)
	structure := detectStructure(paragraphs)
	annotated := annotateDialogue(paragraphs)

	normalized := strings.Join(annotated, "\n\n")

	return Result{
		Text:       normalized,
		Paragraphs: annotated,
		Structure:  structure,
		Metadata: Metadata{
			WordCount:      len(strings.Fields(text)),
			ParagraphCount: len(paragraphs),
			ChapterCount:   len(structure.ChapterMarkers),
			SceneCount:     len(structure.SceneBreaks) + 1,
			PointOfView:    detectPOV(text),
		},
	}, nil
}

func cleanWhitespace(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = multiSpaceRegex.ReplaceAllString(text, " ")
	text = trailingWSRegex.ReplaceAllString(text, "\n")
	text = multiNewlineRegex.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func splitParagraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func detectStructure(paragraphs []string) Structure {
	var s Structure
	for i, para := range paragraphs {
		if chapterRegex.MatchString(para) {
			s.ChapterMarkers = append(s.ChapterMarkers, i)
			s.HasChapters = true
		}
		if sceneBreakRegex.MatchString(para) {
			s.SceneBreaks = append(s.SceneBreaks, i)
		}
	}
	return s
}

// annotateDialogue は段落ごとに [DIALOGUE] / [MIXED] / [NARRATION] の
// 接頭辞を付けます。後段の解析プロンプトが発話と地の文を区別するための
// ヒントです。
func annotateDialogue(paragraphs []string) []string {
	annotated := make([]string, 0, len(paragraphs))
	for _, para := range paragraphs {
		prefix := "[NARRATION]"
		for _, re := range dialogueRegexes {
			if loc := re.FindStringIndex(para); loc != nil {
				if loc[1]-loc[0] > len(para)*4/5 {
					prefix = "[DIALOGUE]"
				} else {
					prefix = "[MIXED]"
				}
				break
			}
		}
		annotated = append(annotated, prefix+" "+para)
	}
	return annotated
}

// detectPOV は人称代名詞の出現比率から視点を推定します。
func detectPOV(text string) string {
	first := len(firstPersonRegex.FindAllString(text, -1))
	second := len(secondPersonRegex.FindAllString(text, -1))
	third := len(thirdPersonRegex.FindAllString(text, -1))

	total := first + second + third
	if total == 0 {
		return "unknown"
	}

	switch {
	case float64(first)/float64(total) > 0.4:
		return "first"
	case float64(second)/float64(total) > 0.3:
		return "second"
	default:
		return "third"
	}
}
