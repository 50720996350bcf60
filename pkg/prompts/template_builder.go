package prompts

import (
	"fmt"
	"strings"
	"text/template"
)

// PromptBuilder は、AIプロンプトを構築する契約です。
type PromptBuilder interface {
	Build(mode Mode, data TemplateData) (string, error)
}

// TextPromptBuilder は解析・コマ割りプロンプトの構成を管理し、モード選択のロジックを内包します。
type TextPromptBuilder struct {
	templates map[Mode]*template.Template
}

// NewTextPromptBuilder は埋め込み済みテンプレートを全モード分パースして
// TextPromptBuilder を初期化します。埋め込みに失敗した空のテンプレートは
// ここで検出します。
func NewTextPromptBuilder() (*TextPromptBuilder, error) {
	parsedTemplates := make(map[Mode]*template.Template)
	for mode, content := range allTemplates {
		if content == "" {
			return nil, fmt.Errorf("プロンプトテンプレート '%s' (go:embed) の読み込みに失敗しました: 内容が空です", mode)
		}

		tmpl, err := template.New(string(mode)).Parse(content)
		if err != nil {
			return nil, fmt.Errorf("プロンプト '%s' の解析に失敗: %w", mode, err)
		}
		parsedTemplates[mode] = tmpl
	}

	return &TextPromptBuilder{
		templates: parsedTemplates,
	}, nil
}

// Build は、要求されたモードに応じて適切なテンプレートを実行します。
func (b *TextPromptBuilder) Build(mode Mode, data TemplateData) (string, error) {
	tmpl, ok := b.templates[mode]
	if !ok {
		return "", fmt.Errorf("不明なモードです: '%s'", mode)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("プロンプトテンプレートの実行に失敗しました: %w", err)
	}

	return sb.String(), nil
}
