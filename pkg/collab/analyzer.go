package collab

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/prompts"
)

// StoryAnalyzer は物語テキストをAIで解析し、作品仕様を抽出します。
type StoryAnalyzer struct {
	textGen       TextGenerator
	promptBuilder prompts.PromptBuilder
	model         string
	maxChapters   int
}

// NewStoryAnalyzer は StoryAnalyzer を初期化します。
func NewStoryAnalyzer(textGen TextGenerator, pb prompts.PromptBuilder, model string, maxChapters int) *StoryAnalyzer {
	return &StoryAnalyzer{
		textGen:       textGen,
		promptBuilder: pb,
		model:         model,
		maxChapters:   maxChapters,
	}
}

// Analyze は正規化済みテキストから章・キャラクター・環境・スタイルを抽出します。
// 応答が構造的に不正な場合は恒久的失敗として返します。
func (a *StoryAnalyzer) Analyze(ctx context.Context, storyText, styleHint, pov string) (domain.ProjectSpec, error) {
	styleInstruction := "- Infer an appropriate art style from the story genre and tone"
	if styleHint != "" {
		styleInstruction = fmt.Sprintf("- Use the following art style: %s", styleHint)
	}

	prompt, err := a.promptBuilder.Build(prompts.ModeAnalysis, prompts.TemplateData{
		StoryText:        storyText,
		StyleInstruction: styleInstruction,
		MaxChapters:      a.maxChapters,
		PointOfView:      pov,
	})
	if err != nil {
		return domain.ProjectSpec{}, fmt.Errorf("解析プロンプトの生成に失敗: %w", err)
	}

	slog.Info("Analyzer: Calling text model", "model", a.model)
	raw, err := a.textGen.GenerateText(ctx, prompt, a.model)
	if err != nil {
		return domain.ProjectSpec{}, ClassifyError("analyze", err)
	}

	var spec domain.ProjectSpec
	if err := json.Unmarshal([]byte(extractJSON(raw)), &spec); err != nil {
		return domain.ProjectSpec{}, domain.WrapError(domain.KindSchemaViolation,
			err, "解析応答のJSONを解析できません (応答抜粋: %q)", truncateString(raw, 200))
	}

	if err := spec.Validate(); err != nil {
		return domain.ProjectSpec{}, err
	}

	slog.Info("Analyzer: Analysis complete",
		"chapters", len(spec.Chapters), "characters", len(spec.Characters))
	return spec, nil
}
