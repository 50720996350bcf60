package collab

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/prompts"
)

const defaultTargetPanelsPerPage = 3

// ChapterPlanner は章ごとにAIを呼び出し、コマ割り計画を組み立てます。
type ChapterPlanner struct {
	textGen       TextGenerator
	promptBuilder prompts.PromptBuilder
	model         string
}

// NewChapterPlanner は ChapterPlanner を初期化します。
func NewChapterPlanner(textGen TextGenerator, pb prompts.PromptBuilder, model string) *ChapterPlanner {
	return &ChapterPlanner{
		textGen:       textGen,
		promptBuilder: pb,
		model:         model,
	}
}

// breakdownPayload はコマ割り応答のJSON構造です。
type breakdownPayload struct {
	Pages []pagePayload `json:"pages"`
}

type pagePayload struct {
	PageNumber int            `json:"page_number"`
	Layout     string         `json:"layout"`
	Panels     []domain.Panel `json:"panels"`
}

// BreakdownChapters は選択された章を順に分解し、全章を通した連番を
// パネルへ振り直します。応答内のパネル番号は信用しません。
func (p *ChapterPlanner) BreakdownChapters(
	ctx context.Context,
	spec domain.ProjectSpec,
	paragraphs []string,
	selector domain.ChapterSelector,
) ([]domain.ChapterPlan, error) {
	chapters, err := spec.SelectChapters(selector)
	if err != nil {
		return nil, err
	}

	known := make(map[string]struct{})
	for _, name := range spec.CharacterNames() {
		known[name] = struct{}{}
	}

	plans := make([]domain.ChapterPlan, 0, len(chapters))
	nextSeq := 1

	for _, chapter := range chapters {
		plan, err := p.breakdownChapter(ctx, chapter, spec, paragraphs, known, &nextSeq)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}

	return plans, nil
}

func (p *ChapterPlanner) breakdownChapter(
	ctx context.Context,
	chapter domain.Chapter,
	spec domain.ProjectSpec,
	paragraphs []string,
	known map[string]struct{},
	nextSeq *int,
) (domain.ChapterPlan, error) {
	slog.Info("Planner: Breaking down chapter", "chapter", chapter.Number, "title", chapter.Title)

	prompt, err := p.promptBuilder.Build(prompts.ModeBreakdown, prompts.TemplateData{
		ChapterTitle:        chapter.Title,
		ChapterSummary:      chapter.Summary,
		ChapterText:         extractChapterText(chapter, paragraphs),
		CharacterNames:      strings.Join(spec.CharacterNames(), ", "),
		ArtStyle:            spec.Style.ArtStyle,
		MaxCharsPerPanel:    domain.MaxCharactersPerPanel,
		TargetPanelsPerPage: defaultTargetPanelsPerPage,
	})
	if err != nil {
		return domain.ChapterPlan{}, domain.WrapError(domain.KindInternal, err, "コマ割りプロンプトの生成に失敗")
	}

	raw, err := p.textGen.GenerateText(ctx, prompt, p.model)
	if err != nil {
		return domain.ChapterPlan{}, ClassifyError("breakdown", err)
	}

	var payload breakdownPayload
	if err := json.Unmarshal([]byte(extractJSON(raw)), &payload); err != nil {
		return domain.ChapterPlan{}, domain.WrapError(domain.KindSchemaViolation,
			err, "コマ割り応答のJSONを解析できません (応答抜粋: %q)", truncateString(raw, 200))
	}
	if len(payload.Pages) == 0 {
		return domain.ChapterPlan{}, domain.NewError(domain.KindSchemaViolation,
			"章 %d のコマ割り応答にページがありません", chapter.Number)
	}

	plan := domain.ChapterPlan{
		ChapterNumber: chapter.Number,
		ChapterTitle:  chapter.Title,
	}

	for _, page := range payload.Pages {
		layout, err := domain.ParseLayoutKind(page.Layout)
		if err != nil {
			return domain.ChapterPlan{}, err
		}

		planned := domain.PlannedPage{
			PageNumber: page.PageNumber,
			Layout:     layout,
		}
		for _, panel := range page.Panels {
			panel.Sequence = *nextSeq
			*nextSeq++
			if err := panel.Validate(known); err != nil {
				return domain.ChapterPlan{}, err
			}
			planned.Panels = append(planned.Panels, panel)
		}
		plan.Pages = append(plan.Pages, planned)
	}

	panels := plan.AllPanels()
	slog.Info("Planner: Chapter breakdown complete",
		"chapter", chapter.Number, "pages", len(plan.Pages),
		"panels", len(panels), "characters", len(panels.UniqueCharacterNames()))
	return plan, nil
}

// extractChapterText は段落インデックス範囲から章本文を切り出します。
// 範囲が段落数を超える場合は黙って丸めます。
func extractChapterText(chapter domain.Chapter, paragraphs []string) string {
	start := chapter.StartParagraph
	end := chapter.EndParagraph

	if start < 0 {
		start = 0
	}
	if end <= 0 || end > len(paragraphs) {
		end = len(paragraphs)
	}
	if start >= end {
		return strings.Join(paragraphs, "\n\n")
	}
	return strings.Join(paragraphs[start:end], "\n\n")
}
