package prompts

import (
	"fmt"
	"strings"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

// ImagePromptBuilder は、作品全体のスタイルガイドを考慮して画像プロンプトを構築します。
type ImagePromptBuilder struct {
	style         domain.StyleGuide
	defaultSuffix string // "high quality comic art" 等の共通サフィックス
}

// NewImagePromptBuilder は新しい ImagePromptBuilder を生成します。
func NewImagePromptBuilder(style domain.StyleGuide, suffix string) *ImagePromptBuilder {
	return &ImagePromptBuilder{
		style:         style,
		defaultSuffix: suffix,
	}
}

// BuildTemplateFragment は、キャラクターの外見を固定するベースプロンプトを生成します。
// 同じキャラクターには全パネルで同じフラグメントを注入し、描画の一貫性を保ちます。
func (pb *ImagePromptBuilder) BuildTemplateFragment(char domain.Character) string {
	parts := []string{
		pb.style.ArtStyle,
		char.Name,
		char.Age,
		char.Gender,
		char.PhysicalFeatures,
		char.Clothing,
		char.Accessories,
	}

	var cleanParts []string
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			cleanParts = append(cleanParts, s)
		}
	}
	return strings.Join(cleanParts, ", ")
}

// BuildCharacterSheet は、キャラクターシート1アングル分の UserPrompt と SystemPrompt を生成します。
func (pb *ImagePromptBuilder) BuildCharacterSheet(fragment, angle string) (userPrompt, systemPrompt string) {
	systemPrompt = pb.buildSystemPrompt("You are a professional character designer. Create a single clean character reference illustration.")

	parts := []string{
		fragment,
		AngleDescription(angle),
		ShotDescription("full-body"),
		"character reference sheet, neutral expression, clean background",
	}
	userPrompt = Sanitize(strings.Join(parts, ", "))
	return userPrompt, systemPrompt
}

// BuildPanel は、単体パネル用の UserPrompt と SystemPrompt を生成します。
// セリフとナレーションは合成段階で重ねるため、プロンプトには決して含めません。
func (pb *ImagePromptBuilder) BuildPanel(panel domain.Panel, fragments []string) (userPrompt, systemPrompt string) {
	systemPrompt = pb.buildSystemPrompt("You are a professional comic illustrator. Create a single high-quality cinematic scene.")

	var sb strings.Builder
	sb.WriteString(panel.Description)

	if len(fragments) > 0 {
		sb.WriteString(fmt.Sprintf(". Characters: %s", strings.Join(fragments, ", ")))
	}
	if panel.Environment != "" {
		sb.WriteString(fmt.Sprintf(". Setting: %s", panel.Environment))
	}

	camera := panel.CameraAngle
	if camera == "" {
		camera = "medium-shot"
	}
	sb.WriteString(", " + ShotDescription(camera))
	sb.WriteString(", " + CinematicTags)

	userPrompt = Sanitize(sb.String())
	return userPrompt, systemPrompt
}

func (pb *ImagePromptBuilder) buildSystemPrompt(roleInstruction string) string {
	parts := []string{roleInstruction, RenderingStyle}

	var styleParts []string
	for _, p := range []string{pb.style.ArtStyle, pb.style.ColorPalette, pb.style.Mood, pb.style.Era} {
		if s := strings.TrimSpace(p); s != "" {
			styleParts = append(styleParts, s)
		}
	}
	if len(styleParts) > 0 {
		parts = append(parts, fmt.Sprintf("### ARTISTIC STYLE ###\n%s", strings.Join(styleParts, ", ")))
	}
	if pb.defaultSuffix != "" {
		parts = append(parts, fmt.Sprintf("### GLOBAL STYLE SUFFIX ###\n%s", pb.defaultSuffix))
	}

	return strings.Join(parts, "\n\n")
}
