// Package collab は外部の生成AIと対話するコラボレーター群です。
// テキスト解析・コマ割り・画像合成のそれぞれを小さな契約に切り出し、
// パイプライン本体からは差し替え可能にしています。
package collab

import (
	"context"

	imagedom "github.com/shouni/gemini-image-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-gemini-client/pkg/gemini"
)

// NarrativeAnalyzer は物語テキストから作品仕様を抽出する契約です。
// pov は正規化ステージが推定した視点（"first" など、不明なら "unknown"）で、
// 解析プロンプトへのヒントとして渡します。
type NarrativeAnalyzer interface {
	Analyze(ctx context.Context, storyText, styleHint, pov string) (domain.ProjectSpec, error)
}

// PanelPlanner は章をコマ割り計画へ分解する契約です。
type PanelPlanner interface {
	BreakdownChapters(ctx context.Context, spec domain.ProjectSpec, paragraphs []string, selector domain.ChapterSelector) ([]domain.ChapterPlan, error)
}

// ImageRequest は画像合成1回分の入力です。
type ImageRequest struct {
	Prompt          string
	SystemPrompt    string
	NegativePrompt  string
	AspectRatio     string
	ReferenceHandle string
	Seed            *int64
}

// ImageResult は合成された画像データです。
type ImageResult struct {
	Data     []byte
	MimeType string
	UsedSeed int64
}

// ImageSynthesizer は画像生成と参照アセット登録の契約です。
type ImageSynthesizer interface {
	Synthesize(ctx context.Context, req ImageRequest) (ImageResult, error)
	UploadReference(ctx context.Context, path string) (string, error)
}

// TextGenerator はテキスト生成モデルへの細い契約です。テストでの差し替えを
// 容易にするため、応答本文の文字列だけを返します。
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt, model string) (string, error)
}

// PanelImageModel は画像生成モデルへの細い契約です。
// imagekit.ImageGenerator がこれを満たします。
type PanelImageModel interface {
	GenerateMangaPanel(ctx context.Context, req imagedom.ImageGenerationRequest) (*imagedom.ImageResponse, error)
}

// geminiTextGenerator は gemini クライアントを TextGenerator に適合させます。
type geminiTextGenerator struct {
	client gemini.GenerativeModel
}

// NewGeminiTextGenerator は gemini クライアントをラップした TextGenerator を返します。
func NewGeminiTextGenerator(client gemini.GenerativeModel) TextGenerator {
	return &geminiTextGenerator{client: client}
}

func (g *geminiTextGenerator) GenerateText(ctx context.Context, prompt, model string) (string, error) {
	resp, err := g.client.GenerateContent(ctx, prompt, model)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
