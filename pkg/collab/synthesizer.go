package collab

import (
	"context"
	"log/slog"

	imagedom "github.com/shouni/gemini-image-kit/pkg/domain"
	imagekit "github.com/shouni/gemini-image-kit/pkg/generator"
	"github.com/shouni/go-comic-kit/pkg/domain"
)

// PanelAspectRatio は単体パネルの既定アスペクト比です。
const PanelAspectRatio = "4:3"

// PanelSynthesizer は画像生成モデルと File API を束ねた ImageSynthesizer の実装です。
type PanelSynthesizer struct {
	imageModel PanelImageModel
	assets     imagekit.AssetManager
}

// NewPanelSynthesizer は PanelSynthesizer を初期化します。
func NewPanelSynthesizer(imageModel PanelImageModel, assets imagekit.AssetManager) *PanelSynthesizer {
	return &PanelSynthesizer{
		imageModel: imageModel,
		assets:     assets,
	}
}

// Synthesize は1枚の画像を生成します。空データの応答はスキーマ違反として扱います。
func (s *PanelSynthesizer) Synthesize(ctx context.Context, req ImageRequest) (ImageResult, error) {
	aspect := req.AspectRatio
	if aspect == "" {
		aspect = PanelAspectRatio
	}

	resp, err := s.imageModel.GenerateMangaPanel(ctx, imagedom.ImageGenerationRequest{
		Prompt:         req.Prompt,
		SystemPrompt:   req.SystemPrompt,
		NegativePrompt: req.NegativePrompt,
		AspectRatio:    aspect,
		FileAPIURI:     req.ReferenceHandle,
		Seed:           req.Seed,
	})
	if err != nil {
		return ImageResult{}, ClassifyError("synthesize", err)
	}
	if len(resp.Data) == 0 {
		return ImageResult{}, domain.NewError(domain.KindSchemaViolation, "画像応答が空です")
	}

	return ImageResult{
		Data:     resp.Data,
		MimeType: resp.MimeType,
		UsedSeed: resp.UsedSeed,
	}, nil
}

// UploadReference は保存済みの参照画像を File API へ登録し、ハンドルを返します。
func (s *PanelSynthesizer) UploadReference(ctx context.Context, path string) (string, error) {
	uri, err := s.assets.UploadFile(ctx, path)
	if err != nil {
		return "", ClassifyError("upload_reference", err)
	}
	slog.Debug("参照画像を登録しました", "path", path, "uri", uri)
	return uri, nil
}
