package builder

import (
	"context"
	"fmt"

	"github.com/shouni/go-comic-kit/internal/config"
	"github.com/shouni/go-comic-kit/pkg/collab"
	"github.com/shouni/go-comic-kit/pkg/compose"
	"github.com/shouni/go-comic-kit/pkg/export"
	"github.com/shouni/go-comic-kit/pkg/pipeline"
	"github.com/shouni/go-comic-kit/pkg/prompts"
	"github.com/shouni/go-comic-kit/pkg/vault"
	"github.com/shouni/go-comic-kit/pkg/workflow"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/gcsfactory"
)

// App は、アプリケーション実行に必要な長寿命コンポーネントを保持します。
// NewApp で一度だけ構築し、CLI の各コマンドに渡して使います。
type App struct {
	Config  *config.Config
	Vault   *vault.Vault
	Manager *workflow.Manager
}

// NewApp は設定を基にクライアント群とワークフローマネージャを組み立てます。
// APIキーはここでは検証せず、セッション登録時に形式チェックのみ行います。
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	httpClient := httpkit.New(cfg.Options.HTTPTimeout)

	aiClient, err := initializeAIClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, err
	}

	rioFactory, err := gcsfactory.NewGCSClientFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("リモートIOファクトリの初期化に失敗しました: %w", err)
	}
	reader, err := rioFactory.NewInputReader()
	if err != nil {
		return nil, fmt.Errorf("InputReader の取得に失敗しました: %w", err)
	}
	writer, err := rioFactory.NewOutputWriter()
	if err != nil {
		return nil, fmt.Errorf("OutputWriter の取得に失敗しました: %w", err)
	}

	core, err := initializeCore(reader, httpClient, aiClient)
	if err != nil {
		return nil, err
	}
	imgGen, err := initializeImageGenerator(cfg.GeminiImageModel, core)
	if err != nil {
		return nil, err
	}

	textGen := collab.NewGeminiTextGenerator(aiClient)
	pb, err := prompts.NewTextPromptBuilder()
	if err != nil {
		return nil, fmt.Errorf("プロンプトビルダーの作成に失敗しました: %w", err)
	}

	analyzer := collab.NewStoryAnalyzer(textGen, pb, cfg.GeminiModel, cfg.MaxChapters)
	planner := collab.NewChapterPlanner(textGen, pb, cfg.GeminiModel)
	synthesizer := collab.NewPanelSynthesizer(imgGen, core)

	engine := compose.NewEngine(compose.Geometry{
		PageWidth:     cfg.PageWidth,
		PageHeight:    cfg.PageHeight,
		GutterWidth:   cfg.GutterWidth,
		Margin:        cfg.PageMargin,
		MaxFlowHeight: cfg.MaxFlowHeight,
	})
	exporter := export.New(writer, cfg.Options.OutputDir)

	sessionVault := vault.New(cfg.SessionTTL, cfg.SweepInterval)

	executor := pipeline.New(analyzer, planner, synthesizer, engine, exporter, writer, sessionVault, pipeline.Config{
		RenderWorkers: cfg.RenderWorkers,
		MaxRetries:    cfg.MaxRetries,
		RetryBackoff:  cfg.RetryBackoff,
		RateInterval:  cfg.RateInterval,
		ImageSize:     cfg.ImageSize,
		ImageQuality:  cfg.ImageQuality,
		StyleSuffix:   cfg.StyleSuffix,
		OutputDir:     cfg.Options.OutputDir,
	})

	manager := workflow.NewManager(sessionVault, executor, cfg.JobRetention, cfg.SweepInterval)

	return &App{
		Config:  cfg,
		Vault:   sessionVault,
		Manager: manager,
	}, nil
}

// Close はバックグラウンドの掃除処理を停止します。
func (a *App) Close() {
	a.Manager.Close()
}
