package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/shouni/go-comic-kit/pkg/collab"
	"github.com/shouni/go-comic-kit/pkg/compose"
	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/export"
	"github.com/shouni/go-comic-kit/pkg/ledger"
	"github.com/shouni/go-comic-kit/pkg/normalize"
	"github.com/shouni/go-comic-kit/pkg/prompts"
	"github.com/shouni/go-comic-kit/pkg/registry"
)

// ErrCancelled はキャンセル要求によりステージ境界で停止したことを示します。
var ErrCancelled = errors.New("ジョブはキャンセルされました")

const renderRateBurst = 2

// SessionResolver はステージ境界でのセッション再確認に使う契約です。
// vault.Vault がこれを満たします。
type SessionResolver interface {
	Resolve(sessionID string) (domain.Session, error)
}

// Tracker は実行中ジョブへの進捗通知とキャンセル確認の契約です。
// 実装はステータス照会パスをブロックしてはいけません。
type Tracker interface {
	Checkpoint(stage Stage)
	Progress(label string)
	CostSoFar(total float64)
	CancelRequested() bool
}

// Config は Executor の動作パラメータです。
type Config struct {
	RenderWorkers int
	MaxRetries    int
	RetryBackoff  time.Duration
	RateInterval  time.Duration
	ImageSize     string
	ImageQuality  string
	StyleSuffix   string
	OutputDir     string
}

// Request は実行1回分の入力です。
type Request struct {
	JobID     string
	SessionID string
	StoryText string
	StyleHint string
	Chapters  domain.ChapterSelector
	Format    domain.OutputFormat
}

// Result は完走したジョブの成果です。
type Result struct {
	Artifact  domain.Artifact
	Partial   bool
	TotalCost float64
}

// Executor はステージを順に駆動する状態機械です。各ステージの開始前に
// キャンセルフラグとセッションの生存を確認します。
type Executor struct {
	analyzer    collab.NarrativeAnalyzer
	planner     collab.PanelPlanner
	synthesizer collab.ImageSynthesizer
	engine      *compose.Engine
	exporter    *export.Exporter
	writer      export.OutputWriter
	sessions    SessionResolver
	cfg         Config
}

// New は Executor を初期化します。
func New(
	analyzer collab.NarrativeAnalyzer,
	planner collab.PanelPlanner,
	synthesizer collab.ImageSynthesizer,
	engine *compose.Engine,
	exporter *export.Exporter,
	writer export.OutputWriter,
	sessions SessionResolver,
	cfg Config,
) *Executor {
	return &Executor{
		analyzer:    analyzer,
		planner:     planner,
		synthesizer: synthesizer,
		engine:      engine,
		exporter:    exporter,
		writer:      writer,
		sessions:    sessions,
		cfg:         cfg,
	}
}

// Run はパイプラインを最後まで駆動します。キャンセルは ErrCancelled、
// セッション失効は domain.ErrSessionExpired を含むエラーで返します。
// テンプレート登録簿とコストレジャーはジョブごとに新規作成され、
// ジョブ間で共有されることはありません。
func (e *Executor) Run(ctx context.Context, req Request, tracker Tracker) (Result, error) {
	reg := registry.New()
	costs := ledger.New()

	// --- Normalize: 外部呼び出しなしのローカル整形 ---
	if err := e.gate(StageNormalize, req.SessionID, tracker); err != nil {
		return Result{}, err
	}
	normalized, err := normalize.Normalize(req.StoryText)
	if err != nil {
		return Result{}, err
	}
	slog.Info("物語テキストを正規化しました",
		"job_id", req.JobID,
		"word_count", normalized.Metadata.WordCount,
		"paragraphs", normalized.Metadata.ParagraphCount,
		"chapters", normalized.Metadata.ChapterCount,
		"scenes", normalized.Metadata.SceneCount,
		"pov", normalized.Metadata.PointOfView,
	)
	tracker.Checkpoint(StageNormalize)

	// --- Analyze: 物語構造の抽出（1回の外部呼び出し） ---
	if err := e.gate(StageAnalyze, req.SessionID, tracker); err != nil {
		return Result{}, err
	}
	var spec domain.ProjectSpec
	err = collab.Retry(ctx, e.cfg.MaxRetries, e.cfg.RetryBackoff, func() error {
		var aerr error
		spec, aerr = e.analyzer.Analyze(ctx, normalized.Text, req.StyleHint, normalized.Metadata.PointOfView)
		return aerr
	})
	if err != nil {
		return Result{}, err
	}
	tracker.Checkpoint(StageAnalyze)

	imagePrompts := prompts.NewImagePromptBuilder(spec.Style, e.cfg.StyleSuffix)

	// --- CharacterSheets: 全キャラ成功が必須（部分成功なし） ---
	if err := e.gate(StageCharacterSheets, req.SessionID, tracker); err != nil {
		return Result{}, err
	}
	if err := e.generateCharacterSheets(ctx, req, spec, imagePrompts, reg, costs, tracker); err != nil {
		return Result{}, err
	}
	tracker.Checkpoint(StageCharacterSheets)

	// --- PanelBreakdown: 章ごとのコマ割り計画 ---
	if err := e.gate(StagePanelBreakdown, req.SessionID, tracker); err != nil {
		return Result{}, err
	}
	var plans []domain.ChapterPlan
	err = collab.Retry(ctx, e.cfg.MaxRetries, e.cfg.RetryBackoff, func() error {
		var perr error
		plans, perr = e.planner.BreakdownChapters(ctx, spec, normalized.Paragraphs, req.Chapters)
		return perr
	})
	if err != nil {
		return Result{}, err
	}
	tracker.Checkpoint(StagePanelBreakdown)

	// --- PanelRender: 有界ワーカーでのファンアウト（部分失敗を許容） ---
	if err := e.gate(StagePanelRender, req.SessionID, tracker); err != nil {
		return Result{}, err
	}
	results, partial, err := e.renderPanels(ctx, plans, imagePrompts, reg, costs, tracker)
	if err != nil {
		return Result{}, err
	}
	tracker.Checkpoint(StagePanelRender)

	// --- Compose: ローカル合成 ---
	if err := e.boundary(StageCompose, tracker); err != nil {
		return Result{}, err
	}
	var pages []compose.ComposedPage
	for _, plan := range plans {
		composed, cerr := e.engine.ComposeChapter(plan, results)
		if cerr != nil {
			return Result{}, cerr
		}
		pages = append(pages, composed...)
	}
	for _, page := range pages {
		if page.Partial {
			partial = true
		}
	}
	tracker.Checkpoint(StageCompose)

	// --- Export: 成果物の書き出し ---
	if err := e.boundary(StageExport, tracker); err != nil {
		return Result{}, err
	}
	title := exportTitle(spec)
	artifact, err := e.exporter.Export(ctx, req.JobID, title, req.Format, pages)
	if err != nil {
		return Result{}, err
	}
	tracker.Checkpoint(StageExport)

	return Result{
		Artifact:  artifact,
		Partial:   partial,
		TotalCost: costs.Total(),
	}, nil
}

// gate は外部サービスを呼ぶステージの開始前検査です。キャンセルフラグと
// セッションの生存を確認します。セッション失効は暗黙のキャンセル要求です。
func (e *Executor) gate(stage Stage, sessionID string, tracker Tracker) error {
	if tracker.CancelRequested() {
		return ErrCancelled
	}
	if _, err := e.sessions.Resolve(sessionID); err != nil {
		return fmt.Errorf("ステージ %s の開始前にセッションが失効しました: %w", stage, err)
	}
	tracker.Progress(stage.Label())
	return nil
}

// boundary はローカル処理のみのステージ境界検査です。
func (e *Executor) boundary(stage Stage, tracker Tracker) error {
	if tracker.CancelRequested() {
		return ErrCancelled
	}
	tracker.Progress(stage.Label())
	return nil
}

// generateCharacterSheets は全キャラクター×全アングルの参照画像を生成し、
// 登録簿へ投入します。1キャラでも失敗すればステージ全体が失敗します。
// 後続パネルは全ての参照キャラにテンプレートがあることを前提にするためです。
func (e *Executor) generateCharacterSheets(
	ctx context.Context,
	req Request,
	spec domain.ProjectSpec,
	imagePrompts *prompts.ImagePromptBuilder,
	reg *registry.Registry,
	costs *ledger.Ledger,
	tracker Tracker,
) error {
	unitCost := ledger.ImageUnitCost(e.cfg.ImageSize, e.cfg.ImageQuality)

	for ci, char := range spec.Characters {
		fragment := imagePrompts.BuildTemplateFragment(char)
		seed := registry.SeedFromName(char.Name)

		tmpl := registry.Template{
			Name:           char.Name,
			PromptFragment: fragment,
			Seed:           seed,
		}

		for _, angle := range prompts.SheetAngles {
			tracker.Progress(fmt.Sprintf("キャラクターシートを生成しています (%s: %s, %d/%d)",
				char.Name, angle, ci+1, len(spec.Characters)))

			userPrompt, systemPrompt := imagePrompts.BuildCharacterSheet(fragment, angle)

			var result collab.ImageResult
			err := collab.Retry(ctx, e.cfg.MaxRetries, e.cfg.RetryBackoff, func() error {
				var serr error
				result, serr = e.synthesizer.Synthesize(ctx, collab.ImageRequest{
					Prompt:         userPrompt,
					SystemPrompt:   systemPrompt,
					NegativePrompt: prompts.NegativeSheetPrompt,
					Seed:           &seed,
				})
				return serr
			})
			if err != nil {
				return fmt.Errorf("キャラクター '%s' のシート生成に失敗: %w", char.Name, err)
			}

			costs.Record(string(StageCharacterSheets), unitCost, 1)
			tracker.CostSoFar(costs.Total())

			handle, err := e.storeReference(ctx, req.JobID, char.Name, angle, result)
			if err != nil {
				return err
			}
			tmpl.References = append(tmpl.References, registry.ReferenceImage{
				Angle:  angle,
				Handle: handle,
			})
		}

		reg.Put(char.Name, tmpl)
	}

	slog.Info("キャラクターシートが揃いました",
		"characters", reg.Len(), "angles", len(prompts.SheetAngles))
	return nil
}

// storeReference はシート画像を保存し、File API へ登録してハンドルを得ます。
func (e *Executor) storeReference(ctx context.Context, jobID, name, angle string, result collab.ImageResult) (string, error) {
	fileName := fmt.Sprintf("%s_%s.png", sanitizeFileName(name), sanitizeFileName(angle))
	sheetPath := path.Join(e.cfg.OutputDir, jobID, "characters", fileName)

	if err := e.writer.Write(ctx, sheetPath, bytes.NewReader(result.Data), result.MimeType); err != nil {
		return "", domain.WrapError(domain.KindInternal, err, "シート画像の保存に失敗 (%s)", fileName)
	}

	var handle string
	err := collab.Retry(ctx, e.cfg.MaxRetries, e.cfg.RetryBackoff, func() error {
		var uerr error
		handle, uerr = e.synthesizer.UploadReference(ctx, sheetPath)
		return uerr
	})
	if err != nil {
		return "", fmt.Errorf("参照画像の登録に失敗 (%s): %w", fileName, err)
	}
	return handle, nil
}

// renderPanels は全章の全パネルを有界ワーカーで描画します。
// 個々のパネルの失敗は結果値として記録し、ジョブは止めません。
// キャンセル要求後は新規ディスパッチを止め、発行済みの呼び出しは
// 完走させてレジャーへ記帳します。
func (e *Executor) renderPanels(
	ctx context.Context,
	plans []domain.ChapterPlan,
	imagePrompts *prompts.ImagePromptBuilder,
	reg *registry.Registry,
	costs *ledger.Ledger,
	tracker Tracker,
) (map[int]domain.PanelResult, bool, error) {
	var allPanels domain.Panels
	for _, plan := range plans {
		allPanels = append(allPanels, plan.AllPanels()...)
	}

	unitCost := ledger.ImageUnitCost(e.cfg.ImageSize, e.cfg.ImageQuality)
	limiter := rate.NewLimiter(rate.Every(e.cfg.RateInterval), renderRateBurst)

	var mu sync.Mutex
	results := make(map[int]domain.PanelResult, len(allPanels))
	done := 0
	cancelled := false

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(e.cfg.RenderWorkers)

	for _, panel := range allPanels {
		// 新しい仕事を配る前にキャンセルを確認します。
		if tracker.CancelRequested() {
			cancelled = true
			break
		}

		panel := panel
		eg.Go(func() error {
			if err := limiter.Wait(egCtx); err != nil {
				return err
			}

			result, rerr := e.renderOnePanel(egCtx, panel, imagePrompts, reg)
			if rerr != nil {
				// テンプレート欠落はコマ割りの整合性違反であり、ジョブ全体を止めます。
				return rerr
			}

			mu.Lock()
			if result.Err == nil {
				costs.Record(string(StagePanelRender), unitCost, 1)
			}
			results[panel.Sequence] = result
			done++
			progress := fmt.Sprintf("パネルを生成中 (%d/%d)", done, len(allPanels))
			total := costs.Total()
			mu.Unlock()

			tracker.Progress(progress)
			tracker.CostSoFar(total)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, false, err
	}
	if cancelled {
		return nil, false, ErrCancelled
	}

	partial := false
	for _, res := range results {
		if res.Failed() {
			partial = true
			break
		}
	}

	slog.Info("パネル描画が完了しました",
		"total", len(allPanels), "partial", partial)
	return results, partial, nil
}

// renderOnePanel は1パネルの描画です。一時的障害は規定回数まで再試行し、
// それでも失敗した場合はエラー値として結果に畳み込みます。
func (e *Executor) renderOnePanel(
	ctx context.Context,
	panel domain.Panel,
	imagePrompts *prompts.ImagePromptBuilder,
	reg *registry.Registry,
) (domain.PanelResult, error) {
	fragments := make([]string, 0, len(panel.Characters))
	referenceHandle := ""
	var seedPtr *int64

	for _, name := range panel.Characters {
		tmpl, err := reg.Get(name)
		if err != nil {
			// 未登録キャラの参照は致命的なパイプラインエラーです。
			return domain.PanelResult{}, err
		}
		fragments = append(fragments, tmpl.PromptFragment)
		if referenceHandle == "" && len(tmpl.References) > 0 {
			referenceHandle = tmpl.References[0].Handle
			seed := tmpl.Seed
			seedPtr = &seed
		}
	}

	userPrompt, systemPrompt := imagePrompts.BuildPanel(panel, fragments)

	var result collab.ImageResult
	err := collab.Retry(ctx, e.cfg.MaxRetries, e.cfg.RetryBackoff, func() error {
		var serr error
		result, serr = e.synthesizer.Synthesize(ctx, collab.ImageRequest{
			Prompt:          userPrompt,
			SystemPrompt:    systemPrompt,
			NegativePrompt:  prompts.NegativePanelPrompt,
			ReferenceHandle: referenceHandle,
			Seed:            seedPtr,
		})
		return serr
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return domain.PanelResult{}, err
		}
		slog.Warn("パネル描画に失敗しました。プレースホルダーで継続します",
			"sequence", panel.Sequence, "kind", domain.KindOf(err))
		return domain.PanelResult{
			Panel: panel,
			Err: &domain.ErrorDetail{
				Kind:    domain.KindOf(err),
				Message: fmt.Sprintf("パネル %d の描画に失敗しました", panel.Sequence),
			},
		}, nil
	}

	return domain.PanelResult{
		Panel:     panel,
		ImageData: result.Data,
		MimeType:  result.MimeType,
	}, nil
}

// exportTitle は成果物メタデータ用のタイトルを決めます。
func exportTitle(spec domain.ProjectSpec) string {
	if len(spec.Chapters) > 0 && spec.Chapters[0].Title != "" {
		return spec.Chapters[0].Title
	}
	return "Generated Comic"
}

// sanitizeFileName はファイル名に使えない文字を置換します。
func sanitizeFileName(s string) string {
	out := []rune(s)
	for i, r := range out {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			out[i] = '_'
		}
	}
	return string(out)
}
