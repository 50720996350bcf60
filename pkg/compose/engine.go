package compose

import (
	"image"
	"log/slog"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

// Engine はページ合成エンジンです。純粋なローカル計算のみを行います。
type Engine struct {
	geom Geometry
}

// NewEngine は指定されたページ設定で Engine を初期化します。
func NewEngine(geom Geometry) *Engine {
	return &Engine{geom: geom}
}

// ComposedPage は合成済みの1ページです。
type ComposedPage struct {
	Canvas  *image.RGBA
	Partial bool
}

// ComposePage は1つの計画ページ分のパネル結果を1枚以上のキャンバスへ合成します。
// パネル数がレイアウトのスロット数を超える場合、同じレイアウトの続きページへ
// 自動で繰り越します。パネル0件は入力契約違反です。
func (e *Engine) ComposePage(layout domain.LayoutKind, results []domain.PanelResult) ([]ComposedPage, error) {
	chunks, err := e.geom.paginate(layout, results)
	if err != nil {
		return nil, err
	}

	pages := make([]ComposedPage, 0, len(chunks))
	for _, chunk := range chunks {
		pages = append(pages, e.renderChunk(chunk))
	}
	return pages, nil
}

// ComposeChapter は章計画の全ページを読み順で合成します。
// results は通し番号をキーにしたパネル結果の索引です。
func (e *Engine) ComposeChapter(plan domain.ChapterPlan, results map[int]domain.PanelResult) ([]ComposedPage, error) {
	var pages []ComposedPage
	for _, planned := range plan.Pages {
		pageResults := make([]domain.PanelResult, 0, len(planned.Panels))
		for _, panel := range planned.Panels {
			if res, ok := results[panel.Sequence]; ok {
				pageResults = append(pageResults, res)
			} else {
				// 結果が届いていないパネルはプレースホルダーとして合成します。
				pageResults = append(pageResults, domain.PanelResult{
					Panel: panel,
					Err:   &domain.ErrorDetail{Kind: domain.KindInternal, Message: "パネル結果が欠落しています"},
				})
			}
		}

		composed, err := e.ComposePage(planned.Layout, pageResults)
		if err != nil {
			return nil, err
		}
		pages = append(pages, composed...)
	}

	slog.Info("章の合成が完了しました",
		"chapter", plan.ChapterNumber, "pages", len(pages))
	return pages, nil
}

// renderChunk は1キャンバス分のスロットへパネルを順に配置します。
// 末尾の余りスロットは空白のまま残します。
func (e *Engine) renderChunk(chunk pageChunk) ComposedPage {
	canvas := newPageCanvas(chunk.width, chunk.height)
	partial := false

	for i, res := range chunk.results {
		slot := chunk.slots[i]
		if res.Failed() {
			drawPlaceholder(canvas, slot, res.Panel)
			partial = true
		} else {
			drawPanelImage(canvas, slot, res)
		}
		// テキストオーバーレイは画像配置の後に重ねます。
		drawDialogueOverlay(canvas, slot, res.Panel)
	}

	return ComposedPage{Canvas: canvas, Partial: partial}
}
