// Package compose はレンダリング済みパネルをページキャンバスへ合成する
// 決定論的なレイアウトエンジンです。外部サービスは一切呼びません。
package compose

import (
	"image"
	"math"
	"sort"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

// Geometry はページの寸法とレイアウト余白の設定です。単位はピクセルです。
type Geometry struct {
	PageWidth     int
	PageHeight    int
	GutterWidth   int
	Margin        int
	MaxFlowHeight int
}

// defaultPanelAspect はアスペクトヒント未指定パネルの既定比（幅/高さ）です。
const defaultPanelAspect = 4.0 / 3.0

// printableArea は余白を除いた描画可能領域を返します。
func (g Geometry) printableArea() image.Rectangle {
	return image.Rect(g.Margin, g.Margin, g.PageWidth-g.Margin, g.PageHeight-g.Margin)
}

// gridDims はグリッド系レイアウトの行数・列数を返します。
func gridDims(layout domain.LayoutKind) (rows, cols int) {
	switch layout {
	case domain.Layout4Grid:
		return 2, 2
	default:
		return 3, 1
	}
}

// gridSlots は R行×C列 のスロット矩形を読み順（左上から右下）で計算します。
// ガターは隣接セル間で半分ずつ分担し、ページ境界では余白のみを取ります。
func (g Geometry) gridSlots(rows, cols int) []image.Rectangle {
	area := g.printableArea()
	cellW := float64(area.Dx()) / float64(cols)
	cellH := float64(area.Dy()) / float64(rows)
	halfGutter := float64(g.GutterWidth) / 2

	slots := make([]image.Rectangle, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			left := float64(area.Min.X) + float64(c)*cellW
			top := float64(area.Min.Y) + float64(r)*cellH
			right := left + cellW
			bottom := top + cellH

			// 内側の辺だけガターの半分ずつ詰めます。
			if c > 0 {
				left += halfGutter
			}
			if c < cols-1 {
				right -= halfGutter
			}
			if r > 0 {
				top += halfGutter
			}
			if r < rows-1 {
				bottom -= halfGutter
			}

			slots = append(slots, image.Rect(
				int(math.Round(left)), int(math.Round(top)),
				int(math.Round(right)), int(math.Round(bottom)),
			))
		}
	}
	return slots
}

// splashSlot は描画可能領域全体を占める単一スロットです。
func (g Geometry) splashSlot() image.Rectangle {
	return g.printableArea()
}

// flowHeight はアスペクトヒントからパネルの描画高さを計算します。
func (g Geometry) flowHeight(aspect float64) int {
	if aspect <= 0 {
		aspect = defaultPanelAspect
	}
	width := g.PageWidth - 2*g.Margin
	return int(math.Round(float64(width) / aspect))
}

// pageChunk は1枚のキャンバスに載せるスロットとパネル結果の対です。
// スロット数がパネル数を上回る場合、末尾のスロットは空白のまま残ります。
type pageChunk struct {
	width   int
	height  int
	slots   []image.Rectangle
	results []domain.PanelResult
}

// paginate はパネル結果列をキャンバス単位へ分割します。パネルは事前に
// 通し番号順へ並べ直します。スロット不足は同じレイアウトでの続きページに
// 自動で繰り越します。
func (g Geometry) paginate(layout domain.LayoutKind, results []domain.PanelResult) ([]pageChunk, error) {
	if len(results) == 0 {
		return nil, domain.NewError(domain.KindInput, "合成対象のパネルが0件です")
	}

	ordered := sortResults(results)

	if layout == domain.LayoutWebtoon {
		return g.paginateFlow(ordered), nil
	}

	var slots []image.Rectangle
	if layout == domain.LayoutSplash {
		slots = []image.Rectangle{g.splashSlot()}
	} else {
		rows, cols := gridDims(layout)
		slots = g.gridSlots(rows, cols)
	}

	perPage := len(slots)
	var chunks []pageChunk
	for start := 0; start < len(ordered); start += perPage {
		end := start + perPage
		if end > len(ordered) {
			end = len(ordered)
		}
		chunks = append(chunks, pageChunk{
			width:   g.PageWidth,
			height:  g.PageHeight,
			slots:   slots,
			results: ordered[start:end],
		})
	}
	return chunks, nil
}

// paginateFlow は縦読み用の分割です。高さはアスペクトヒントに比例し、
// 上限超過時の改ページは必ずパネル境界で行います。
func (g Geometry) paginateFlow(ordered []domain.PanelResult) []pageChunk {
	width := g.PageWidth - 2*g.Margin

	var chunks []pageChunk
	var current pageChunk
	y := g.Margin

	flush := func() {
		if len(current.results) == 0 {
			return
		}
		current.width = g.PageWidth
		current.height = y + g.Margin - g.GutterWidth
		chunks = append(chunks, current)
		current = pageChunk{}
		y = g.Margin
	}

	for _, res := range ordered {
		h := g.flowHeight(res.Panel.AspectHint)
		if len(current.results) > 0 && y+h > g.MaxFlowHeight {
			flush()
		}
		current.slots = append(current.slots, image.Rect(g.Margin, y, g.Margin+width, y+h))
		current.results = append(current.results, res)
		y += h + g.GutterWidth
	}
	flush()

	return chunks
}

// sortResults はワーカープールの完了順に依存しないよう、通し番号順の複製を返します。
func sortResults(results []domain.PanelResult) []domain.PanelResult {
	ordered := make([]domain.PanelResult, len(results))
	copy(ordered, results)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Panel.Sequence < ordered[j].Panel.Sequence
	})
	return ordered
}
