package domain

// LayoutKind はページ上のコマ配置テンプレートの種別です。
type LayoutKind string

const (
	// Layout3Grid は縦3段のグリッドです。
	Layout3Grid LayoutKind = "3-panel-grid"
	// Layout4Grid は2x2のグリッドです。
	Layout4Grid LayoutKind = "4-panel-grid"
	// LayoutSplash は見開き1枚の大ゴマです。劇的な場面に使います。
	LayoutSplash LayoutKind = "splash"
	// LayoutWebtoon は縦スクロール形式です。
	LayoutWebtoon LayoutKind = "webtoon"
)

// ParseLayoutKind は外部サービスが返すレイアウト名を検証します。
// 未知の名前は黙って置き換えず、スキーマ違反として弾きます。
func ParseLayoutKind(s string) (LayoutKind, error) {
	switch LayoutKind(s) {
	case Layout3Grid, Layout4Grid, LayoutSplash, LayoutWebtoon:
		return LayoutKind(s), nil
	case "":
		return Layout3Grid, nil
	}
	return "", NewError(KindSchemaViolation, "未知のレイアウト種別です: '%s'", s)
}

// SlotCount はテンプレート1ページあたりのスロット数を返します。
// webtoon は可変長のため 0 を返します。
func (k LayoutKind) SlotCount() int {
	switch k {
	case Layout3Grid:
		return 3
	case Layout4Grid:
		return 4
	case LayoutSplash:
		return 1
	}
	return 0
}

// PlannedPage は章内の1ページ分のコマ割り計画です。
// 一度選択されたレイアウトは明示的な再生成がない限り不変です。
type PlannedPage struct {
	PageNumber int        `json:"page_number"`
	Layout     LayoutKind `json:"layout"`
	Panels     Panels     `json:"panels"`
}

// ChapterPlan は1章分のコマ割り結果です。
type ChapterPlan struct {
	ChapterNumber int           `json:"chapter_number"`
	ChapterTitle  string        `json:"chapter_title"`
	Pages         []PlannedPage `json:"pages"`
}

// AllPanels は章内の全パネルをページ順・通し番号順で返します。
func (cp ChapterPlan) AllPanels() Panels {
	var all Panels
	for _, page := range cp.Pages {
		all = append(all, page.Panels...)
	}
	return all
}
