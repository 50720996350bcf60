package domain

import "sort"

// MaxCharactersPerPanel は1パネルに登場できるキャラクター数の上限です。
// 超過した応答はレンダリング開始前に弾かれます。
const MaxCharactersPerPanel = 3

// DialogueLine はパネル内の1つの発話です。セリフはピクセルには焼き込まず、
// 合成ステージのテキストオーバーレイとしてのみ描画されます。
type DialogueLine struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Emotion string `json:"emotion"`
}

// Panel は1コマの構成単位です。Sequence は章内の通し番号であり、
// 読み順の唯一の正なのだ。レイアウト選択が並びを変えることはありません。
type Panel struct {
	Sequence    int            `json:"sequence"`
	Description string         `json:"description"`
	Dialogue    []DialogueLine `json:"dialogue"`
	Narration   string         `json:"narration"`
	Characters  []string       `json:"characters"`
	CameraAngle string         `json:"camera_angle"`
	Environment string         `json:"environment"`
	KeyMoment   bool           `json:"key_moment"`
	AspectHint  float64        `json:"aspect_hint"`

	// ImageHandle はレンダリング済み画像への参照です。未生成なら空です。
	ImageHandle string `json:"-"`
}

// Validate はパネル単体の整合性を検証します。
func (p Panel) Validate(known map[string]struct{}) error {
	if p.Description == "" {
		return NewError(KindSchemaViolation, "パネル %d に描写がありません", p.Sequence)
	}
	if len(p.Characters) > MaxCharactersPerPanel {
		return NewError(KindConsistency,
			"パネル %d のキャラクター数 %d が上限 %d を超えています",
			p.Sequence, len(p.Characters), MaxCharactersPerPanel)
	}
	for _, name := range p.Characters {
		if _, ok := known[name]; !ok {
			return NewError(KindConsistency,
				"パネル %d が未宣言のキャラクター '%s' を参照しています", p.Sequence, name)
		}
	}
	return nil
}

// Panels はパネル列に対する補助操作をまとめた型です。
type Panels []Panel

// SortBySequence は通し番号順の複製を返します。ワーカープールからの
// 完了順に依存せず、合成前に必ず読み順へ並べ直します。
func (ps Panels) SortBySequence() Panels {
	sorted := make(Panels, len(ps))
	copy(sorted, ps)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Sequence < sorted[j].Sequence
	})
	return sorted
}

// UniqueCharacterNames は重複を除いた参照キャラクター名を返します。
func (ps Panels) UniqueCharacterNames() []string {
	set := make(map[string]struct{})
	for _, panel := range ps {
		for _, name := range panel.Characters {
			set[name] = struct{}{}
		}
	}

	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PanelResult はファンアウト境界を越える1パネルの結果型です。
// 例外的な失敗も値として運び、合成ステージがそのまま消費します。
type PanelResult struct {
	Panel     Panel
	ImageData []byte
	MimeType  string
	Err       *ErrorDetail
}

// Failed はプレースホルダー描画の対象かどうかを返します。
func (r PanelResult) Failed() bool { return r.Err != nil }
