package domain

import "fmt"

// Chapter は物語解析で得られた1章の構造です。段落インデックスは
// 正規化済みテキストの段落分割に対応します。
type Chapter struct {
	Number         int    `json:"number"`
	Title          string `json:"title"`
	Summary        string `json:"summary"`
	StartParagraph int    `json:"start_paragraph"`
	EndParagraph   int    `json:"end_paragraph"`
}

// Character は登場人物の正準的な視覚情報です。
// 後続の全生成呼び出しはこの記述を名前で参照します（埋め込みはしません）。
type Character struct {
	Name             string `json:"name"`
	Role             string `json:"role"`
	Age              string `json:"age"`
	Gender           string `json:"gender"`
	PhysicalFeatures string `json:"physical_features"`
	Clothing         string `json:"clothing"`
	Accessories      string `json:"accessories"`
	Personality      string `json:"personality"`
}

// Environment は再登場しうるロケーションの視覚情報です。
type Environment struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Recurring   bool   `json:"recurring"`
}

// StyleGuide は作品全体の画風指示です。
type StyleGuide struct {
	ArtStyle     string `json:"art_style"`
	ColorPalette string `json:"color_palette"`
	Mood         string `json:"mood"`
	Era          string `json:"era"`
}

// ProjectSpec は物語解析ステージが一度だけ生成する読み取り専用の設計図です。
type ProjectSpec struct {
	Chapters     []Chapter     `json:"chapters"`
	Characters   []Character   `json:"characters"`
	Environments []Environment `json:"environments"`
	Style        StyleGuide    `json:"style"`
}

// Validate は外部サービス応答の境界で構造を検証します。
// 必須フィールドの欠落はデフォルト値で補わず、スキーマ違反として弾きます。
func (p *ProjectSpec) Validate() error {
	if len(p.Chapters) == 0 {
		return NewError(KindSchemaViolation, "解析結果に章が含まれていません")
	}
	for i, ch := range p.Chapters {
		if ch.Number <= 0 {
			return NewError(KindSchemaViolation, "章 %d の番号が不正です: %d", i+1, ch.Number)
		}
		if ch.EndParagraph < ch.StartParagraph {
			return NewError(KindSchemaViolation, "章 %d の段落範囲が逆転しています", ch.Number)
		}
	}
	if p.Style.ArtStyle == "" {
		return NewError(KindSchemaViolation, "画風 (style.art_style) が指定されていません")
	}
	seen := make(map[string]struct{}, len(p.Characters))
	for _, c := range p.Characters {
		if c.Name == "" {
			return NewError(KindSchemaViolation, "名前のないキャラクターが含まれています")
		}
		if c.PhysicalFeatures == "" {
			return NewError(KindSchemaViolation, "キャラクター '%s' の身体的特徴がありません", c.Name)
		}
		if _, dup := seen[c.Name]; dup {
			return NewError(KindSchemaViolation, "キャラクター '%s' が重複しています", c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return nil
}

// FindCharacter は名前からキャラクターを検索します。
func (p *ProjectSpec) FindCharacter(name string) *Character {
	for i := range p.Characters {
		if p.Characters[i].Name == name {
			return &p.Characters[i]
		}
	}
	return nil
}

// SelectChapters はセレクタに合致する章のみを返します。
// 合致する章が1つもない場合は入力エラーです。
func (p *ProjectSpec) SelectChapters(sel ChapterSelector) ([]Chapter, error) {
	var out []Chapter
	for _, ch := range p.Chapters {
		if sel.Contains(ch.Number) {
			out = append(out, ch)
		}
	}
	if len(out) == 0 {
		return nil, NewError(KindInput, "指定された章 '%s' は存在しません", sel)
	}
	return out, nil
}

// CharacterNames は宣言済みキャラクター名の一覧を返します。
func (p *ProjectSpec) CharacterNames() []string {
	names := make([]string, 0, len(p.Characters))
	for _, c := range p.Characters {
		names = append(names, c.Name)
	}
	return names
}

func (c Character) String() string {
	return fmt.Sprintf("%s (%s)", c.Name, c.Role)
}
