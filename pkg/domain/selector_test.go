package domain

import "testing"

func TestParseChapterSelector(t *testing.T) {
	tests := []struct {
		input   string
		wantAll bool
		start   int
		end     int
		wantErr bool
	}{
		{input: "all", wantAll: true},
		{input: "", wantAll: true},
		{input: "3", start: 3, end: 3},
		{input: "2-5", start: 2, end: 5},
		{input: " 1-1 ", start: 1, end: 1},
		{input: "abc", wantErr: true},
		{input: "5-2", wantErr: true},
		{input: "0", wantErr: true},
		{input: "1-x", wantErr: true},
	}

	for _, tt := range tests {
		sel, err := ParseChapterSelector(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("入力 %q でエラーが発生しませんでした", tt.input)
			} else if KindOf(err) != KindInput {
				t.Errorf("入力 %q: 期待した分類 %s, 実際 %s", tt.input, KindInput, KindOf(err))
			}
			continue
		}
		if err != nil {
			t.Errorf("入力 %q で予期しないエラー: %v", tt.input, err)
			continue
		}
		if sel.All != tt.wantAll || sel.Start != tt.start || sel.End != tt.end {
			t.Errorf("入力 %q: 期待値 {all:%v %d-%d}, 実際 %+v", tt.input, tt.wantAll, tt.start, tt.end, sel)
		}
	}
}

func TestChapterSelector_Contains(t *testing.T) {
	t.Run("allは全章を含むこと", func(t *testing.T) {
		sel := ChapterSelector{All: true}
		if !sel.Contains(1) || !sel.Contains(99) {
			t.Error("all セレクタが章を除外しました")
		}
	})

	t.Run("範囲セレクタは境界を含むこと", func(t *testing.T) {
		sel := ChapterSelector{Start: 2, End: 4}
		for n, want := range map[int]bool{1: false, 2: true, 4: true, 5: false} {
			if sel.Contains(n) != want {
				t.Errorf("章 %d の判定が %v になっています", n, !want)
			}
		}
	})

	t.Run("ゼロ値は全章扱いになること", func(t *testing.T) {
		var sel ChapterSelector
		if !sel.Contains(7) {
			t.Error("ゼロ値セレクタが章を除外しました")
		}
	})
}
