package domain

import (
	"reflect"
	"testing"
)

func TestPanel_Validate(t *testing.T) {
	known := map[string]struct{}{
		"Sarah": {}, "Marcus": {}, "Elena": {}, "Viktor": {},
	}

	t.Run("3人までのパネルは許容されること", func(t *testing.T) {
		p := Panel{Sequence: 1, Description: "路地裏の対峙", Characters: []string{"Sarah", "Marcus", "Elena"}}
		if err := p.Validate(known); err != nil {
			t.Fatalf("正常なパネルでエラーが発生しました: %v", err)
		}
	})

	t.Run("4人以上は整合性違反になること", func(t *testing.T) {
		p := Panel{Sequence: 2, Description: "全員集合", Characters: []string{"Sarah", "Marcus", "Elena", "Viktor"}}
		err := p.Validate(known)
		if err == nil {
			t.Fatal("キャラクター数超過でエラーが発生しませんでした")
		}
		if KindOf(err) != KindConsistency {
			t.Errorf("期待した分類 %s, 実際 %s", KindConsistency, KindOf(err))
		}
	})

	t.Run("未宣言キャラクターの参照は弾かれること", func(t *testing.T) {
		p := Panel{Sequence: 3, Description: "謎の人物", Characters: []string{"Unknown"}}
		if err := p.Validate(known); KindOf(err) != KindConsistency {
			t.Errorf("未宣言キャラクターが検出されませんでした: %v", err)
		}
	})

	t.Run("描写のないパネルはスキーマ違反になること", func(t *testing.T) {
		p := Panel{Sequence: 4}
		if err := p.Validate(known); KindOf(err) != KindSchemaViolation {
			t.Errorf("描写欠落が検出されませんでした: %v", err)
		}
	})
}

func TestPanels_SortBySequence(t *testing.T) {
	ps := Panels{
		{Sequence: 3, Description: "c"},
		{Sequence: 1, Description: "a"},
		{Sequence: 2, Description: "b"},
	}

	sorted := ps.SortBySequence()

	for i, p := range sorted {
		if p.Sequence != i+1 {
			t.Errorf("位置 %d の通し番号が %d になっています", i, p.Sequence)
		}
	}

	// 元のスライスは変更されないこと
	if ps[0].Sequence != 3 {
		t.Error("SortBySequence が元のスライスを破壊しました")
	}
}

func TestPanels_UniqueCharacterNames(t *testing.T) {
	ps := Panels{
		{Characters: []string{"Sarah", "Marcus"}},
		{Characters: []string{"Marcus"}},
		{Characters: nil},
		{Characters: []string{"Elena", "Sarah"}},
	}

	got := ps.UniqueCharacterNames()
	want := []string{"Elena", "Marcus", "Sarah"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("期待値 %v, 実際の値 %v", want, got)
	}
}
