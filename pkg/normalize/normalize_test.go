package normalize

import (
	"strings"
	"testing"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

func TestNormalize_基本整形(t *testing.T) {
	raw := "First  paragraph with   extra spaces.\r\n\r\n\r\n\r\nSecond “quoted” paragraph."

	res, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if len(res.Paragraphs) != 2 {
		t.Fatalf("段落数 = %d, want 2", len(res.Paragraphs))
	}
	if strings.Contains(res.Text, "  ") {
		t.Error("連続スペースが残っています")
	}
	if strings.Contains(res.Text, "“") || strings.Contains(res.Text, "”") {
		t.Error("曲がった引用符が標準化されていません")
	}
	if res.Metadata.ParagraphCount != 2 {
		t.Errorf("ParagraphCount = %d, want 2", res.Metadata.ParagraphCount)
	}
}

func TestNormalize_不正な入力(t *testing.T) {
	t.Run("空テキスト", func(t *testing.T) {
		_, err := Normalize("   \n\n  ")
		if domain.KindOf(err) != domain.KindInput {
			t.Errorf("KindOf(err) = %v, want %v", domain.KindOf(err), domain.KindInput)
		}
	})

	t.Run("不正なUTF-8", func(t *testing.T) {
		_, err := Normalize("hello \xff\xfe world")
		if domain.KindOf(err) != domain.KindInput {
			t.Errorf("KindOf(err) = %v, want %v", domain.KindOf(err), domain.KindInput)
		}
	})
}

func TestNormalize_構造検出(t *testing.T) {
	raw := strings.Join([]string{
		"Chapter 1",
		"The hero woke up.",
		"***",
		"Later that day, something happened.",
		"Chapter 2",
		"The journey continued.",
	}, "\n\n")

	res, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if !res.Structure.HasChapters {
		t.Error("章見出しが検出されていません")
	}
	if got := len(res.Structure.ChapterMarkers); got != 2 {
		t.Errorf("章マーカー数 = %d, want 2", got)
	}
	if got := len(res.Structure.SceneBreaks); got != 1 {
		t.Errorf("場面転換数 = %d, want 1", got)
	}
	if res.Metadata.SceneCount != 2 {
		t.Errorf("SceneCount = %d, want 2", res.Metadata.SceneCount)
	}
}

func TestNormalize_セリフ注記(t *testing.T) {
	tests := []struct {
		name string
		para string
		want string
	}{
		{"地の文のみ", "The sun rose over the hills.", "[NARRATION]"},
		{"セリフのみ", `"Good morning, everyone here today!"`, "[DIALOGUE]"},
		{"混在", `She said "hello" and walked away toward the distant village gate.`, "[MIXED]"},
		{"鉤括弧", "彼は「おはよう」と言って、ゆっくりと遠くの村の門へ歩いて行った。", "[MIXED]"},
		{"ギュメは標準化してから判定する", `Il dit «bonjour» et partit lentement vers la porte du village.`, "[MIXED]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Normalize(tt.para)
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if !strings.HasPrefix(res.Paragraphs[0], tt.want) {
				t.Errorf("注記 = %q, want prefix %q", res.Paragraphs[0], tt.want)
			}
		})
	}
}

func TestNormalize_視点推定(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"一人称", "I walked to my house. I saw my friend. We talked about our plans.", "first"},
		{"三人称", "He walked to the store. She saw him there. They talked together.", "third"},
		{"代名詞なし", "Rain fell. Thunder rolled. Night came.", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Normalize(tt.text)
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if res.Metadata.PointOfView != tt.want {
				t.Errorf("PointOfView = %q, want %q", res.Metadata.PointOfView, tt.want)
			}
		})
	}
}
