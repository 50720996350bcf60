package prompts

import (
	"strings"
	"testing"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

func TestTextPromptBuilder_Build(t *testing.T) {
	builder, err := NewTextPromptBuilder()
	if err != nil {
		t.Fatalf("NewTextPromptBuilder() error = %v", err)
	}

	t.Run("解析モード", func(t *testing.T) {
		prompt, err := builder.Build(ModeAnalysis, TemplateData{
			StoryText:        "Once upon a time.",
			StyleInstruction: "- Use the following art style: noir comic",
			MaxChapters:      50,
		})
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		if !strings.Contains(prompt, "Once upon a time.") {
			t.Error("物語テキストが埋め込まれていません")
		}
		if !strings.Contains(prompt, "noir comic") {
			t.Error("スタイル指示が埋め込まれていません")
		}
	})

	t.Run("解析モードは視点付きで指示行を追加する", func(t *testing.T) {
		prompt, err := builder.Build(ModeAnalysis, TemplateData{
			StoryText:   "I woke up.",
			MaxChapters: 50,
			PointOfView: "first",
		})
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		if !strings.Contains(prompt, "narrated in first person") {
			t.Error("視点の指示行が埋め込まれていません")
		}
	})

	t.Run("解析モードは視点不明なら指示行を出さない", func(t *testing.T) {
		prompt, err := builder.Build(ModeAnalysis, TemplateData{
			StoryText:   "A story.",
			MaxChapters: 50,
			PointOfView: "unknown",
		})
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		if strings.Contains(prompt, "narrated in") {
			t.Error("視点不明なのに指示行が出力されています")
		}
	})

	t.Run("コマ割りモード", func(t *testing.T) {
		prompt, err := builder.Build(ModeBreakdown, TemplateData{
			ChapterTitle:        "The Beginning",
			ChapterText:         "The hero woke up.",
			CharacterNames:      "Aoi, Ren",
			ArtStyle:            "manga",
			MaxCharsPerPanel:    3,
			TargetPanelsPerPage: 3,
		})
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		if !strings.Contains(prompt, "Aoi, Ren") {
			t.Error("登場キャラクター一覧が埋め込まれていません")
		}
		if !strings.Contains(prompt, "Limit to 3 characters per panel") {
			t.Error("パネルあたりの人数上限が埋め込まれていません")
		}
	})

	t.Run("不明なモード", func(t *testing.T) {
		if _, err := builder.Build("unknown", TemplateData{}); err == nil {
			t.Error("不明なモードでエラーが返りません")
		}
	})
}

func TestImagePromptBuilder_BuildTemplateFragment(t *testing.T) {
	pb := NewImagePromptBuilder(domain.StyleGuide{ArtStyle: "noir comic"}, "")

	char := domain.Character{
		Name:             "Sarah",
		Age:              "mid-30s",
		Gender:           "female",
		PhysicalFeatures: "short black hair, green eyes",
		Clothing:         "trench coat",
	}

	fragment := pb.BuildTemplateFragment(char)
	want := "noir comic, Sarah, mid-30s, female, short black hair, green eyes, trench coat"
	if fragment != want {
		t.Errorf("fragment = %q, want %q", fragment, want)
	}
}

func TestImagePromptBuilder_BuildPanel(t *testing.T) {
	pb := NewImagePromptBuilder(domain.StyleGuide{ArtStyle: "manga", Mood: "dark"}, "high quality")

	panel := domain.Panel{
		Sequence:    1,
		Description: "Sarah stands in the alley.",
		Dialogue:    []domain.DialogueLine{{Speaker: "Sarah", Text: "Who's there?"}},
		CameraAngle: "close-up",
		Environment: "alley",
	}

	user, system := pb.BuildPanel(panel, []string{"manga, Sarah, trench coat"})

	if !strings.Contains(user, "Sarah stands in the alley.") {
		t.Error("パネル描写が含まれていません")
	}
	if !strings.Contains(user, "close-up shot") {
		t.Error("カメラアングル指示が含まれていません")
	}
	if strings.Contains(user, "Who's there?") {
		t.Error("セリフはプロンプトに含めてはいけません")
	}
	if !strings.Contains(system, "ARTISTIC STYLE") {
		t.Error("スタイルセクションが SystemPrompt に含まれていません")
	}
}

func TestImagePromptBuilder_BuildCharacterSheet(t *testing.T) {
	pb := NewImagePromptBuilder(domain.StyleGuide{ArtStyle: "webtoon"}, "")

	user, _ := pb.BuildCharacterSheet("webtoon, Ren, silver hair", "profile")
	if !strings.Contains(user, "side profile") {
		t.Errorf("プロファイルアングル指示が含まれていません: %q", user)
	}
	if !strings.Contains(user, "character reference sheet") {
		t.Error("リファレンスシート指示が含まれていません")
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"死体表現", "Detective finds a dead body in the alley", "Detective finds a figure on the ground in the alley"},
		{"血の表現", "Blood on the floor", "dark stains on the floor"},
		{"銃口を向ける", "pointing a gun at him", "holding weapon at side at him"},
		{"大文字小文字を無視", "MURDER scene", "crime scene"},
		{"安全な文章はそのまま", "Two friends share tea in a garden", "Two friends share tea in a garden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
