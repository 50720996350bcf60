package prompts

const (
	// CinematicTags クオリティ向上のための共通タグ
	CinematicTags = "cinematic composition, high resolution, sharp focus, 8k"

	// NegativePanelPrompt 単体パネルでは「文字」や「フキダシ」を徹底排除します
	NegativePanelPrompt = "speech bubble, dialogue balloon, text, alphabet, letters, words, signatures, watermark, username, low quality, distorted, bad anatomy"

	// NegativeSheetPrompt キャラクターシートでは単独立ち絵以外を排除します
	NegativeSheetPrompt = "multiple people, crowd, realistic photo, 3d render, blurry, text, watermark, low quality, distorted, bad anatomy"

	// RenderingStyle は共通の画風を定義します。
	RenderingStyle = `### GLOBAL VISUAL STYLE ###
- RENDERING: Sharp clean lineart, vibrant colors, no blurring, high contrast, cinematic comic lighting.`
)

// SheetAngles はキャラクターシートで生成する標準の3アングルです。
var SheetAngles = []string{"front", "3/4", "profile"}

// angleDescriptions はアングル名を作画指示へ変換する表です。
var angleDescriptions = map[string]string{
	"front":    "facing forward, front view",
	"3/4":      "three-quarter view, slight angle",
	"profile":  "side profile, 90 degree angle",
	"back":     "back view, facing away",
	"overhead": "overhead view, bird's eye",
}

// shotDescriptions はショット名を作画指示へ変換する表です。
var shotDescriptions = map[string]string{
	"extreme-close-up": "extreme close-up shot, face detail",
	"close-up":         "close-up shot, head and shoulders",
	"medium-shot":      "medium shot, waist up",
	"full-body":        "full body shot, head to toe",
	"long-shot":        "long shot, full figure with environment",
}

// AngleDescription はアングル名に対応する指示句を返します。未知の値は正面扱いです。
func AngleDescription(angle string) string {
	if desc, ok := angleDescriptions[angle]; ok {
		return desc
	}
	return "front view"
}

// ShotDescription はショット名に対応する指示句を返します。未知の値はミディアムショット扱いです。
func ShotDescription(shot string) string {
	if desc, ok := shotDescriptions[shot]; ok {
		return desc
	}
	return "medium shot"
}
