package compose

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"unicode/utf8"

	// パネル画像のデコード用に登録します。
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

var (
	pageBackground        = color.White
	panelBorder           = color.Black
	placeholderFill       = color.RGBA{R: 0xE0, G: 0xE0, B: 0xE0, A: 0xFF}
	placeholderText       = color.RGBA{R: 0x40, G: 0x40, B: 0x40, A: 0xFF}
	dialogueBoxFill       = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xE6}
	dialogueTextColor     = color.Black
	borderThickness       = 2
	dialoguePadding       = 6
	dialogueLineSpacing   = 4
	placeholderTextMargin = 12
)

// textFace はプレースホルダーとセリフの描画に使う等幅フォントです。
var textFace = basicfont.Face7x13

// newPageCanvas は白地のページキャンバスを生成します。
func newPageCanvas(width, height int) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(pageBackground), image.Point{}, draw.Src)
	return canvas
}

// drawPanelImage はスロット内へアスペクト比を保って画像を中央配置します。
// デコードできないデータはプレースホルダー描画へフォールバックします。
func drawPanelImage(canvas *image.RGBA, slot image.Rectangle, res domain.PanelResult) {
	img, _, err := image.Decode(bytes.NewReader(res.ImageData))
	if err != nil {
		drawPlaceholder(canvas, slot, res.Panel)
		return
	}

	target := fitRect(img.Bounds(), slot)
	drawScaled(canvas, target, img)
	drawBorder(canvas, target)
}

// fitRect は src の縦横比を保ったまま slot に内接する矩形を返します。
func fitRect(src, slot image.Rectangle) image.Rectangle {
	srcW, srcH := src.Dx(), src.Dy()
	slotW, slotH := slot.Dx(), slot.Dy()
	if srcW == 0 || srcH == 0 || slotW == 0 || slotH == 0 {
		return slot
	}

	scaleW := float64(slotW) / float64(srcW)
	scaleH := float64(slotH) / float64(srcH)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}

	w := int(float64(srcW) * scale)
	h := int(float64(srcH) * scale)
	x := slot.Min.X + (slotW-w)/2
	y := slot.Min.Y + (slotH-h)/2
	return image.Rect(x, y, x+w, y+h)
}

// drawScaled は最近傍法で src を target へ拡縮描画します。
func drawScaled(canvas *image.RGBA, target image.Rectangle, src image.Image) {
	srcBounds := src.Bounds()
	tw, th := target.Dx(), target.Dy()
	if tw == 0 || th == 0 {
		return
	}

	for y := 0; y < th; y++ {
		sy := srcBounds.Min.Y + y*srcBounds.Dy()/th
		for x := 0; x < tw; x++ {
			sx := srcBounds.Min.X + x*srcBounds.Dx()/tw
			canvas.Set(target.Min.X+x, target.Min.Y+y, src.At(sx, sy))
		}
	}
}

// drawBorder は矩形の枠線を描きます。
func drawBorder(canvas *image.RGBA, rect image.Rectangle) {
	uniform := image.NewUniform(panelBorder)
	draw.Draw(canvas, image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+borderThickness), uniform, image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(rect.Min.X, rect.Max.Y-borderThickness, rect.Max.X, rect.Max.Y), uniform, image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+borderThickness, rect.Max.Y), uniform, image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(rect.Max.X-borderThickness, rect.Min.Y, rect.Max.X, rect.Max.Y), uniform, image.Point{}, draw.Src)
}

// drawPlaceholder は失敗パネル用の中立的な矩形と説明文を描きます。
// 合成は上流の失敗があっても常に完全なページ一式を生成します。
func drawPlaceholder(canvas *image.RGBA, slot image.Rectangle, panel domain.Panel) {
	draw.Draw(canvas, slot, image.NewUniform(placeholderFill), image.Point{}, draw.Src)
	drawBorder(canvas, slot)

	maxWidth := slot.Dx() - 2*placeholderTextMargin
	lines := wrapText(panel.Description, maxWidth)

	y := slot.Min.Y + placeholderTextMargin + textFace.Ascent
	for _, line := range lines {
		if y > slot.Max.Y-placeholderTextMargin {
			break
		}
		drawTextLine(canvas, slot.Min.X+placeholderTextMargin, y, line, placeholderText)
		y += textFace.Height + dialogueLineSpacing
	}
}

// drawDialogueOverlay はセリフとナレーションをスロット下部の白帯に重ねます。
// 画像配置より後、ページ直列化より前に呼ばれます。
func drawDialogueOverlay(canvas *image.RGBA, slot image.Rectangle, panel domain.Panel) {
	var lines []string
	if panel.Narration != "" {
		lines = append(lines, wrapText(panel.Narration, slot.Dx()-2*dialoguePadding)...)
	}
	for _, d := range panel.Dialogue {
		text := d.Text
		if d.Speaker != "" {
			text = d.Speaker + ": " + d.Text
		}
		lines = append(lines, wrapText(text, slot.Dx()-2*dialoguePadding)...)
	}
	if len(lines) == 0 {
		return
	}

	lineHeight := textFace.Height + dialogueLineSpacing
	boxHeight := len(lines)*lineHeight + 2*dialoguePadding
	if boxHeight > slot.Dy()/2 {
		boxHeight = slot.Dy() / 2
	}

	box := image.Rect(slot.Min.X, slot.Max.Y-boxHeight, slot.Max.X, slot.Max.Y)
	draw.Draw(canvas, box, image.NewUniform(dialogueBoxFill), image.Point{}, draw.Over)

	y := box.Min.Y + dialoguePadding + textFace.Ascent
	for _, line := range lines {
		if y > box.Max.Y-dialoguePadding {
			break
		}
		drawTextLine(canvas, box.Min.X+dialoguePadding, y, line, dialogueTextColor)
		y += lineHeight
	}
}

func drawTextLine(canvas *image.RGBA, x, y int, text string, col color.Color) {
	drawer := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(col),
		Face: textFace,
		Dot:  fixed.P(x, y),
	}
	drawer.DrawString(text)
}

// wrapText は等幅フォント前提の単純な単語折り返しです。
// 行幅はバイト数ではなく文字数（ルーン数）で数えます。
func wrapText(text string, maxWidth int) []string {
	if maxWidth <= 0 {
		return nil
	}
	maxChars := maxWidth / textFace.Advance
	if maxChars < 1 {
		maxChars = 1
	}

	var lines []string
	var current strings.Builder
	currentChars := 0
	for _, word := range strings.Fields(text) {
		wordChars := utf8.RuneCountInString(word)
		if currentChars > 0 && currentChars+1+wordChars > maxChars {
			lines = append(lines, current.String())
			current.Reset()
			currentChars = 0
		}
		if currentChars > 0 {
			current.WriteByte(' ')
			currentChars++
		}
		current.WriteString(word)
		currentChars += wordChars
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
