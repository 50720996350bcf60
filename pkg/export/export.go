// Package export は合成済みページを配布用フォーマットへ書き出します。
package export

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"path"

	"github.com/go-pdf/fpdf"

	"github.com/shouni/go-comic-kit/pkg/compose"
	"github.com/shouni/go-comic-kit/pkg/domain"
)

// OutputWriter は成果物を外部ストレージへ保存する契約です。
// remoteio.OutputWriter がこれを満たします。
type OutputWriter interface {
	Write(ctx context.Context, path string, data io.Reader, mimeType string) error
}

// Exporter はページ一式を1つの成果物へエンコードして保存します。
type Exporter struct {
	writer    OutputWriter
	outputDir string
}

// New は Exporter を初期化します。
func New(writer OutputWriter, outputDir string) *Exporter {
	return &Exporter{
		writer:    writer,
		outputDir: outputDir,
	}
}

// Export は要求フォーマットに応じたエンコーダーへページを渡し、
// 保存先を示す Artifact を返します。ページ0件は入力契約違反です。
func (e *Exporter) Export(ctx context.Context, jobID, title string, format domain.OutputFormat, pages []compose.ComposedPage) (domain.Artifact, error) {
	if len(pages) == 0 {
		return domain.Artifact{}, domain.NewError(domain.KindInput, "エクスポート対象のページが0件です")
	}

	encoded, err := encodePages(pages)
	if err != nil {
		return domain.Artifact{}, err
	}

	baseDir := path.Join(e.outputDir, jobID)

	var artifactPath string
	switch format {
	case domain.FormatPDF:
		artifactPath, err = e.exportPDF(ctx, baseDir, title, pages, encoded)
	case domain.FormatPNG:
		artifactPath, err = e.exportPNG(ctx, baseDir, encoded)
	case domain.FormatCBZ:
		artifactPath, err = e.exportCBZ(ctx, baseDir, encoded)
	default:
		return domain.Artifact{}, domain.NewError(domain.KindInput, "未対応の出力フォーマットです: %s", format)
	}
	if err != nil {
		return domain.Artifact{}, err
	}

	slog.Info("成果物を書き出しました", "format", format, "path", artifactPath, "pages", len(pages))
	return domain.Artifact{
		Path:      artifactPath,
		Format:    format,
		PageCount: len(pages),
	}, nil
}

// encodePages は全キャンバスをPNGへ直列化します。
func encodePages(pages []compose.ComposedPage) ([][]byte, error) {
	encoded := make([][]byte, 0, len(pages))
	for i, page := range pages {
		var buf bytes.Buffer
		if err := png.Encode(&buf, page.Canvas); err != nil {
			return nil, domain.WrapError(domain.KindInternal, err, "ページ %d のPNGエンコードに失敗", i+1)
		}
		encoded = append(encoded, buf.Bytes())
	}
	return encoded, nil
}

// exportPDF は1ページ1キャンバスのPDFを生成します。
// キャンバスのピクセル寸法をそのままポイントとして扱います。
func (e *Exporter) exportPDF(ctx context.Context, baseDir, title string, pages []compose.ComposedPage, encoded [][]byte) (string, error) {
	first := pages[0].Canvas.Bounds()
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: float64(first.Dx()), Ht: float64(first.Dy())},
	})
	pdf.SetTitle(title, true)
	pdf.SetAutoPageBreak(false, 0)

	for i, page := range pages {
		bounds := page.Canvas.Bounds()
		w, h := float64(bounds.Dx()), float64(bounds.Dy())

		pdf.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})

		name := fmt.Sprintf("page_%03d", i+1)
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(encoded[i]))
		pdf.ImageOptions(name, 0, 0, w, h, false, opts, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return "", domain.WrapError(domain.KindInternal, err, "PDFの生成に失敗")
	}

	outputPath := path.Join(baseDir, "comic.pdf")
	if err := e.writer.Write(ctx, outputPath, bytes.NewReader(buf.Bytes()), "application/pdf"); err != nil {
		return "", domain.WrapError(domain.KindInternal, err, "PDFの保存に失敗")
	}
	return outputPath, nil
}

// exportPNG はページごとの連番PNGを書き出し、ディレクトリを成果物として返します。
func (e *Exporter) exportPNG(ctx context.Context, baseDir string, encoded [][]byte) (string, error) {
	pagesDir := path.Join(baseDir, "pages")
	for i, data := range encoded {
		pagePath := path.Join(pagesDir, fmt.Sprintf("page_%03d.png", i+1))
		if err := e.writer.Write(ctx, pagePath, bytes.NewReader(data), "image/png"); err != nil {
			return "", domain.WrapError(domain.KindInternal, err, "ページ %d の保存に失敗", i+1)
		}
	}
	return pagesDir, nil
}

// exportCBZ は連番PNGを格納したZIPアーカイブを書き出します。
func (e *Exporter) exportCBZ(ctx context.Context, baseDir string, encoded [][]byte) (string, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i, data := range encoded {
		entry, err := zw.Create(fmt.Sprintf("page_%03d.png", i+1))
		if err != nil {
			return "", domain.WrapError(domain.KindInternal, err, "CBZエントリの作成に失敗")
		}
		if _, err := entry.Write(data); err != nil {
			return "", domain.WrapError(domain.KindInternal, err, "CBZエントリの書き込みに失敗")
		}
	}
	if err := zw.Close(); err != nil {
		return "", domain.WrapError(domain.KindInternal, err, "CBZアーカイブの確定に失敗")
	}

	outputPath := path.Join(baseDir, "comic.cbz")
	if err := e.writer.Write(ctx, outputPath, bytes.NewReader(buf.Bytes()), "application/vnd.comicbook+zip"); err != nil {
		return "", domain.WrapError(domain.KindInternal, err, "CBZの保存に失敗")
	}
	return outputPath, nil
}
