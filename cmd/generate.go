package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/shouni/go-comic-kit/internal/builder"
	"github.com/shouni/go-comic-kit/internal/config"
	"github.com/shouni/go-comic-kit/pkg/domain"

	"github.com/spf13/cobra"
)

// generateCmd は、物語テキストからコミック一式を生成するのだ。
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "物語テキストを解析してコミックを生成するのだ。",
	Long: `物語テキストを章とページに分解し、キャラクターシートとパネル画像を生成して
1冊のコミック（PDF / PNG / CBZ）として書き出すのだ。
実行中は進捗と推定コストを定期的に表示するのだよ。`,
	Example: "  ap-comic-go generate -f story.txt -s \"watercolor\" --format pdf",
	RunE:    generateCommand,
}

func init() {
}

func generateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// 1. 必須チェック
	if opts.StoryFile == "" && !isStdin() {
		return fmt.Errorf("物語テキスト（--story-file）を指定してほしいのだ")
	}

	storyText, err := readStory(opts.StoryFile)
	if err != nil {
		return fmt.Errorf("物語テキストの読み込みに失敗したのだ: %w", err)
	}

	selector, err := domain.ParseChapterSelector(opts.Chapters)
	if err != nil {
		return err
	}
	format, err := domain.ParseOutputFormat(opts.Format)
	if err != nil {
		return err
	}

	// 2. 環境変数等から基本設定をロードするのだ
	cfg := config.LoadConfig()
	cfg.GeminiModel = opts.AIModel
	cfg.GeminiImageModel = opts.ImageModel
	cfg.Options = opts

	app, err := builder.NewApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("アプリケーションの初期化に失敗したのだ: %w", err)
	}
	defer app.Close()

	// 3. APIキーを預けてセッションを開くのだ。キーはメモリ上にしか置かれないのだ。
	sessionID, ttl, err := app.Vault.Register(domain.Credentials{"gemini": cfg.GeminiAPIKey})
	if err != nil {
		return err
	}
	defer app.Vault.Revoke(sessionID)

	slog.Info("コミック生成パイプラインを起動するのだ！",
		"text_model", cfg.GeminiModel,
		"image_model", cfg.GeminiImageModel,
		"chapters", selector.String(),
		"format", format,
		"session_ttl", ttl)

	jobID, err := app.Manager.Submit(sessionID, domain.GenerateRequest{
		StoryText: storyText,
		StyleHint: opts.StyleHint,
		Chapters:  selector,
		Format:    format,
	})
	if err != nil {
		return fmt.Errorf("ジョブの投入に失敗したのだ: %w", err)
	}

	return waitForJob(ctx, app, jobID, opts.PollInterval)
}

// waitForJob はジョブが終端状態に達するまで進捗を表示しながら待つのだ。
// Ctrl-C はジョブのキャンセル要求に変換され、次のステージ境界で停止するのだ。
func waitForJob(ctx context.Context, app *builder.App, jobID string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// キャンセル要求は一度だけ送り、以後は終端状態になるまで照会を続けるのだ。
	done := ctx.Done()
	for {
		select {
		case <-done:
			slog.Warn("中断要求を受け取ったのだ。ジョブをキャンセルするのだ", "job_id", jobID)
			if err := app.Manager.Cancel(jobID); err != nil && !errors.Is(err, domain.ErrJobNotFound) {
				return err
			}
			done = nil
		case <-ticker.C:
		}

		job, err := app.Manager.Status(jobID)
		if err != nil {
			return err
		}

		if !job.Status.Terminal() {
			slog.Info("生成中なのだ...",
				"stage", job.StageLabel,
				"progress", job.Progress,
				"cost_usd", fmt.Sprintf("%.3f", job.CostSoFar))
			continue
		}

		return reportResult(job)
	}
}

// reportResult は終端状態のジョブを表示し、失敗時はエラーとして返すのだ。
func reportResult(job domain.Job) error {
	switch job.Status {
	case domain.StatusCompleted:
		if job.Partial {
			slog.Warn("一部のパネルはプレースホルダのまま完成したのだ", "job_id", job.ID)
		}
		slog.Info("すべての生成工程が完了したのだ！",
			"path", job.Artifact.Path,
			"pages", job.Artifact.PageCount,
			"cost_usd", fmt.Sprintf("%.3f", job.CostSoFar))
		return nil
	case domain.StatusCancelled:
		if job.Error != nil {
			slog.Warn("ジョブは停止したのだ", "reason", job.Error.Message)
		} else {
			slog.Warn("ジョブはキャンセルされたのだ", "job_id", job.ID)
		}
		return nil
	default:
		if job.Error != nil {
			return fmt.Errorf("生成に失敗したのだ（%s）: %s", job.Error.Kind, job.Error.Message)
		}
		return fmt.Errorf("生成に失敗したのだ: job=%s", job.ID)
	}
}

// readStory は物語テキストをファイルまたは標準入力から読み込むのだ。
func readStory(path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func isStdin() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}
