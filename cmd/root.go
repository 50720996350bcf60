package cmd

import (
	"fmt"
	"os"

	"github.com/shouni/go-comic-kit/internal/config"

	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"
)

var opts config.GenerateOptions

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	// --- ソース入力関連 ---
	rootCmd.PersistentFlags().StringVarP(&opts.StoryFile, "story-file", "f", "", "物語テキストのパス（'-'で標準入力なのだ）。")

	// --- 生成結果の出力設定 ---
	rootCmd.PersistentFlags().StringVarP(&opts.OutputDir, "output-dir", "o", config.DefaultOutputDir, "成果物を保存するディレクトリ（ローカル or gs://...）なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.Format, "format", config.DefaultFormat, "成果物の形式（pdf / png / cbz）なのだ。")

	// --- 生成範囲・画風設定 ---
	rootCmd.PersistentFlags().StringVarP(&opts.Chapters, "chapters", "c", "all", "処理する章の範囲（'all'、'N'、'N-M'）なのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.StyleHint, "style", "s", "", "画風のヒント（例: watercolor, film noir）なのだ。")

	// --- AIモデル・挙動設定 ---
	rootCmd.PersistentFlags().StringVar(&opts.AIModel, "model", config.DefaultModel, "使用する Gemini モデル名なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.ImageModel, "image-model", config.DefaultImageModel, "使用する画像生成モデル名なのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.HTTPTimeout, "http-timeout", config.DefaultHTTPTimeout, "Webリクエストのタイムアウトなのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.PollInterval, "poll-interval", config.DefaultPollInterval, "ジョブ状態を照会する間隔なのだ。")
}

// preRunAppE は、コマンド実行前に環境変数などの必須チェックを行うのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	// Gemini APIを利用するため、APIキーの存在チェックは欠かせないのだ！
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("エラー: 環境変数 GEMINI_API_KEY が設定されていません。Gemini APIの利用には必須なのだ")
	}

	return nil
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	clibase.Execute(
		"ap-comic-go",
		addAppFlags,
		preRunAppE,
		generateCmd,
	)
}
