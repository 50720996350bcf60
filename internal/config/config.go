package config

import (
	"time"

	"github.com/shouni/go-utils/envutil"
)

// デフォルト値の定義なのだ
const (
	DefaultModel       = "gemini-3-flash-preview"
	DefaultImageModel  = "gemini-3-pro-image-preview"
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultSessionTTL はセッション（認証情報カストディ）の有効期間です。
	DefaultSessionTTL = 2 * time.Hour
	// DefaultSweepInterval は期限切れセッションの掃除間隔です。
	DefaultSweepInterval = 10 * time.Minute
	// DefaultJobRetention は終端状態に達したジョブの保持期間です。
	DefaultJobRetention = 2 * time.Hour

	// DefaultRenderWorkers はパネル生成ファンアウトのワーカー数上限です。
	// 無制限の並列ではなく固定幅で、生成サービスのレート制限を尊重します。
	DefaultRenderWorkers = 3
	// DefaultRateInterval は画像生成リクエストの最小間隔です。
	DefaultRateInterval = 10 * time.Second
	// DefaultMaxRetries は一時的障害に対するリトライ回数の上限です。
	DefaultMaxRetries = 2
	// DefaultRetryBackoff はリトライの固定待機時間です。
	DefaultRetryBackoff = 2 * time.Second

	// ページジオメトリ（ピクセル単位）なのだ。
	DefaultPageWidth     = 1200
	DefaultPageHeight    = 1600
	DefaultGutterWidth   = 10
	DefaultPageMargin    = 20
	DefaultMaxFlowHeight = 4800 // webtoon 1ページの累積高さ上限

	DefaultOutputDir = "output/comics"
	DefaultFormat    = "pdf"

	// DefaultMaxChapters は解析時に提案させる章数の上限です。
	DefaultMaxChapters = 50

	// コスト見積りに使う画像生成のサイズと品質です。
	DefaultImageSize    = "1024x1024"
	DefaultImageQuality = "standard"

	// DefaultPollInterval は CLI がジョブ状態を照会する間隔です。
	DefaultPollInterval = 5 * time.Second

	DefaultStyleSuffix = "clean line art, high-quality comic coloring, expressive characters, cinematic lighting, high resolution"
)

// Config はアプリケーション全体の環境設定（APIキーやモデル設定）を保持する構造体なのだ。
type Config struct {
	GeminiAPIKey     string
	GeminiModel      string
	GeminiImageModel string
	StyleSuffix      string

	SessionTTL    time.Duration
	SweepInterval time.Duration
	JobRetention  time.Duration

	RenderWorkers int
	RateInterval  time.Duration
	MaxRetries    int
	RetryBackoff  time.Duration

	MaxChapters  int
	ImageSize    string
	ImageQuality string

	PageWidth     int
	PageHeight    int
	GutterWidth   int
	PageMargin    int
	MaxFlowHeight int

	Options GenerateOptions
}

// LoadConfig は環境変数から設定を読み込み、構造体を返すのだ！
func LoadConfig() *Config {
	return &Config{
		GeminiAPIKey:     envutil.GetEnv("GEMINI_API_KEY", ""),
		GeminiModel:      envutil.GetEnv("GEMINI_MODEL", DefaultModel),
		GeminiImageModel: envutil.GetEnv("IMAGE_GEMINI_MODEL", DefaultImageModel),
		StyleSuffix:      envutil.GetEnv("IMAGE_PROMPT_SUFFIX", DefaultStyleSuffix),

		SessionTTL:    DefaultSessionTTL,
		SweepInterval: DefaultSweepInterval,
		JobRetention:  DefaultJobRetention,

		RenderWorkers: DefaultRenderWorkers,
		RateInterval:  DefaultRateInterval,
		MaxRetries:    DefaultMaxRetries,
		RetryBackoff:  DefaultRetryBackoff,

		MaxChapters:  DefaultMaxChapters,
		ImageSize:    DefaultImageSize,
		ImageQuality: DefaultImageQuality,

		PageWidth:     DefaultPageWidth,
		PageHeight:    DefaultPageHeight,
		GutterWidth:   DefaultGutterWidth,
		PageMargin:    DefaultPageMargin,
		MaxFlowHeight: DefaultMaxFlowHeight,
	}
}

// GenerateOptions は CLI フラグから渡される実行時のパラメータなのだ。
type GenerateOptions struct {
	StoryFile  string // --story-file
	OutputDir  string // --output-dir
	StyleHint  string // --style
	Chapters   string // --chapters: "all", "N", "N-M"
	Format     string // --format: pdf, png, cbz
	AIModel    string // --model
	ImageModel string // --image-model

	PollInterval time.Duration // --poll-interval
	HTTPTimeout  time.Duration // --http-timeout
}
