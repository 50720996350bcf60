package domain

import "time"

// JobStatus はジョブのライフサイクルを表します。
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Terminal は終端状態かどうかを返します。終端に達したジョブは二度と遷移しません。
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// OutputFormat は最終成果物のコンテナ形式です。
type OutputFormat string

const (
	FormatPDF OutputFormat = "pdf"
	FormatPNG OutputFormat = "png"
	FormatCBZ OutputFormat = "cbz"
)

// ParseOutputFormat は文字列を検証付きで OutputFormat に変換します。
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case FormatPDF, FormatPNG, FormatCBZ:
		return OutputFormat(s), nil
	case "":
		return FormatPDF, nil
	}
	return "", NewError(KindInput, "未対応の出力形式です: '%s'", s)
}

// GenerateRequest は1件の生成依頼です。
type GenerateRequest struct {
	StoryText string
	StyleHint string
	Chapters  ChapterSelector
	Format    OutputFormat
}

// ErrorDetail はジョブに添付する外部公開用のエラー情報です。
// 内部のスタック情報は含めません。
type ErrorDetail struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Artifact は生成済み成果物への参照です。
type Artifact struct {
	Path      string       `json:"path"`
	Format    OutputFormat `json:"format"`
	PageCount int          `json:"page_count"`
}

// Job は1件の物語→コミック生成リクエストの可変状態です。
// 進捗はステージ境界ごとの固定チェックポイント値で、単調非減少です。
type Job struct {
	ID         string
	SessionID  string
	Status     JobStatus
	Progress   int
	StageLabel string
	Partial    bool
	Artifact   *Artifact
	Error      *ErrorDetail
	CostSoFar  float64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Clone はステータス照会用のスナップショットを返します。
// 呼び出し側の変更が共有レコードへ波及しないように複製します。
func (j Job) Clone() Job {
	c := j
	if j.Artifact != nil {
		a := *j.Artifact
		c.Artifact = &a
	}
	if j.Error != nil {
		e := *j.Error
		c.Error = &e
	}
	return c
}
