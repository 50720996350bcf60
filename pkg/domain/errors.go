package domain

import (
	"errors"
	"fmt"
)

// ErrorKind はパイプライン全体で共有するエラー分類です。
// ステータス照会の応答には常に最も具体的な分類を載せます。
type ErrorKind string

const (
	// KindInput は呼び出し側の入力不備です。リトライしません。
	KindInput ErrorKind = "input_error"
	// KindSessionExpired は認証情報の保管期限切れです。
	KindSessionExpired ErrorKind = "session_expired"
	// KindTransient はネットワーク断やタイムアウト等の一時的障害です。
	// 回数上限付き・固定間隔でリトライされます。
	KindTransient ErrorKind = "transient_collaborator_error"
	// KindContentRejection は生成サービスがポリシー上の理由で拒否した状態です。
	// リトライしても結果は変わらないため、一切リトライしません。
	KindContentRejection ErrorKind = "content_rejection"
	// KindSchemaViolation は外部サービスが構造的に不正な応答を返した状態です。
	// 壊れた応答の再送を期待できないため、ステージの恒久的失敗として扱います。
	KindSchemaViolation ErrorKind = "schema_violation"
	// KindConsistency はパネルのキャラクター数超過やテンプレート欠落など、
	// パイプライン内部の整合性違反です。発見したステージで失敗します。
	KindConsistency ErrorKind = "consistency_violation"
	// KindInternal は上記いずれにも分類できない内部エラーです。
	KindInternal ErrorKind = "internal_error"
)

// PipelineError は分類付きのエラーです。内部スタックは外部へ出さず、
// Kind と人間向けメッセージのみをジョブレコードへ転記します。
type PipelineError struct {
	Kind    ErrorKind
	Message string
	cause   error
}

// NewError は分類とメッセージから PipelineError を生成します。
func NewError(kind ErrorKind, format string, args ...any) *PipelineError {
	return &PipelineError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError は既存のエラーを分類付きでラップします。
func WrapError(kind ErrorKind, err error, format string, args ...any) *PipelineError {
	return &PipelineError{Kind: kind, Message: fmt.Sprintf(format, args...), cause: err}
}

func (e *PipelineError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *PipelineError) Unwrap() error { return e.cause }

// KindOf はエラーから分類を取り出します。未分類は KindInternal です。
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, ErrSessionExpired) {
		return KindSessionExpired
	}
	return KindInternal
}

// IsRetryable は一時的障害としてリトライ対象かどうかを返します。
func IsRetryable(err error) bool {
	return KindOf(err) == KindTransient
}

// セッションストアの番兵エラーなのだ。
var (
	ErrSessionExpired    = errors.New("セッションの有効期限が切れています")
	ErrSessionNotFound   = errors.New("セッションが見つかりません")
	ErrJobNotFound       = errors.New("ジョブが見つかりません")
	ErrJobAlreadyRunning = errors.New("このセッションには実行中のジョブがあります")
	ErrArtifactNotReady  = errors.New("成果物はまだ生成されていません")
)
