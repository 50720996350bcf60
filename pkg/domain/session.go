package domain

import (
	"strings"
	"time"
)

// Credentials は呼び出し側から預かる不透明なAPI認証情報の集合です。
// プロバイダ名をキーとし、値は生のAPIキーです。プロセスメモリ以外には
// 決して書き出しません。
type Credentials map[string]string

// 認証情報の形式検証に使うプロバイダ別プレフィックスです。
// 登録時は形式のみ検証し、リモートサービスへの照会は初回利用まで行いません。
var credentialPrefixes = map[string]string{
	"openai":    "sk-",
	"anthropic": "sk-ant-",
	"gemini":    "AI",
}

// Validate は認証情報の構文的な形を検証します。
// 既知プロバイダのキーがプレフィックス規則に反する場合のみエラーです。
func (c Credentials) Validate() error {
	if len(c) == 0 {
		return NewError(KindInput, "認証情報が空です")
	}
	for provider, key := range c {
		if strings.TrimSpace(key) == "" {
			return NewError(KindInput, "プロバイダ '%s' のキーが空です", provider)
		}
		if prefix, ok := credentialPrefixes[provider]; ok && !strings.HasPrefix(key, prefix) {
			return NewError(KindInput, "プロバイダ '%s' のキー形式が不正です", provider)
		}
	}
	return nil
}

// Session は時限付きの認証情報カストディです。期限を過ぎたキーは
// 回復不能であり、依存中のジョブは次のチェックポイントで停止します。
type Session struct {
	ID          string
	Credentials Credentials
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// Expired は壁時計に対する遅延判定です。
func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
