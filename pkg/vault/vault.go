// Package vault は呼び出し側から預かったAPI認証情報をメモリ上でのみ
// 保管します。期限切れの判定は Resolve ごとの壁時計比較で行い、レコードの
// 破棄は猶予期間後の go-cache の定期掃除に任せます。プロセス再起動で
// 全セッションが無効になります。
package vault

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

// Vault は時限付きセッションのストアです。登録後のセッションは読み取り専用で、
// 複数ジョブからの並行 Resolve は安全です。
type Vault struct {
	store *cache.Cache
	ttl   time.Duration
	clock func() time.Time
}

// expiryGrace は失効後もレコードを保持する猶予です。失効直後の Resolve が
// 「見つからない」ではなく「失効した」と応答できるようにするためで、
// 猶予を過ぎたレコードは go-cache の掃除で破棄されます。
const expiryGrace = 1 * time.Hour

// New は指定されたTTLと掃除間隔で Vault を初期化します。
func New(ttl, sweepInterval time.Duration) *Vault {
	return &Vault{
		store: cache.New(ttl+expiryGrace, sweepInterval),
		ttl:   ttl,
		clock: time.Now,
	}
}

// Register は認証情報の形式を検証し、セッションIDと有効期間を返します。
// リモートサービスへの照合は行いません。検証は初回利用時に暗黙に行われます。
func (v *Vault) Register(creds domain.Credentials) (string, time.Duration, error) {
	if err := creds.Validate(); err != nil {
		return "", 0, err
	}

	now := v.clock()
	session := domain.Session{
		ID:          uuid.NewString(),
		Credentials: creds,
		CreatedAt:   now,
		ExpiresAt:   now.Add(v.ttl),
	}
	// ストア側のTTLはセッション期限より長めに取ります。期限の判定は
	// Resolve 時の壁時計比較が正であり、ストアは猶予後の後片付け役です。
	v.store.Set(session.ID, session, v.ttl+expiryGrace)

	slog.Info("セッションを登録しました", "session_id", session.ID, "expires_in", v.ttl)
	return session.ID, v.ttl, nil
}

// Resolve はセッションを取り出します。期限はセッション自身の締切に対する
// 壁時計比較で判定し、期限切れは ErrSessionExpired、未登録（または猶予を
// 過ぎて掃除済み）は ErrSessionNotFound です。
func (v *Vault) Resolve(sessionID string) (domain.Session, error) {
	val, found := v.store.Get(sessionID)
	if !found {
		return domain.Session{}, domain.ErrSessionNotFound
	}

	session, ok := val.(domain.Session)
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}

	if session.Expired(v.clock()) {
		v.store.Delete(sessionID)
		return domain.Session{}, domain.ErrSessionExpired
	}

	return session, nil
}

// Revoke はセッションと保管中のキーを即座に破棄します。
func (v *Vault) Revoke(sessionID string) {
	v.store.Delete(sessionID)
	slog.Info("セッションを破棄しました", "session_id", sessionID)
}

// ActiveCount は現在保持しているセッション数を返します（デバッグ用）。
func (v *Vault) ActiveCount() int {
	return v.store.ItemCount()
}
