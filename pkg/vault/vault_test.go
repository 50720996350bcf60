package vault

import (
	"errors"
	"testing"
	"time"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

func testCreds() domain.Credentials {
	return domain.Credentials{
		"openai":    "sk-test-key",
		"anthropic": "sk-ant-test-key",
	}
}

func TestVault_RegisterAndResolve(t *testing.T) {
	v := New(2*time.Hour, 10*time.Minute)

	id, ttl, err := v.Register(testCreds())
	if err != nil {
		t.Fatalf("登録に失敗しました: %v", err)
	}
	if id == "" {
		t.Fatal("セッションIDが空です")
	}
	if ttl != 2*time.Hour {
		t.Errorf("期待したTTL 2h, 実際 %v", ttl)
	}

	session, err := v.Resolve(id)
	if err != nil {
		t.Fatalf("Resolve に失敗しました: %v", err)
	}
	if session.Credentials["openai"] != "sk-test-key" {
		t.Error("保管した認証情報が一致しません")
	}
}

func TestVault_RegisterValidation(t *testing.T) {
	v := New(time.Hour, time.Hour)

	t.Run("空の認証情報は入力エラーになること", func(t *testing.T) {
		if _, _, err := v.Register(domain.Credentials{}); domain.KindOf(err) != domain.KindInput {
			t.Errorf("空の認証情報が弾かれませんでした: %v", err)
		}
	})

	t.Run("プレフィックス規則違反は入力エラーになること", func(t *testing.T) {
		creds := domain.Credentials{"anthropic": "sk-wrong-prefix"}
		if _, _, err := v.Register(creds); domain.KindOf(err) != domain.KindInput {
			t.Errorf("不正なキー形式が弾かれませんでした: %v", err)
		}
	})

	t.Run("未知のプロバイダは形式チェックなしで通ること", func(t *testing.T) {
		creds := domain.Credentials{"custom": "anything-goes"}
		if _, _, err := v.Register(creds); err != nil {
			t.Errorf("未知プロバイダで予期しないエラー: %v", err)
		}
	})
}

func TestVault_ResolveUnknown(t *testing.T) {
	v := New(time.Hour, time.Hour)

	_, err := v.Resolve("no-such-session")
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("期待したエラー ErrSessionNotFound, 実際 %v", err)
	}
}

func TestVault_ExpiredBeforeSweep(t *testing.T) {
	// 実時間でTTLを過ぎた未掃除のセッションが「見つからない」ではなく
	// 「失効した」と応答すること。失効と未登録の区別は呼び出し側の
	// リトライ判断に直結するのだ。
	v := New(30*time.Millisecond, time.Hour)

	id, _, err := v.Register(testCreds())
	if err != nil {
		t.Fatalf("登録に失敗しました: %v", err)
	}

	time.Sleep(80 * time.Millisecond)

	if _, err := v.Resolve(id); !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("期待したエラー ErrSessionExpired, 実際 %v", err)
	}

	// 失効を一度報告したあとはストアからも消えていること
	if _, err := v.Resolve(id); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("期限切れセッションが残留しています: %v", err)
	}
}

func TestVault_LazyExpiry(t *testing.T) {
	// 期限切れ判定は Resolve 時の壁時計比較で行われること。
	// 掃除タイマーに頼らないことを時計の差し替えで検証するのだ。
	v := New(2*time.Hour, time.Hour)

	id, _, err := v.Register(testCreds())
	if err != nil {
		t.Fatalf("登録に失敗しました: %v", err)
	}

	v.clock = func() time.Time { return time.Now().Add(3 * time.Hour) }

	_, err = v.Resolve(id)
	if !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("期待したエラー ErrSessionExpired, 実際 %v", err)
	}

	// 期限切れセッションはストアからも即座に消えること
	v.clock = time.Now
	if _, err := v.Resolve(id); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("期限切れセッションが残留しています: %v", err)
	}
}

func TestVault_Revoke(t *testing.T) {
	v := New(time.Hour, time.Hour)

	id, _, _ := v.Register(testCreds())
	v.Revoke(id)

	if _, err := v.Resolve(id); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("破棄後のセッションが解決できてしまいました: %v", err)
	}
}
