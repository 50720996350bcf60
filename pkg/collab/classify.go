package collab

import (
	"context"
	"errors"
	"strings"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

// contentPolicyMarkers は画像・テキストAPIのコンテンツ拒否を示す断片です。
var contentPolicyMarkers = []string{
	"content policy",
	"content_policy",
	"safety",
	"blocked",
	"prohibited",
}

// transientMarkers は再試行で回復しうる障害を示す断片です。
var transientMarkers = []string{
	"rate limit",
	"429",
	"500",
	"502",
	"503",
	"504",
	"timeout",
	"deadline exceeded",
	"unavailable",
	"overloaded",
	"connection reset",
	"eof",
}

// ClassifyError はコラボレーター呼び出しの失敗をエラー種別へ写像します。
// コンテキスト起因のキャンセルはそのまま伝播させます。
// 判別できない障害は一時障害として扱い、再試行の機会を与えます。
func ClassifyError(stage string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if kind := domain.KindOf(err); kind != domain.KindInternal {
		return err
	}

	msg := strings.ToLower(err.Error())

	for _, marker := range contentPolicyMarkers {
		if strings.Contains(msg, marker) {
			return domain.WrapError(domain.KindContentRejection, err, "%s: コンテンツポリシーにより拒否されました", stage)
		}
	}
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return domain.WrapError(domain.KindTransient, err, "%s: 一時的な障害が発生しました", stage)
		}
	}

	return domain.WrapError(domain.KindTransient, err, "%s: コラボレーター呼び出しに失敗しました", stage)
}
