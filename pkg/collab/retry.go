package collab

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shouni/go-comic-kit/pkg/domain"
)

// Retry は一時的障害に限って固定間隔の再試行を行います。
// それ以外の分類は即座に恒久的失敗として返します。
func Retry(ctx context.Context, maxRetries int, interval time.Duration, op func() error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), uint64(maxRetries)),
		ctx,
	)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if !domain.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		slog.Warn("一時的障害のため再試行します",
			"attempt", attempt, "max_retries", maxRetries, "error", err)
		return err
	}, policy)
}
