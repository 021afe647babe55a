package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	// initialBackoff は接続再試行の初回待ち時間。
	initialBackoff = 500 * time.Millisecond
	// maxBackoff は接続再試行の最大待ち時間。
	maxBackoff = 8 * time.Second
)

// Pinger は疎通確認ができる接続。*sql.DBが満たす。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// CalculateBackoff は連続失敗回数に基づいて指数バックオフの待ち時間を計算する。
// 初回500ms、2倍ずつ増加、最大8秒。
func CalculateBackoff(consecutiveErrors int) time.Duration {
	delay := initialBackoff
	for i := 0; i < consecutiveErrors; i++ {
		delay *= 2
		if delay > maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// PingWithRetry は疎通できるまで最大attempts回PingContextを試す。
// コンテナの同時起動でDBの準備が遅れるケースを吸収する。
func PingWithRetry(ctx context.Context, db Pinger, attempts int) error {
	return pingWithRetry(ctx, db, attempts, CalculateBackoff)
}

func pingWithRetry(ctx context.Context, db Pinger, attempts int, backoff func(int) time.Duration) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}

		delay := backoff(i)
		slog.Warn("database not reachable, retrying",
			slog.Int("attempt", i+1),
			slog.Duration("retry_in", delay),
			slog.String("error", err.Error()),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("database ping cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}
	return fmt.Errorf("database not reachable after %d attempts: %w", attempts, err)
}
