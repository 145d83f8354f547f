// Package cleanup は期限切れロックアウトの定期解除ジョブを提供する。
// ロックアウト判定は読み取り時にlockout_endと現在時刻を比較して行うため、
// このジョブは過去日時のlockout_endをNULLに戻す整理処理であり、判定結果は変えない。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// DefaultInterval はジョブの既定実行間隔。
const DefaultInterval = time.Hour

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// LockoutCleanupJob は期限切れロックアウトの解除ジョブ。
type LockoutCleanupJob struct {
	db     Executor
	logger *slog.Logger
	now    func() time.Time
}

// NewLockoutCleanupJob は新しいLockoutCleanupJobを生成する。
func NewLockoutCleanupJob(db Executor, logger *slog.Logger) *LockoutCleanupJob {
	return &LockoutCleanupJob{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// Run はlockout_endが現在時刻以前のユーザーのlockout_endをNULLにする。
// access_failed_countは変更しない。
// 冪等: 対象がない場合でもエラーにならない。
func (j *LockoutCleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	query := `UPDATE users SET lockout_end = NULL, updated_at = $1 WHERE lockout_end IS NOT NULL AND lockout_end <= $1`
	result, err := j.db.ExecContext(ctx, query, j.now().UTC())
	if err != nil {
		j.logger.Error("lockout cleanup failed",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to clear expired lockouts: %w", err)
	}

	cleared, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	j.logger.Info("lockout cleanup completed",
		slog.Int64("cleared_count", cleared),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}

// Start は起動直後に1回実行し、以降intervalごとにRunを繰り返す。
// ctxがキャンセルされると戻る。実行エラーはログに記録して継続する。
func (j *LockoutCleanupJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	_ = j.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}

// Go はStartをゴルーチンで起動し、停止関数を返す。
// 停止関数はジョブをキャンセルし、実行中のRunが戻るまで待つ。
// DB接続を閉じる前に呼び出すこと。
func (j *LockoutCleanupJob) Go(ctx context.Context, interval time.Duration) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		j.Start(ctx, interval)
	}()
	return func() {
		cancel()
		<-done
	}
}
