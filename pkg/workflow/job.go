package workflow

import (
	"sync"
	"time"

	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/pipeline"
)

// jobRecord は共有ジョブレコードです。Executor からの更新とステータス照会が
// 同じロックを奪い合いますが、更新は短命で照会側をブロックしません。
// pipeline.Tracker を実装します。
type jobRecord struct {
	mu        sync.Mutex
	job       domain.Job
	cancelled bool
	clock     func() time.Time
}

func newJobRecord(id, sessionID string, clock func() time.Time) *jobRecord {
	now := clock()
	return &jobRecord{
		job: domain.Job{
			ID:        id,
			SessionID: sessionID,
			Status:    domain.StatusQueued,
			CreatedAt: now,
			UpdatedAt: now,
		},
		clock: clock,
	}
}

// Snapshot は照会用の複製を返します。決してブロックしません。
func (r *jobRecord) Snapshot() domain.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.job.Clone()
}

// Checkpoint はステージ境界の固定進捗値を反映します。進捗は単調非減少です。
func (r *jobRecord) Checkpoint(stage pipeline.Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cp := stage.Checkpoint(); cp > r.job.Progress {
		r.job.Progress = cp
	}
	r.job.StageLabel = stage.Label()
	r.job.UpdatedAt = r.clock()
}

// Progress はステージ内の表示ラベルだけを更新します。
func (r *jobRecord) Progress(label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.job.StageLabel = label
	r.job.UpdatedAt = r.clock()
}

// CostSoFar は記帳済みコストの累計を反映します。
func (r *jobRecord) CostSoFar(total float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.job.CostSoFar = total
}

// CancelRequested はキャンセル要求の有無を返します。
func (r *jobRecord) CancelRequested() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled
}

// requestCancel はジョブを即座に終端へ移します。実行機は次の安全な
// チェックポイントで停止します。終端済みなら何もしません。
func (r *jobRecord) requestCancel(detail *domain.ErrorDetail) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = true
	if r.job.Status.Terminal() {
		return false
	}
	r.job.Status = domain.StatusCancelled
	r.job.Error = detail
	r.job.UpdatedAt = r.clock()
	return true
}

// markRunning は実行開始を記録します。
func (r *jobRecord) markRunning() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.job.Status == domain.StatusQueued {
		r.job.Status = domain.StatusRunning
		r.job.UpdatedAt = r.clock()
	}
}

// finalize は実行結果を反映します。既に終端（キャンセル済みなど）なら
// 上書きしません。終端状態は一度だけ決まります。
func (r *jobRecord) finalize(status domain.JobStatus, update func(*domain.Job)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.job.Status.Terminal() {
		return
	}
	r.job.Status = status
	if update != nil {
		update(&r.job)
	}
	r.job.UpdatedAt = r.clock()
}
