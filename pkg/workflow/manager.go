// Package workflow はジョブ管理のファサードです。ジョブの受付・状態照会・
// 成果物参照・キャンセルを提供し、実行本体は pipeline.Executor へ委譲します。
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/pipeline"
)

// Runner はジョブ実行本体の契約です。pipeline.Executor がこれを満たします。
type Runner interface {
	Run(ctx context.Context, req pipeline.Request, tracker pipeline.Tracker) (pipeline.Result, error)
}

// Manager はジョブのライフサイクルを管理します。
// セッションあたり同時に1ジョブのみを許可します。
type Manager struct {
	sessions pipeline.SessionResolver
	runner   Runner

	mu              sync.Mutex
	jobs            map[string]*jobRecord
	activeBySession map[string]string

	retention time.Duration
	clock     func() time.Time
	stop      chan struct{}
	stopOnce  sync.Once
}

// NewManager は Manager を初期化し、保持期限を過ぎた終端ジョブを
// 掃除するジャニターを起動します。
func NewManager(sessions pipeline.SessionResolver, runner Runner, retention, sweepInterval time.Duration) *Manager {
	m := &Manager{
		sessions:        sessions,
		runner:          runner,
		jobs:            make(map[string]*jobRecord),
		activeBySession: make(map[string]string),
		retention:       retention,
		clock:           time.Now,
		stop:            make(chan struct{}),
	}
	go m.janitor(sweepInterval)
	return m
}

// Close はジャニターを停止します。実行中のジョブには影響しません。
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// Submit は生成依頼を受け付け、ジョブIDを返します。実行は非同期で始まり、
// この呼び出しは即座に戻ります。
func (m *Manager) Submit(sessionID string, req domain.GenerateRequest) (string, error) {
	if _, err := m.sessions.Resolve(sessionID); err != nil {
		return "", err
	}
	if strings.TrimSpace(req.StoryText) == "" {
		return "", domain.NewError(domain.KindInput, "物語テキストが空です")
	}

	m.mu.Lock()
	if activeID, ok := m.activeBySession[sessionID]; ok {
		m.mu.Unlock()
		slog.Warn("同一セッションの多重投入を拒否しました",
			"session_id", sessionID, "active_job_id", activeID)
		return "", domain.ErrJobAlreadyRunning
	}

	jobID := uuid.NewString()
	record := newJobRecord(jobID, sessionID, m.clock)
	m.jobs[jobID] = record
	m.activeBySession[sessionID] = jobID
	m.mu.Unlock()

	slog.Info("ジョブを受け付けました", "job_id", jobID, "session_id", sessionID, "format", req.Format)
	go m.run(record, req)

	return jobID, nil
}

// Status はジョブのスナップショットを返します。決してブロックしません。
func (m *Manager) Status(jobID string) (domain.Job, error) {
	record, err := m.record(jobID)
	if err != nil {
		return domain.Job{}, err
	}
	return record.Snapshot(), nil
}

// Artifact は完成済み成果物への参照を返します。
func (m *Manager) Artifact(jobID string) (domain.Artifact, error) {
	record, err := m.record(jobID)
	if err != nil {
		return domain.Artifact{}, err
	}

	snapshot := record.Snapshot()
	if snapshot.Artifact == nil {
		return domain.Artifact{}, domain.ErrArtifactNotReady
	}
	return *snapshot.Artifact, nil
}

// Cancel はベストエフォートのキャンセルです。実行機は次の安全な
// チェックポイント（ステージ境界）で停止します。セッションのアクティブ
// ジョブ枠は実行ゴルーチンの終端処理でのみ解放されるため、実行機が
// 停止するまで同一セッションの次ジョブは受け付けません。
func (m *Manager) Cancel(jobID string) error {
	record, err := m.record(jobID)
	if err != nil {
		return err
	}

	if record.requestCancel(nil) {
		slog.Info("ジョブのキャンセルを要求しました", "job_id", jobID)
	}
	return nil
}

// ActiveJobs は終端に達していないジョブ数を返します（デバッグ用）。
func (m *Manager) ActiveJobs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.activeBySession)
}

func (m *Manager) record(jobID string) (*jobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return record, nil
}

// run はジョブ1件の実行ゴルーチンです。
func (m *Manager) run(record *jobRecord, req domain.GenerateRequest) {
	snapshot := record.Snapshot()
	record.markRunning()

	result, err := m.runner.Run(context.Background(), pipeline.Request{
		JobID:     snapshot.ID,
		SessionID: snapshot.SessionID,
		StoryText: req.StoryText,
		StyleHint: req.StyleHint,
		Chapters:  req.Chapters,
		Format:    req.Format,
	}, record)

	switch {
	case err == nil:
		record.finalize(domain.StatusCompleted, func(j *domain.Job) {
			artifact := result.Artifact
			j.Artifact = &artifact
			j.Partial = result.Partial
			j.CostSoFar = result.TotalCost
		})
		slog.Info("ジョブが完了しました",
			"job_id", snapshot.ID, "partial", result.Partial, "cost", result.TotalCost)

	case isCancellation(err):
		// セッション失効もキャンセル扱いですが、原因は残します。
		record.finalize(domain.StatusCancelled, func(j *domain.Job) {
			if domain.KindOf(err) == domain.KindSessionExpired {
				j.Error = &domain.ErrorDetail{
					Kind:    domain.KindSessionExpired,
					Message: "セッションが失効したためジョブを停止しました",
				}
			}
		})
		slog.Info("ジョブはキャンセルで終了しました", "job_id", snapshot.ID)

	default:
		record.finalize(domain.StatusFailed, func(j *domain.Job) {
			j.Error = errorDetail(err)
		})
		slog.Error("ジョブが失敗しました",
			"job_id", snapshot.ID, "kind", domain.KindOf(err), "error", err)
	}

	m.releaseSession(snapshot)
}

// isCancellation はキャンセル系の終了かどうかを判定します。
// セッション失効は暗黙のキャンセル要求として扱います。
func isCancellation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, pipeline.ErrCancelled) {
		return true
	}
	return domain.KindOf(err) == domain.KindSessionExpired
}

// errorDetail は外部公開用のエラー情報へ変換します。内部スタックは出しません。
func errorDetail(err error) *domain.ErrorDetail {
	detail := &domain.ErrorDetail{
		Kind:    domain.KindOf(err),
		Message: err.Error(),
	}
	var pe *domain.PipelineError
	if errors.As(err, &pe) {
		detail.Message = pe.Message
	}
	return detail
}

// releaseSession はセッションのアクティブジョブ枠を解放します。
func (m *Manager) releaseSession(snapshot domain.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeBySession[snapshot.SessionID] == snapshot.ID {
		delete(m.activeBySession, snapshot.SessionID)
	}
}

// janitor は保持期限を過ぎた終端ジョブを定期的に破棄します。
func (m *Manager) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Manager) sweep() {
	cutoff := m.clock().Add(-m.retention)

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, record := range m.jobs {
		snapshot := record.Snapshot()
		if snapshot.Status.Terminal() && snapshot.UpdatedAt.Before(cutoff) {
			delete(m.jobs, id)
			slog.Debug("保持期限切れのジョブを破棄しました", "job_id", id)
		}
	}
}
