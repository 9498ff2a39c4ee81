package pipeline

import (
	"context"
	"fmt"
	"sync"

	"asclepius-triage/internal/analyzer"
	"asclepius-triage/internal/models"
	"asclepius-triage/internal/notifier"
	"asclepius-triage/internal/repository"
	"asclepius-triage/internal/store"
	"asclepius-triage/internal/transcriber"

	"go.uber.org/zap"
)

// Transcriber 语音转写能力（失败即硬失败）
type Transcriber interface {
	Transcribe(ctx context.Context, artifactRef string) (string, error)
}

// Analyzer 风险分析能力（永不失败，最差返回降级评估）
type Analyzer interface {
	Analyze(ctx context.Context, transcript, contextText string) *models.Assessment
}

// RecordStore 流水线需要的提交记录读写能力
// 编排器不跨调用缓存任何状态：每次运行重新读库，每次迁移先落库再前进
type RecordStore interface {
	GetContextText(ctx context.Context, id string) (string, error)
	UpdateStatus(ctx context.Context, id string, from, to models.Status) error
	UpdateResults(ctx context.Context, id, transcript string, a *models.Assessment) error
	MarkError(ctx context.Context, id string) error
}

// Notifier 通知分发能力
type Notifier interface {
	Notify(ctx context.Context, submissionID, summary string) (int, error)
}

// RunLock 同一提交的互斥运行锁
type RunLock interface {
	Acquire(ctx context.Context, submissionID string) (bool, error)
	Release(ctx context.Context, submissionID string) error
}

// Runner 流水线编排器
// 驱动单条提交走完 转写 → 分析 → 落库 → 通知分发，
// 持有状态机：pending → processing → completed|error，completed → notified
type Runner struct {
	records     RecordStore
	transcriber Transcriber
	analyzer    Analyzer
	notifier    Notifier
	lock        RunLock
	logger      *zap.Logger

	wg sync.WaitGroup
}

// NewRunner 创建流水线编排器
func NewRunner(
	records RecordStore,
	transcriber Transcriber,
	analyzer Analyzer,
	notifier Notifier,
	lock RunLock,
	logger *zap.Logger,
) *Runner {
	return &Runner{
		records:     records,
		transcriber: transcriber,
		analyzer:    analyzer,
		notifier:    notifier,
		lock:        lock,
		logger:      logger,
	}
}

// Trigger 异步触发一次流水线运行（fire-and-forget）
// 调用方立即返回，不阻塞在流水线完成上。
// 同一提交在前一次运行结束前的重复触发会被忽略
func (r *Runner) Trigger(submissionID, artifactRef string) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		// 运行不定义取消/超时语义，使用独立的后台 context
		if err := r.Run(context.Background(), submissionID, artifactRef); err != nil {
			r.logger.Error("Pipeline run failed",
				zap.String("submission_id", submissionID),
				zap.Error(err),
			)
		}
	}()
}

// Wait 等待所有在途流水线运行结束（服务停机用）
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Run 同步执行一次流水线运行
// 严格顺序：加锁 → processing → 读上下文 → 转写 → 分析 → 原子落库 → 分发。
// 转写失败 / 落库失败 → error（终态）；分发失败 → 保持 completed
func (r *Runner) Run(ctx context.Context, submissionID, artifactRef string) error {
	if submissionID == "" {
		return fmt.Errorf("submission_id is required")
	}

	acquired, err := r.lock.Acquire(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !acquired {
		r.logger.Warn("Pipeline already running for submission, ignoring trigger",
			zap.String("submission_id", submissionID),
		)
		return nil
	}
	defer func() {
		if err := r.lock.Release(context.Background(), submissionID); err != nil {
			r.logger.Warn("Failed to release run lock",
				zap.String("submission_id", submissionID),
				zap.Error(err),
			)
		}
	}()

	if err := r.records.UpdateStatus(ctx, submissionID, models.StatusPending, models.StatusProcessing); err != nil {
		return fmt.Errorf("failed to enter processing: %w", err)
	}

	contextText, err := r.records.GetContextText(ctx, submissionID)
	if err != nil {
		r.fail(ctx, submissionID, "failed to read submission context", err)
		return err
	}

	transcript, err := r.transcriber.Transcribe(ctx, artifactRef)
	if err != nil {
		// 无转写文本就无法给出有意义的评估，不做降级
		r.fail(ctx, submissionID, "transcription failed", err)
		return err
	}

	// 分析永不失败：解析不了的响应降级为固定评估
	assessment := r.analyzer.Analyze(ctx, transcript, contextText)
	if assessment.Fallback {
		r.logger.Warn("Analysis fell back to default assessment",
			zap.String("submission_id", submissionID),
		)
	}

	if err := r.records.UpdateResults(ctx, submissionID, transcript, assessment); err != nil {
		// 结果完整性无法保证，置为终态 error
		r.fail(ctx, submissionID, "failed to persist results", err)
		return err
	}

	r.logger.Info("Pipeline completed",
		zap.String("submission_id", submissionID),
		zap.Int("risk_score", assessment.RiskScore),
		zap.String("urgency_level", assessment.UrgencyLevel),
	)

	if _, err := r.notifier.Notify(ctx, submissionID, assessment.Summary); err != nil {
		// 分发失败不回滚：提交保持 completed，缺失的投递记录是唯一症状
		r.logger.Error("Fan-out failed, submission stays completed",
			zap.String("submission_id", submissionID),
			zap.Error(err),
		)
	}

	return nil
}

// fail 将提交置为终态 error（尽力而为：置错失败只记录）
func (r *Runner) fail(ctx context.Context, submissionID, msg string, cause error) {
	r.logger.Error(msg,
		zap.String("submission_id", submissionID),
		zap.Error(cause),
	)
	if err := r.records.MarkError(ctx, submissionID); err != nil {
		r.logger.Error("Failed to mark submission as error",
			zap.String("submission_id", submissionID),
			zap.Error(err),
		)
	}
}

// 编译期断言：具体实现满足编排器依赖的能力
var (
	_ RecordStore = (*repository.SubmissionsRepository)(nil)
	_ Transcriber = (*transcriber.Transcriber)(nil)
	_ Analyzer    = (*analyzer.Analyzer)(nil)
	_ Notifier    = (*notifier.FanOut)(nil)
	_ RunLock     = (*store.RunLock)(nil)
)
