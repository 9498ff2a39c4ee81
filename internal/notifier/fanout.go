package notifier

import (
	"context"
	"fmt"

	"asclepius-triage/internal/models"
	"asclepius-triage/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReviewerLister 审阅人枚举能力
type ReviewerLister interface {
	ListAvailable(ctx context.Context) ([]*models.Reviewer, error)
}

// DeliveryCreator 投递记录创建能力
type DeliveryCreator interface {
	CreateDelivery(ctx context.Context, d *models.Delivery) error
}

// StatusAdvancer 提交状态推进能力
type StatusAdvancer interface {
	UpdateStatus(ctx context.Context, id string, from, to models.Status) error
}

// FanOut 通知分发器
// 对一条完成评估的提交，给每个 available 的审阅人创建一条 channel=both 的
// 投递记录，然后把提交状态从 completed 推进到 notified。
// 不做专科匹配：所有可用审阅人都会收到每条完成的提交
type FanOut struct {
	reviewers  ReviewerLister
	deliveries DeliveryCreator
	status     StatusAdvancer
	logger     *zap.Logger
}

// NewFanOut 创建通知分发器
func NewFanOut(reviewers ReviewerLister, deliveries DeliveryCreator, status StatusAdvancer, logger *zap.Logger) *FanOut {
	return &FanOut{
		reviewers:  reviewers,
		deliveries: deliveries,
		status:     status,
		logger:     logger,
	}
}

// Notify 执行一次分发
// 返回创建的投递记录数。任何一步失败都返回错误；
// 调用方（编排器）收到错误只记录，不回滚提交状态——
// 已完成的临床评估不因投递层故障而丢弃
func (f *FanOut) Notify(ctx context.Context, submissionID, summary string) (int, error) {
	if submissionID == "" {
		return 0, fmt.Errorf("submission_id is required")
	}

	reviewers, err := f.reviewers.ListAvailable(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list available reviewers: %w", err)
	}

	created := 0
	for _, reviewer := range reviewers {
		delivery := &models.Delivery{
			ID:           uuid.New().String(),
			SubmissionID: submissionID,
			ReviewerID:   reviewer.ID,
			Channel:      models.ChannelBoth,
		}
		if err := f.deliveries.CreateDelivery(ctx, delivery); err != nil {
			return created, fmt.Errorf("failed to create delivery for reviewer %s: %w", reviewer.ID, err)
		}
		created++
	}

	if err := f.status.UpdateStatus(ctx, submissionID, models.StatusCompleted, models.StatusNotified); err != nil {
		return created, fmt.Errorf("failed to advance submission to notified: %w", err)
	}

	f.logger.Info("Fan-out completed",
		zap.String("submission_id", submissionID),
		zap.Int("deliveries_created", created),
	)

	return created, nil
}

// 编译期断言：postgres 仓库满足分发器依赖的能力
var (
	_ ReviewerLister  = (*repository.ReviewersRepository)(nil)
	_ DeliveryCreator = (*repository.DeliveriesRepository)(nil)
	_ StatusAdvancer  = (*repository.SubmissionsRepository)(nil)
)
