package service

import (
	"context"
	"fmt"

	"asclepius-triage/internal/models"
	"asclepius-triage/internal/notifier"
	"asclepius-triage/internal/repository"

	"go.uber.org/zap"
)

// ReviewerService 审阅人侧服务层
// 可用状态切换、通知列表查询、已读/回复、按需重发——
// 全部是同步请求/响应逻辑，不触碰流水线状态机
type ReviewerService struct {
	reviewers   *repository.ReviewersRepository
	deliveries  *repository.DeliveriesRepository
	submissions *repository.SubmissionsRepository
	dispatcher  *notifier.Dispatcher
	logger      *zap.Logger
}

// NewReviewerService 创建审阅人服务
func NewReviewerService(
	reviewers *repository.ReviewersRepository,
	deliveries *repository.DeliveriesRepository,
	submissions *repository.SubmissionsRepository,
	dispatcher *notifier.Dispatcher,
	logger *zap.Logger,
) *ReviewerService {
	return &ReviewerService{
		reviewers:   reviewers,
		deliveries:  deliveries,
		submissions: submissions,
		dispatcher:  dispatcher,
		logger:      logger,
	}
}

// ListAvailable 查询当前可用的审阅人
func (s *ReviewerService) ListAvailable(ctx context.Context) ([]*models.Reviewer, error) {
	return s.reviewers.ListAvailable(ctx)
}

// SetAvailability 切换审阅人可用状态
func (s *ReviewerService) SetAvailability(ctx context.Context, reviewerID string, available bool) error {
	if reviewerID == "" {
		return fmt.Errorf("reviewer_id is required")
	}
	return s.reviewers.SetAvailability(ctx, reviewerID, available)
}

// ListDeliveries 查询审阅人的通知列表
// sort 支持 newest / oldest / priority（分诊排序）
func (s *ReviewerService) ListDeliveries(ctx context.Context, reviewerID string, sort repository.DeliverySort) ([]*models.DeliveryDetail, error) {
	if reviewerID == "" {
		return nil, fmt.Errorf("reviewer_id is required")
	}
	return s.deliveries.ListByReviewer(ctx, reviewerID, sort)
}

// MarkRead 标记通知已读
func (s *ReviewerService) MarkRead(ctx context.Context, deliveryID, reviewerID string) error {
	if deliveryID == "" {
		return fmt.Errorf("delivery_id is required")
	}
	if reviewerID == "" {
		return fmt.Errorf("reviewer_id is required")
	}
	return s.deliveries.MarkRead(ctx, deliveryID, reviewerID)
}

// Respond 记录审阅人对某条提交的回复
func (s *ReviewerService) Respond(ctx context.Context, submissionID, reviewerID, response string) error {
	if submissionID == "" {
		return fmt.Errorf("submission_id is required")
	}
	if reviewerID == "" {
		return fmt.Errorf("reviewer_id is required")
	}
	if response == "" {
		return fmt.Errorf("response is required")
	}
	return s.deliveries.SetResponse(ctx, submissionID, reviewerID, response)
}

// Resend 按需通过指定渠道重发一条通知
// 发送结果只影响投递记录的 delivered 标记，提交状态保持不变
func (s *ReviewerService) Resend(ctx context.Context, submissionID, reviewerID string, channel models.Channel) error {
	if submissionID == "" {
		return fmt.Errorf("submission_id is required")
	}
	if reviewerID == "" {
		return fmt.Errorf("reviewer_id is required")
	}

	submission, err := s.submissions.GetSubmission(ctx, submissionID)
	if err != nil {
		return err
	}
	reviewer, err := s.reviewers.GetReviewer(ctx, reviewerID)
	if err != nil {
		return err
	}

	if err := s.dispatcher.Dispatch(ctx, submission, reviewer, channel); err != nil {
		s.logger.Error("Failed to dispatch notification",
			zap.String("submission_id", submissionID),
			zap.String("reviewer_id", reviewerID),
			zap.Error(err),
		)
		return err
	}

	return nil
}
