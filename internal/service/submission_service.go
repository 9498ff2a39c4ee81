package service

import (
	"context"
	"fmt"
	"io"
	"regexp"

	"asclepius-triage/internal/models"
	"asclepius-triage/internal/pipeline"
	"asclepius-triage/internal/repository"
	"asclepius-triage/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 允许上传的音频 MIME 类型
var allowedAudioTypes = regexp.MustCompile(`^audio/(mp3|mpeg|wav|m4a|aac|ogg|webm|mp4)$`)

// SubmissionService 提交记录服务层
// 职责：
// 1. 上传入口：校验音频、落盘工件、创建 pending 记录、异步触发流水线
// 2. 查询入口：按 id / 按上报人查询
// 入口请求不阻塞在流水线完成上
type SubmissionService struct {
	submissions *repository.SubmissionsRepository
	artifacts   *store.ArtifactStore
	runner      *pipeline.Runner
	logger      *zap.Logger
}

// NewSubmissionService 创建提交记录服务
func NewSubmissionService(
	submissions *repository.SubmissionsRepository,
	artifacts *store.ArtifactStore,
	runner *pipeline.Runner,
	logger *zap.Logger,
) *SubmissionService {
	return &SubmissionService{
		submissions: submissions,
		artifacts:   artifacts,
		runner:      runner,
		logger:      logger,
	}
}

// Ingest 接收一条现场音频报告
// 成功后立即返回 pending 状态的提交记录，流水线在后台运行
func (s *SubmissionService) Ingest(ctx context.Context, responderID, contextText string, audio io.Reader, filename, mimeType string) (*models.Submission, error) {
	if responderID == "" {
		return nil, fmt.Errorf("responder_id is required")
	}
	if !allowedAudioTypes.MatchString(mimeType) {
		return nil, fmt.Errorf("only audio files are allowed, got %s", mimeType)
	}

	artifactRef, err := s.artifacts.Save(audio, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to store audio artifact: %w", err)
	}

	submission := &models.Submission{
		ID:          uuid.New().String(),
		ResponderID: responderID,
		ContextText: contextText,
		ArtifactRef: artifactRef,
	}

	if err := s.submissions.CreateSubmission(ctx, submission); err != nil {
		// 记录创建失败时清理已落盘的工件
		if rmErr := s.artifacts.Remove(artifactRef); rmErr != nil {
			s.logger.Warn("Failed to clean up orphaned artifact",
				zap.String("artifact_ref", artifactRef),
				zap.Error(rmErr),
			)
		}
		return nil, err
	}

	s.logger.Info("Submission ingested",
		zap.String("submission_id", submission.ID),
		zap.String("responder_id", responderID),
	)

	// fire-and-forget：入口边界不等待流水线
	s.runner.Trigger(submission.ID, artifactRef)

	return submission, nil
}

// GetSubmission 按 id 查询提交记录
func (s *SubmissionService) GetSubmission(ctx context.Context, id string) (*models.Submission, error) {
	if id == "" {
		return nil, fmt.Errorf("id is required")
	}
	return s.submissions.GetSubmission(ctx, id)
}

// ListByResponder 查询某上报人的全部提交记录
func (s *SubmissionService) ListByResponder(ctx context.Context, responderID string) ([]*models.Submission, error) {
	if responderID == "" {
		return nil, fmt.Errorf("responder_id is required")
	}
	return s.submissions.ListByResponder(ctx, responderID)
}
