package repository

import (
	"context"
	"database/sql"
	"fmt"

	"asclepius-triage/internal/models"

	"go.uber.org/zap"
)

// DeliverySort 审阅人通知列表排序方式
type DeliverySort string

const (
	SortNewest   DeliverySort = "newest"   // 按发出时间倒序（默认）
	SortOldest   DeliverySort = "oldest"   // 按发出时间正序
	SortPriority DeliverySort = "priority" // 分诊排序：风险分倒序、优先级正序、时间倒序
)

// DeliveriesRepository 通知投递记录仓库
type DeliveriesRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDeliveriesRepository 创建通知投递仓库
func NewDeliveriesRepository(db *sql.DB, logger *zap.Logger) *DeliveriesRepository {
	return &DeliveriesRepository{
		db:     db,
		logger: logger,
	}
}

// CreateDelivery 创建一条投递记录
// 同一次分发中每个 (submission, reviewer) 对至多一条
func (r *DeliveriesRepository) CreateDelivery(ctx context.Context, d *models.Delivery) error {
	if d == nil {
		return fmt.Errorf("delivery is required")
	}
	if d.ID == "" {
		return fmt.Errorf("id is required")
	}
	if d.SubmissionID == "" {
		return fmt.Errorf("submission_id is required")
	}
	if d.ReviewerID == "" {
		return fmt.Errorf("reviewer_id is required")
	}
	if !d.Channel.Valid() {
		return fmt.Errorf("invalid channel: %s", d.Channel)
	}

	query := `
		INSERT INTO deliveries (
			id,
			submission_id,
			reviewer_id,
			channel,
			sent_at,
			delivered
		) VALUES (
			$1, $2, $3, $4, NOW(), FALSE
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		d.ID,
		d.SubmissionID,
		d.ReviewerID,
		d.Channel,
	)
	if err != nil {
		r.logger.Error("Failed to create delivery",
			zap.String("submission_id", d.SubmissionID),
			zap.String("reviewer_id", d.ReviewerID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to create delivery: %w", err)
	}

	return nil
}

// GetDelivery 根据 id 获取投递记录
func (r *DeliveriesRepository) GetDelivery(ctx context.Context, id string) (*models.Delivery, error) {
	if id == "" {
		return nil, fmt.Errorf("id is required")
	}

	query := `
		SELECT id, submission_id, reviewer_id, channel, sent_at, delivered, read_at, response
		FROM deliveries
		WHERE id = $1
	`

	var d models.Delivery
	var readAt sql.NullTime
	var response sql.NullString

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&d.ID,
		&d.SubmissionID,
		&d.ReviewerID,
		&d.Channel,
		&d.SentAt,
		&d.Delivered,
		&readAt,
		&response,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("delivery not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get delivery: %w", err)
	}

	if readAt.Valid {
		d.ReadAt = &readAt.Time
	}
	if response.Valid {
		d.Response = &response.String
	}

	return &d, nil
}

// ListByReviewer 查询审阅人的通知列表（JOIN submissions 展开评估字段）
func (r *DeliveriesRepository) ListByReviewer(ctx context.Context, reviewerID string, sort DeliverySort) ([]*models.DeliveryDetail, error) {
	if reviewerID == "" {
		return nil, fmt.Errorf("reviewer_id is required")
	}

	var orderClause string
	switch sort {
	case SortPriority:
		orderClause = "ORDER BY s.risk_score DESC NULLS LAST, s.priority_level ASC NULLS LAST, d.sent_at DESC"
	case SortOldest:
		orderClause = "ORDER BY d.sent_at ASC"
	case SortNewest, "":
		orderClause = "ORDER BY d.sent_at DESC"
	default:
		return nil, fmt.Errorf("invalid sort: %s", sort)
	}

	query := `
		SELECT
			d.id,
			d.submission_id,
			d.reviewer_id,
			d.channel,
			d.sent_at,
			d.delivered,
			d.read_at,
			d.response,
			s.context_text,
			s.summary,
			s.urgency_level,
			s.risk_score,
			s.priority_level,
			s.chief_complaint,
			s.created_at AS submitted_at
		FROM deliveries d
		JOIN submissions s ON d.submission_id = s.id
		WHERE d.reviewer_id = $1
		` + orderClause

	rows, err := r.db.QueryContext(ctx, query, reviewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list deliveries: %w", err)
	}
	defer rows.Close()

	var details []*models.DeliveryDetail
	for rows.Next() {
		var det models.DeliveryDetail
		var readAt sql.NullTime
		var response, summary, urgencyLevel, chiefComplaint sql.NullString
		var riskScore, priorityLevel sql.NullInt64

		err := rows.Scan(
			&det.ID,
			&det.SubmissionID,
			&det.ReviewerID,
			&det.Channel,
			&det.SentAt,
			&det.Delivered,
			&readAt,
			&response,
			&det.ContextText,
			&summary,
			&urgencyLevel,
			&riskScore,
			&priorityLevel,
			&chiefComplaint,
			&det.SubmittedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}

		if readAt.Valid {
			det.ReadAt = &readAt.Time
		}
		if response.Valid {
			det.Response = &response.String
		}
		if summary.Valid {
			det.Summary = &summary.String
		}
		if urgencyLevel.Valid {
			det.UrgencyLevel = &urgencyLevel.String
		}
		if chiefComplaint.Valid {
			det.ChiefComplaint = &chiefComplaint.String
		}
		if riskScore.Valid {
			v := int(riskScore.Int64)
			det.RiskScore = &v
		}
		if priorityLevel.Valid {
			v := int(priorityLevel.Int64)
			det.PriorityLevel = &v
		}

		details = append(details, &det)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate deliveries: %w", err)
	}

	return details, nil
}

// MarkDelivered 标记投递已送达（短信/邮件发送成功后）
func (r *DeliveriesRepository) MarkDelivered(ctx context.Context, submissionID, reviewerID string) error {
	if submissionID == "" {
		return fmt.Errorf("submission_id is required")
	}
	if reviewerID == "" {
		return fmt.Errorf("reviewer_id is required")
	}

	_, err := r.db.ExecContext(ctx,
		`UPDATE deliveries SET delivered = TRUE WHERE submission_id = $1 AND reviewer_id = $2`,
		submissionID, reviewerID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark delivery as delivered: %w", err)
	}

	return nil
}

// MarkRead 标记通知已读（归属校验：只允许本人标记）
func (r *DeliveriesRepository) MarkRead(ctx context.Context, deliveryID, reviewerID string) error {
	if deliveryID == "" {
		return fmt.Errorf("delivery_id is required")
	}
	if reviewerID == "" {
		return fmt.Errorf("reviewer_id is required")
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE deliveries SET read_at = NOW() WHERE id = $1 AND reviewer_id = $2`,
		deliveryID, reviewerID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark delivery as read: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("delivery not found for reviewer: %s", deliveryID)
	}

	return nil
}

// SetResponse 写入审阅人对某条提交的自由文本回复
func (r *DeliveriesRepository) SetResponse(ctx context.Context, submissionID, reviewerID, response string) error {
	if submissionID == "" {
		return fmt.Errorf("submission_id is required")
	}
	if reviewerID == "" {
		return fmt.Errorf("reviewer_id is required")
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE deliveries SET response = $1 WHERE submission_id = $2 AND reviewer_id = $3`,
		response, submissionID, reviewerID,
	)
	if err != nil {
		return fmt.Errorf("failed to set delivery response: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("delivery not found for submission %s and reviewer %s", submissionID, reviewerID)
	}

	return nil
}
