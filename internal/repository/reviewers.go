package repository

import (
	"context"
	"database/sql"
	"fmt"

	"asclepius-triage/internal/models"

	"go.uber.org/zap"
)

// ReviewersRepository 审阅人仓库
type ReviewersRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReviewersRepository 创建审阅人仓库
func NewReviewersRepository(db *sql.DB, logger *zap.Logger) *ReviewersRepository {
	return &ReviewersRepository{
		db:     db,
		logger: logger,
	}
}

const reviewerColumns = `
	id,
	first_name,
	last_name,
	phone,
	email,
	specialty,
	available,
	created_at,
	updated_at
`

func scanReviewer(row interface {
	Scan(dest ...interface{}) error
}) (*models.Reviewer, error) {
	var r models.Reviewer
	err := row.Scan(
		&r.ID,
		&r.FirstName,
		&r.LastName,
		&r.Phone,
		&r.Email,
		&r.Specialty,
		&r.Available,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetReviewer 根据 id 获取审阅人
func (r *ReviewersRepository) GetReviewer(ctx context.Context, id string) (*models.Reviewer, error) {
	if id == "" {
		return nil, fmt.Errorf("id is required")
	}

	query := `SELECT ` + reviewerColumns + ` FROM reviewers WHERE id = $1`

	reviewer, err := scanReviewer(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("reviewer not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get reviewer: %w", err)
	}

	return reviewer, nil
}

// ListAvailable 查询当前可接收通知的审阅人
// 分发策略不做专科过滤：所有 available 的审阅人都会收到每条完成的提交
func (r *ReviewersRepository) ListAvailable(ctx context.Context) ([]*models.Reviewer, error) {
	query := `SELECT ` + reviewerColumns + ` FROM reviewers WHERE available = TRUE ORDER BY last_name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list available reviewers: %w", err)
	}
	defer rows.Close()

	var reviewers []*models.Reviewer
	for rows.Next() {
		reviewer, err := scanReviewer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reviewer: %w", err)
		}
		reviewers = append(reviewers, reviewer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reviewers: %w", err)
	}

	return reviewers, nil
}

// SetAvailability 更新审阅人可用状态
func (r *ReviewersRepository) SetAvailability(ctx context.Context, id string, available bool) error {
	if id == "" {
		return fmt.Errorf("id is required")
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE reviewers SET available = $1, updated_at = NOW() WHERE id = $2`,
		available, id,
	)
	if err != nil {
		r.logger.Error("Failed to update reviewer availability",
			zap.String("reviewer_id", id),
			zap.Error(err),
		)
		return fmt.Errorf("failed to update availability: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("reviewer not found: %s", id)
	}

	return nil
}
