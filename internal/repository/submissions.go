package repository

import (
	"context"
	"database/sql"
	"fmt"

	"asclepius-triage/internal/models"

	"go.uber.org/zap"
)

// SubmissionsRepository 提交记录仓库
// 流水线是 submission 转写/评估/状态字段的唯一写入方
type SubmissionsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSubmissionsRepository 创建提交记录仓库
func NewSubmissionsRepository(db *sql.DB, logger *zap.Logger) *SubmissionsRepository {
	return &SubmissionsRepository{
		db:     db,
		logger: logger,
	}
}

const submissionColumns = `
	id,
	responder_id,
	context_text,
	artifact_ref,
	transcript,
	chief_complaint,
	vital_signs,
	symptoms,
	recommended_actions,
	critical_info,
	summary,
	risk_score,
	priority_level,
	urgency_level,
	status,
	created_at,
	updated_at
`

// scanSubmission 扫描单行 submission
func scanSubmission(row interface {
	Scan(dest ...interface{}) error
}) (*models.Submission, error) {
	var s models.Submission
	var transcript, chiefComplaint, vitalSigns, symptoms sql.NullString
	var recommendedActions, criticalInfo, summary, urgencyLevel sql.NullString
	var riskScore, priorityLevel sql.NullInt64

	err := row.Scan(
		&s.ID,
		&s.ResponderID,
		&s.ContextText,
		&s.ArtifactRef,
		&transcript,
		&chiefComplaint,
		&vitalSigns,
		&symptoms,
		&recommendedActions,
		&criticalInfo,
		&summary,
		&riskScore,
		&priorityLevel,
		&urgencyLevel,
		&s.Status,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if transcript.Valid {
		s.Transcript = &transcript.String
	}
	if chiefComplaint.Valid {
		s.ChiefComplaint = &chiefComplaint.String
	}
	if vitalSigns.Valid {
		s.VitalSigns = &vitalSigns.String
	}
	if symptoms.Valid {
		s.Symptoms = &symptoms.String
	}
	if recommendedActions.Valid {
		s.RecommendedActions = &recommendedActions.String
	}
	if criticalInfo.Valid {
		s.CriticalInfo = &criticalInfo.String
	}
	if summary.Valid {
		s.Summary = &summary.String
	}
	if urgencyLevel.Valid {
		s.UrgencyLevel = &urgencyLevel.String
	}
	if riskScore.Valid {
		v := int(riskScore.Int64)
		s.RiskScore = &v
	}
	if priorityLevel.Valid {
		v := int(priorityLevel.Int64)
		s.PriorityLevel = &v
	}

	return &s, nil
}

// CreateSubmission 创建提交记录（初始状态 pending）
func (r *SubmissionsRepository) CreateSubmission(ctx context.Context, s *models.Submission) error {
	if s == nil {
		return fmt.Errorf("submission is required")
	}
	if s.ID == "" {
		return fmt.Errorf("id is required")
	}
	if s.ResponderID == "" {
		return fmt.Errorf("responder_id is required")
	}
	if s.ArtifactRef == "" {
		return fmt.Errorf("artifact_ref is required")
	}

	query := `
		INSERT INTO submissions (
			id,
			responder_id,
			context_text,
			artifact_ref,
			status,
			created_at,
			updated_at
		) VALUES (
			$1, $2, $3, $4, $5, NOW(), NOW()
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.ResponderID,
		s.ContextText,
		s.ArtifactRef,
		models.StatusPending,
	)
	if err != nil {
		r.logger.Error("Failed to create submission",
			zap.String("submission_id", s.ID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to create submission: %w", err)
	}

	s.Status = models.StatusPending
	return nil
}

// GetSubmission 根据 id 获取单条提交记录
func (r *SubmissionsRepository) GetSubmission(ctx context.Context, id string) (*models.Submission, error) {
	if id == "" {
		return nil, fmt.Errorf("id is required")
	}

	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`

	s, err := scanSubmission(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("submission not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	return s, nil
}

// ListByResponder 查询某上报人的全部提交记录（按创建时间倒序）
func (r *SubmissionsRepository) ListByResponder(ctx context.Context, responderID string) ([]*models.Submission, error) {
	if responderID == "" {
		return nil, fmt.Errorf("responder_id is required")
	}

	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE responder_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, responderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var submissions []*models.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		submissions = append(submissions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate submissions: %w", err)
	}

	return submissions, nil
}

// UpdateStatus 推进提交记录的状态
// WHERE 子句带上当前状态，保证迁移单调：当前状态不匹配时返回冲突错误
func (r *SubmissionsRepository) UpdateStatus(ctx context.Context, id string, from, to models.Status) error {
	if id == "" {
		return fmt.Errorf("id is required")
	}
	if !from.CanTransition(to) {
		return fmt.Errorf("invalid status transition: %s -> %s", from, to)
	}

	query := `
		UPDATE submissions
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`

	result, err := r.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return fmt.Errorf("failed to update submission status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("status conflict: submission %s is no longer %s", id, from)
	}

	return nil
}

// UpdateResults 写入转写结果与结构化评估，并在同一条语句中推进状态
// 字段与状态原子落库：二者不会只成功其一
func (r *SubmissionsRepository) UpdateResults(ctx context.Context, id, transcript string, a *models.Assessment) error {
	if id == "" {
		return fmt.Errorf("id is required")
	}
	if a == nil {
		return fmt.Errorf("assessment is required")
	}

	query := `
		UPDATE submissions
		SET transcript = $1,
		    chief_complaint = $2,
		    vital_signs = $3,
		    symptoms = $4,
		    recommended_actions = $5,
		    critical_info = $6,
		    summary = $7,
		    risk_score = $8,
		    priority_level = $9,
		    urgency_level = $10,
		    status = $11,
		    updated_at = NOW()
		WHERE id = $12 AND status = $13
	`

	result, err := r.db.ExecContext(ctx, query,
		transcript,
		a.ChiefComplaint,
		a.VitalSigns,
		a.Symptoms,
		a.RecommendedActions,
		a.CriticalInfo,
		a.Summary,
		a.RiskScore,
		a.PriorityLevel,
		a.UrgencyLevel,
		models.StatusCompleted,
		id,
		models.StatusProcessing,
	)
	if err != nil {
		r.logger.Error("Failed to persist pipeline results",
			zap.String("submission_id", id),
			zap.Error(err),
		)
		return fmt.Errorf("failed to persist results: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("status conflict: submission %s is no longer %s", id, models.StatusProcessing)
	}

	return nil
}

// MarkError 将提交记录置为终态 error
// error 可从任意非终态到达，因此只排除已处于终态的行
func (r *SubmissionsRepository) MarkError(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("id is required")
	}

	query := `
		UPDATE submissions
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status NOT IN ($3, $4)
	`

	_, err := r.db.ExecContext(ctx, query,
		models.StatusError,
		id,
		models.StatusError,
		models.StatusNotified,
	)
	if err != nil {
		return fmt.Errorf("failed to mark submission as error: %w", err)
	}

	return nil
}

// GetContextText 读取提交记录的自由文本补充信息
// 流水线每次运行都重新读库，不跨调用缓存
func (r *SubmissionsRepository) GetContextText(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("id is required")
	}

	var contextText string
	err := r.db.QueryRowContext(ctx,
		`SELECT context_text FROM submissions WHERE id = $1`, id,
	).Scan(&contextText)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("submission not found: %s", id)
		}
		return "", fmt.Errorf("failed to get context text: %w", err)
	}

	return contextText, nil
}
