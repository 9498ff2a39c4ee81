package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"asclepius-triage/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupSubmissionsRepo(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *SubmissionsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	logger := zap.NewNop()
	repo := NewSubmissionsRepository(db, logger)

	return db, mock, repo
}

var submissionColumnNames = []string{
	"id", "responder_id", "context_text", "artifact_ref",
	"transcript", "chief_complaint", "vital_signs", "symptoms",
	"recommended_actions", "critical_info", "summary",
	"risk_score", "priority_level", "urgency_level",
	"status", "created_at", "updated_at",
}

func TestCreateSubmission(t *testing.T) {
	db, mock, repo := setupSubmissionsRepo(t)
	defer db.Close()

	s := &models.Submission{
		ID:          "sub-1",
		ResponderID: "medic-7",
		ContextText: "40 year old male",
		ArtifactRef: "uploads/recording-1.wav",
	}

	mock.ExpectExec(`INSERT INTO submissions`).
		WithArgs("sub-1", "medic-7", "40 year old male", "uploads/recording-1.wav", models.StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.CreateSubmission(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, s.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSubmission_MissingFields(t *testing.T) {
	db, _, repo := setupSubmissionsRepo(t)
	defer db.Close()

	err := repo.CreateSubmission(context.Background(), &models.Submission{ID: "sub-1", ArtifactRef: "ref"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "responder_id is required")

	err = repo.CreateSubmission(context.Background(), &models.Submission{ID: "sub-1", ResponderID: "medic-7"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "artifact_ref is required")
}

func TestGetSubmission(t *testing.T) {
	db, mock, repo := setupSubmissionsRepo(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows(submissionColumnNames).
		AddRow("sub-1", "medic-7", "40 year old male", "uploads/recording-1.wav",
			"patient fell from height", "Multiple trauma", "Unconscious", "Bleeding from head",
			"Immediate transport", "High fall", "Critical trauma patient",
			9, 1, "critical",
			"notified", now, now)

	mock.ExpectQuery(`SELECT(.+)FROM submissions WHERE id`).
		WithArgs("sub-1").
		WillReturnRows(rows)

	s, err := repo.GetSubmission(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", s.ID)
	assert.Equal(t, models.StatusNotified, s.Status)
	require.NotNil(t, s.Transcript)
	assert.Equal(t, "patient fell from height", *s.Transcript)
	require.NotNil(t, s.RiskScore)
	assert.Equal(t, 9, *s.RiskScore)
	require.NotNil(t, s.UrgencyLevel)
	assert.Equal(t, "critical", *s.UrgencyLevel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSubmission_PendingHasNilAnalysisFields(t *testing.T) {
	db, mock, repo := setupSubmissionsRepo(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows(submissionColumnNames).
		AddRow("sub-1", "medic-7", "", "uploads/recording-1.wav",
			nil, nil, nil, nil,
			nil, nil, nil,
			nil, nil, nil,
			"pending", now, now)

	mock.ExpectQuery(`SELECT(.+)FROM submissions WHERE id`).
		WithArgs("sub-1").
		WillReturnRows(rows)

	s, err := repo.GetSubmission(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, s.Status)
	assert.Nil(t, s.Transcript)
	assert.Nil(t, s.RiskScore)
	assert.Nil(t, s.PriorityLevel)
	assert.Nil(t, s.UrgencyLevel)
}

func TestGetSubmission_NotFound(t *testing.T) {
	db, mock, repo := setupSubmissionsRepo(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT(.+)FROM submissions WHERE id`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetSubmission(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "submission not found")
}

func TestListByResponder(t *testing.T) {
	db, mock, repo := setupSubmissionsRepo(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows(submissionColumnNames).
		AddRow("sub-2", "medic-7", "", "uploads/recording-2.wav",
			nil, nil, nil, nil, nil, nil, nil, nil, nil, nil,
			"pending", now, now).
		AddRow("sub-1", "medic-7", "", "uploads/recording-1.wav",
			"transcript", "Chest pain", nil, nil, nil, nil, "Summary",
			7, 2, "urgent",
			"completed", now.Add(-time.Hour), now)

	mock.ExpectQuery(`SELECT(.+)FROM submissions WHERE responder_id(.+)ORDER BY created_at DESC`).
		WithArgs("medic-7").
		WillReturnRows(rows)

	list, err := repo.ListByResponder(context.Background(), "medic-7")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "sub-2", list[0].ID)
	assert.Equal(t, "sub-1", list[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus(t *testing.T) {
	db, mock, repo := setupSubmissionsRepo(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE submissions`).
		WithArgs(models.StatusProcessing, "sub-1", models.StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "sub-1", models.StatusPending, models.StatusProcessing)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_Conflict(t *testing.T) {
	db, mock, repo := setupSubmissionsRepo(t)
	defer db.Close()

	// 当前状态已不是期望的旧状态：零行受影响
	mock.ExpectExec(`UPDATE submissions`).
		WithArgs(models.StatusProcessing, "sub-1", models.StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "sub-1", models.StatusPending, models.StatusProcessing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status conflict")
}

func TestUpdateStatus_InvalidTransition(t *testing.T) {
	db, _, repo := setupSubmissionsRepo(t)
	defer db.Close()

	// 状态机不允许回退，语句根本不会执行
	err := repo.UpdateStatus(context.Background(), "sub-1", models.StatusCompleted, models.StatusPending)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid status transition")

	err = repo.UpdateStatus(context.Background(), "sub-1", models.StatusPending, models.StatusNotified)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid status transition")
}

func TestUpdateResults(t *testing.T) {
	db, mock, repo := setupSubmissionsRepo(t)
	defer db.Close()

	a := &models.Assessment{
		ChiefComplaint:     "Multiple trauma",
		VitalSigns:         "Unconscious",
		Symptoms:           "Bleeding from head",
		RecommendedActions: "Immediate transport",
		CriticalInfo:       "High fall",
		Summary:            "Critical trauma patient",
		RiskScore:          9,
		PriorityLevel:      1,
		UrgencyLevel:       "critical",
	}

	mock.ExpectExec(`UPDATE submissions`).
		WithArgs("patient fell from height",
			"Multiple trauma", "Unconscious", "Bleeding from head",
			"Immediate transport", "High fall", "Critical trauma patient",
			9, 1, "critical",
			models.StatusCompleted, "sub-1", models.StatusProcessing).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateResults(context.Background(), "sub-1", "patient fell from height", a)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateResults_StatusConflict(t *testing.T) {
	db, mock, repo := setupSubmissionsRepo(t)
	defer db.Close()

	a := &models.Assessment{ChiefComplaint: "Chest pain", RiskScore: 7, PriorityLevel: 2, UrgencyLevel: "urgent"}

	mock.ExpectExec(`UPDATE submissions`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateResults(context.Background(), "sub-1", "transcript", a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status conflict")
}

func TestMarkError(t *testing.T) {
	db, mock, repo := setupSubmissionsRepo(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE submissions`).
		WithArgs(models.StatusError, "sub-1", models.StatusError, models.StatusNotified).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkError(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetContextText(t *testing.T) {
	db, mock, repo := setupSubmissionsRepo(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT context_text FROM submissions WHERE id`).
		WithArgs("sub-1").
		WillReturnRows(sqlmock.NewRows([]string{"context_text"}).AddRow("40 year old male"))

	text, err := repo.GetContextText(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "40 year old male", text)
}

func TestGetContextText_NotFound(t *testing.T) {
	db, mock, repo := setupSubmissionsRepo(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT context_text FROM submissions WHERE id`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetContextText(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "submission not found")
}
