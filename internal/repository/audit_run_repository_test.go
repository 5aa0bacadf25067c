package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/busbuddy-api/internal/models"
)

func TestAuditRunRepositoryCreateFillsDefaults(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAuditRunRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_runs")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	run := &models.AuditRun{Params: models.AuditRunParams{Format: models.ExportFormatCSV}, CreatedBy: "admin-1"}
	require.NoError(t, repo.Create(context.Background(), run))
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, models.AuditStatusQueued, run.Status)
	assert.False(t, run.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRunRepositoryGetByIDWrapsNoRows(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAuditRunRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_runs WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRunRepositoryUpdateSetsOptionalColumns(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAuditRunRepository(db)

	total := 4
	sev := models.SeverityHigh
	url := "/api/v1/audits/run-1/download?token=abc"
	finished := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE audit_runs SET status = $1, progress = $2, total_issues = $3, highest_severity = $4, result_url = $5, finished_at = $6 WHERE id = $7")).
		WithArgs("FINISHED", int64(100), int64(4), "High", url, finished, "run-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), models.AuditRunUpdate{
		ID:              "run-1",
		Status:          models.AuditStatusFinished,
		Progress:        100,
		TotalIssues:     &total,
		HighestSeverity: &sev,
		ResultURL:       &url,
		FinishedAt:      &finished,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRunRepositoryListQueued(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAuditRunRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_runs WHERE status = $1 ORDER BY created_at ASC LIMIT $2")).
		WithArgs("QUEUED", int64(20)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "params", "status", "progress", "total_issues", "highest_severity", "result_url", "created_by", "created_at", "finished_at", "error_message"}).
			AddRow("run-1", `{"format":"pdf","min_severity":"Medium"}`, "QUEUED", 0, 0, nil, nil, "admin-1", now, nil, nil))

	runs, err := repo.ListQueued(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.ExportFormatPDF, runs[0].Params.Format)
	require.NotNil(t, runs[0].Params.MinSeverity)
	assert.Equal(t, models.SeverityMedium, *runs[0].Params.MinSeverity)
	assert.Nil(t, runs[0].HighestSeverity)
	assert.NoError(t, mock.ExpectationsWereMet())
}
