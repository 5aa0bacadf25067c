package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/busbuddy-api/internal/models"
)

const auditRunColumns = "id, params, status, progress, total_issues, highest_severity, result_url, created_by, created_at, finished_at, error_message"

// AuditRunRepository persists audit run metadata.
type AuditRunRepository struct {
	db *sqlx.DB
}

// NewAuditRunRepository constructs the repository.
func NewAuditRunRepository(db *sqlx.DB) *AuditRunRepository {
	return &AuditRunRepository{db: db}
}

// Create inserts a new audit run row with generated defaults.
func (r *AuditRunRepository) Create(ctx context.Context, run *models.AuditRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = models.AuditStatusQueued
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_runs (id, params, status, progress, total_issues, highest_severity, result_url, created_by, created_at, finished_at, error_message)
VALUES (:id, :params, :status, :progress, :total_issues, :highest_severity, :result_url, :created_by, :created_at, :finished_at, :error_message)`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("create audit run: %w", err)
	}
	return nil
}

// GetByID returns a run by id. The error wraps sql.ErrNoRows when absent.
func (r *AuditRunRepository) GetByID(ctx context.Context, id string) (*models.AuditRun, error) {
	var run models.AuditRun
	if err := r.db.GetContext(ctx, &run, r.db.Rebind("SELECT "+auditRunColumns+" FROM audit_runs WHERE id = ?"), id); err != nil {
		return nil, fmt.Errorf("get audit run: %w", err)
	}
	return &run, nil
}

// Update persists the status change and whichever optional columns are set.
func (r *AuditRunRepository) Update(ctx context.Context, update models.AuditRunUpdate) error {
	set := []string{"status = ?", "progress = ?"}
	args := []interface{}{update.Status, update.Progress}

	if update.TotalIssues != nil {
		set = append(set, "total_issues = ?")
		args = append(args, *update.TotalIssues)
	}
	if update.HighestSeverity != nil {
		set = append(set, "highest_severity = ?")
		args = append(args, *update.HighestSeverity)
	}
	if update.ResultURL != nil {
		set = append(set, "result_url = ?")
		args = append(args, *update.ResultURL)
	}
	if update.ErrorMessage != nil {
		set = append(set, "error_message = ?")
		args = append(args, *update.ErrorMessage)
	}
	if update.FinishedAt != nil {
		set = append(set, "finished_at = ?")
		args = append(args, *update.FinishedAt)
	}
	args = append(args, update.ID)

	query := fmt.Sprintf("UPDATE audit_runs SET %s WHERE id = ?", strings.Join(set, ", "))
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("update audit run: %w", err)
	}
	return nil
}

// ListQueued fetches queued runs (used for cold start recovery).
func (r *AuditRunRepository) ListQueued(ctx context.Context, limit int) ([]models.AuditRun, error) {
	if limit <= 0 {
		limit = 20
	}
	query := "SELECT " + auditRunColumns + " FROM audit_runs WHERE status = ? ORDER BY created_at ASC LIMIT ?"
	var runs []models.AuditRun
	if err := r.db.SelectContext(ctx, &runs, r.db.Rebind(query), models.AuditStatusQueued, limit); err != nil {
		return nil, fmt.Errorf("list queued audit runs: %w", err)
	}
	return runs, nil
}

// ListFinishedBefore retrieves completed runs finished prior to cutoff, for export cleanup.
func (r *AuditRunRepository) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.AuditRun, error) {
	if limit <= 0 {
		limit = 50
	}
	query := "SELECT " + auditRunColumns + " FROM audit_runs WHERE status = ? AND result_url IS NOT NULL AND finished_at IS NOT NULL AND finished_at < ? ORDER BY finished_at ASC LIMIT ?"
	var runs []models.AuditRun
	if err := r.db.SelectContext(ctx, &runs, r.db.Rebind(query), models.AuditStatusFinished, cutoff, limit); err != nil {
		return nil, fmt.Errorf("list finished audit runs: %w", err)
	}
	return runs, nil
}
