package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/busbuddy-api/internal/dto"
	"github.com/noah-isme/busbuddy-api/internal/models"
	appErrors "github.com/noah-isme/busbuddy-api/pkg/errors"
	"github.com/noah-isme/busbuddy-api/pkg/jobs"
	"github.com/noah-isme/busbuddy-api/pkg/logger"
	"github.com/noah-isme/busbuddy-api/pkg/storage"
)

// AuditJobType tags audit runs on the job queue.
const AuditJobType = "integrity_audit"

type auditRunStore interface {
	Create(ctx context.Context, run *models.AuditRun) error
	GetByID(ctx context.Context, id string) (*models.AuditRun, error)
	Update(ctx context.Context, update models.AuditRunUpdate) error
	ListQueued(ctx context.Context, limit int) ([]models.AuditRun, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.AuditRun, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type integrityRunner interface {
	ValidateAll(ctx context.Context) *models.IntegrityReport
}

// AuditServiceConfig governs queue recovery and cleanup.
type AuditServiceConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// AuditDownload is a resolved export ready to stream.
type AuditDownload struct {
	Data        []byte
	Filename    string
	ContentType string
	ExpiresAt   time.Time
}

// AuditService manages the lifecycle of asynchronous integrity audits.
type AuditService struct {
	repo      auditRunStore
	queue     jobDispatcher
	exporter  *ExportService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       AuditServiceConfig
}

// NewAuditService constructs the audit service.
func NewAuditService(repo auditRunStore, queue jobDispatcher, exporter *ExportService, validate *validator.Validate, logger *zap.Logger, cfg AuditServiceConfig) *AuditService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &AuditService{repo: repo, queue: queue, exporter: exporter, validator: validate, logger: logger, cfg: cfg}
}

// CreateRun persists a queued run and hands it to the worker pool.
func (s *AuditService) CreateRun(ctx context.Context, req dto.AuditRequest, actorID string) (*dto.AuditRunResponse, error) {
	req.Format = models.ExportFormat(strings.ToLower(string(req.Format)))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid audit payload")
	}
	params := models.AuditRunParams{Format: req.Format}
	if req.MinSeverity != "" {
		sev, err := models.ParseSeverity(req.MinSeverity)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		params.MinSeverity = &sev
	}
	if req.Entity != "" {
		entity, ok := ParseEntityType(req.Entity)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown entity type %q", req.Entity))
		}
		params.Entity = string(entity)
	}

	run := &models.AuditRun{Params: params, Status: models.AuditStatusQueued, CreatedBy: actorID}
	if err := s.repo.Create(ctx, run); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create audit run")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: run.ID, Type: AuditJobType}); err != nil {
		msg := "failed to enqueue audit run"
		now := time.Now().UTC()
		_ = s.repo.Update(ctx, models.AuditRunUpdate{
			ID:           run.ID,
			Status:       models.AuditStatusFailed,
			Progress:     100,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		})
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, msg)
	}
	logger.WithContext(ctx, s.logger).Info("audit run queued",
		zap.String("run_id", run.ID),
		zap.String("format", string(params.Format)),
		zap.String("actor", actorID),
	)
	return &dto.AuditRunResponse{ID: run.ID, Status: run.Status, Progress: run.Progress}, nil
}

func (s *AuditService) load(ctx context.Context, id string) (*models.AuditRun, error) {
	run, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "audit run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load audit run")
	}
	return run, nil
}

// GetStatus exposes run metadata.
func (s *AuditService) GetStatus(ctx context.Context, id string) (*dto.AuditStatusResponse, error) {
	run, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := &dto.AuditStatusResponse{
		ID:              run.ID,
		Status:          run.Status,
		Progress:        run.Progress,
		Format:          run.Params.Format,
		TotalIssues:     run.TotalIssues,
		HighestSeverity: run.HighestSeverity,
		ResultURL:       run.ResultURL,
	}
	if run.ErrorMessage != nil && *run.ErrorMessage != "" {
		resp.Error = run.ErrorMessage
	}
	return resp, nil
}

// ResolveDownload validates token and loads the stored export.
func (s *AuditService) ResolveDownload(ctx context.Context, token string) (*AuditDownload, error) {
	parsed, err := s.exporter.ParseToken(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrGone, "download link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download token")
	}
	run, err := s.load(ctx, parsed.RunID)
	if err != nil {
		return nil, err
	}
	if run.ResultURL == nil || !strings.HasSuffix(*run.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if run.Status != models.AuditStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "audit not ready")
	}
	data, err := s.exporter.Read(parsed.Path)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrGone, "audit export no longer available")
	}
	return &AuditDownload{
		Data:        data,
		Filename:    path.Base(parsed.Path),
		ContentType: ContentType(run.Params.Format),
		ExpiresAt:   parsed.ExpiresAt,
	}, nil
}

// RecoverPendingRuns re-enqueues runs left QUEUED by a previous process.
func (s *AuditService) RecoverPendingRuns(ctx context.Context) int {
	pending, err := s.repo.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Warn("failed to recover queued audit runs", zap.Error(err))
		return 0
	}
	recovered := 0
	for _, run := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: run.ID, Type: AuditJobType}); err != nil {
			s.logger.Warn("failed to requeue audit run", zap.String("run_id", run.ID), zap.Error(err))
			continue
		}
		recovered++
	}
	return recovered
}

// StartCleanup purges expired exports on CleanupInterval until ctx ends.
func (s *AuditService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.CleanupExpired(ctx)
			}
		}
	}()
}

// CleanupExpired deletes export files of runs finished before the retention window.
func (s *AuditService) CleanupExpired(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.ResultTTL)
	runs, err := s.repo.ListFinishedBefore(ctx, cutoff, 100)
	if err != nil {
		s.logger.Warn("audit cleanup list failed", zap.Error(err))
		return
	}
	for _, run := range runs {
		if run.ResultURL == nil {
			continue
		}
		token := extractToken(*run.ResultURL)
		if token == "" {
			continue
		}
		parsed, err := s.exporter.ParseToken(token, true)
		if err != nil {
			continue
		}
		if err := s.exporter.Delete(parsed.Path); err != nil {
			s.logger.Warn("audit cleanup delete failed", zap.String("run_id", run.ID), zap.Error(err))
		}
	}
	if _, err := s.exporter.Cleanup(); err != nil {
		s.logger.Warn("audit filesystem cleanup failed", zap.Error(err))
	}
}

func extractToken(url string) string {
	if url == "" {
		return ""
	}
	parts := strings.Split(url, "/")
	return parts[len(parts)-1]
}

// AuditWorker bridges queue jobs to the validator and the exporter.
type AuditWorker struct {
	repo       auditRunStore
	runner     integrityRunner
	exporter   *ExportService
	metrics    *MetricsService
	logger     *zap.Logger
	maxRetries int
}

// NewAuditWorker constructs a worker.
func NewAuditWorker(repo auditRunStore, runner integrityRunner, exporter *ExportService, metrics *MetricsService, maxRetries int, logger *zap.Logger) *AuditWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &AuditWorker{repo: repo, runner: runner, exporter: exporter, metrics: metrics, logger: logger, maxRetries: maxRetries}
}

// Handle processes one queued audit run.
func (w *AuditWorker) Handle(ctx context.Context, job jobs.Job) error {
	run, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	if run.Status == models.AuditStatusFinished {
		return nil
	}
	if err := w.repo.Update(ctx, models.AuditRunUpdate{ID: run.ID, Status: models.AuditStatusProcessing, Progress: 10}); err != nil {
		return err
	}

	result, err := w.execute(ctx, run)
	if err != nil {
		w.recordFailure(ctx, run.ID, job.Attempt, err)
		return err
	}

	now := time.Now().UTC()
	url := result.URL
	noError := ""
	update := models.AuditRunUpdate{
		ID:           run.ID,
		Status:       models.AuditStatusFinished,
		Progress:     100,
		TotalIssues:  &result.TotalIssues,
		ResultURL:    &url,
		ErrorMessage: &noError,
		FinishedAt:   &now,
	}
	if result.HighestSeverity.Valid() {
		update.HighestSeverity = &result.HighestSeverity
	}
	if err := w.repo.Update(ctx, update); err != nil {
		w.logger.Warn("failed to mark audit finished", zap.String("run_id", run.ID), zap.Error(err))
		return err
	}
	w.metrics.ObserveAuditJob(models.AuditStatusFinished)
	w.logger.Info("audit run finished", zap.String("run_id", run.ID), zap.Int("total_issues", result.TotalIssues))
	return nil
}

func (w *AuditWorker) execute(ctx context.Context, run *models.AuditRun) (*ExportResult, error) {
	report := w.runner.ValidateAll(ctx)
	if report.Error != "" {
		return nil, fmt.Errorf("integrity run incomplete: %s", report.Error)
	}
	if err := w.repo.Update(ctx, models.AuditRunUpdate{ID: run.ID, Status: models.AuditStatusProcessing, Progress: 60}); err != nil {
		return nil, err
	}
	return w.exporter.Generate(ctx, run, report)
}

// recordFailure marks the run FAILED on its last attempt and back to QUEUED otherwise.
func (w *AuditWorker) recordFailure(ctx context.Context, runID string, attempt int, cause error) {
	msg := cause.Error()
	update := models.AuditRunUpdate{ID: runID, Status: models.AuditStatusQueued, Progress: 0, ErrorMessage: &msg}
	if attempt >= w.maxRetries {
		now := time.Now().UTC()
		update.Status = models.AuditStatusFailed
		update.Progress = 100
		update.FinishedAt = &now
	}
	if err := w.repo.Update(ctx, update); err != nil {
		w.logger.Warn("failed to record audit failure", zap.String("run_id", runID), zap.String("status", string(update.Status)), zap.Error(err))
	}
}

// OnExhausted is the queue hook for runs that used up their retries.
func (w *AuditWorker) OnExhausted(ctx context.Context, job jobs.Job, err error) {
	w.metrics.ObserveAuditJob(models.AuditStatusFailed)
	w.logger.Error("audit run failed permanently", zap.String("run_id", job.ID), zap.Error(err))
}
