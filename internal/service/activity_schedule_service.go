package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/busbuddy-api/internal/models"
	appErrors "github.com/noah-isme/busbuddy-api/pkg/errors"
	"github.com/noah-isme/busbuddy-api/pkg/logger"
	"github.com/noah-isme/busbuddy-api/pkg/timewindow"
)

type activityScheduleRepository interface {
	List(ctx context.Context, filter models.ActivityScheduleFilter) ([]models.ActivitySchedule, int, error)
	FindByID(ctx context.Context, id int64) (*models.ActivitySchedule, error)
	Create(ctx context.Context, schedule *models.ActivitySchedule) error
	BulkCreate(ctx context.Context, schedules []models.ActivitySchedule) error
	Update(ctx context.Context, schedule *models.ActivitySchedule) error
	Delete(ctx context.Context, id int64) error
}

type conflictChecker interface {
	Conflicts(ctx context.Context, candidate Candidate) ([]models.ScheduleConflict, error)
}

// ActivityScheduleRequest is the payload for creating or replacing a schedule.
type ActivityScheduleRequest struct {
	TripType    string `json:"trip_type" validate:"required,max=64"`
	Date        string `json:"date" validate:"required"`
	LeaveTime   string `json:"leave_time" validate:"required"`
	EventTime   string `json:"event_time" validate:"required"`
	DriverID    *int64 `json:"driver_id" validate:"omitnil,gt=0"`
	VehicleID   *int64 `json:"vehicle_id" validate:"omitnil,gt=0"`
	Destination string `json:"destination" validate:"max=255"`
	Status      string `json:"status" validate:"omitempty,oneof=Scheduled Completed Cancelled"`
}

// BulkCreateActivitySchedulesRequest holds multiple schedules for creation.
type BulkCreateActivitySchedulesRequest struct {
	Items          []ActivityScheduleRequest `json:"items" validate:"required,min=1,dive"`
	PartialOnError bool                      `json:"partial_on_error"`
}

// BulkCreateActivitySchedulesResult summarises bulk creation results.
type BulkCreateActivitySchedulesResult struct {
	Created   []models.ActivitySchedule `json:"created"`
	Conflicts []models.ScheduleConflict `json:"conflicts,omitempty"`
}

// ActivityScheduleService manages driver and vehicle trip bookings.
type ActivityScheduleService struct {
	repo      activityScheduleRepository
	conflicts conflictChecker
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewActivityScheduleService instantiates ActivityScheduleService.
func NewActivityScheduleService(repo activityScheduleRepository, conflicts conflictChecker, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ActivityScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityScheduleService{repo: repo, conflicts: conflicts, cache: cache, validator: validate, logger: logger}
}

// List returns schedules with pagination metadata.
func (s *ActivityScheduleService) List(ctx context.Context, filter models.ActivityScheduleFilter) ([]models.ActivitySchedule, *models.Pagination, error) {
	schedules, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activity schedules")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return schedules, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a single schedule.
func (s *ActivityScheduleService) Get(ctx context.Context, id int64) (*models.ActivitySchedule, error) {
	schedule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity schedule")
	}
	return schedule, nil
}

// Create inserts a schedule after conflict detection.
func (s *ActivityScheduleService) Create(ctx context.Context, req ActivityScheduleRequest) (*models.ActivitySchedule, error) {
	schedule, err := s.build(req)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNoConflict(ctx, schedule, 0); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, &schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create activity schedule")
	}
	s.invalidate(ctx)
	return &schedule, nil
}

// Update replaces an existing schedule. The schedule never conflicts with itself.
func (s *ActivityScheduleService) Update(ctx context.Context, id int64, req ActivityScheduleRequest) (*models.ActivitySchedule, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := s.build(req)
	if err != nil {
		return nil, err
	}
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt

	if err := s.ensureNoConflict(ctx, updated, existing.ID); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update activity schedule")
	}
	s.invalidate(ctx)
	return &updated, nil
}

// Delete removes a schedule entry.
func (s *ActivityScheduleService) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete activity schedule")
	}
	s.invalidate(ctx)
	return nil
}

// BulkCreate inserts several schedules in one transaction. Items are checked against
// stored bookings and against the earlier items of the same batch.
func (s *ActivityScheduleService) BulkCreate(ctx context.Context, req BulkCreateActivitySchedulesRequest) (*BulkCreateActivitySchedulesResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk schedule payload")
	}

	var toCreate []models.ActivitySchedule
	var accepted []models.Assignment
	var conflicts []models.ScheduleConflict

	for i, item := range req.Items {
		schedule, err := s.build(item)
		if err != nil {
			return nil, err
		}
		candidate := scheduleCandidate(schedule, 0)

		found, err := s.findConflicts(ctx, candidate)
		if err != nil {
			return nil, err
		}
		found = append(found, FindConflicts(accepted, candidate)...)
		if len(found) > 0 {
			conflicts = append(conflicts, found...)
			if !req.PartialOnError {
				return nil, conflictError(found)
			}
			continue
		}

		// Unsaved batch items are reported with their negated 1-based position as id.
		projected := schedule.Assignment()
		projected.ID = -int64(i + 1)
		accepted = append(accepted, projected)
		toCreate = append(toCreate, schedule)
	}

	if len(toCreate) > 0 {
		if err := s.repo.BulkCreate(ctx, toCreate); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to bulk create activity schedules")
		}
		s.invalidate(ctx)
	}
	return &BulkCreateActivitySchedulesResult{Created: toCreate, Conflicts: conflicts}, nil
}

func (s *ActivityScheduleService) build(req ActivityScheduleRequest) (models.ActivitySchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.ActivitySchedule{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activity schedule payload")
	}
	date, err := timewindow.ParseDate(req.Date)
	if err != nil {
		return models.ActivitySchedule{}, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	leave, err := timewindow.ParseClock(req.LeaveTime)
	if err != nil {
		return models.ActivitySchedule{}, appErrors.Clone(appErrors.ErrValidation, "leave_time must be HH:MM[:SS]")
	}
	event, err := timewindow.ParseClock(req.EventTime)
	if err != nil {
		return models.ActivitySchedule{}, appErrors.Clone(appErrors.ErrValidation, "event_time must be HH:MM[:SS]")
	}
	if !leave.Before(event) {
		return models.ActivitySchedule{}, appErrors.Clone(appErrors.ErrValidation, "leave_time must be before event_time")
	}
	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = models.StatusScheduled
	}
	return models.ActivitySchedule{
		TripType:    strings.TrimSpace(req.TripType),
		Date:        date,
		LeaveTime:   leave,
		EventTime:   event,
		DriverID:    req.DriverID,
		VehicleID:   req.VehicleID,
		Destination: strings.TrimSpace(req.Destination),
		Status:      status,
	}, nil
}

func (s *ActivityScheduleService) ensureNoConflict(ctx context.Context, schedule models.ActivitySchedule, ignoreID int64) error {
	found, err := s.findConflicts(ctx, scheduleCandidate(schedule, ignoreID))
	if err != nil {
		return err
	}
	if len(found) > 0 {
		logger.WithContext(ctx, s.logger).Info("activity schedule rejected",
			zap.Int64("schedule_id", ignoreID),
			zap.String("date", schedule.Date.String()),
			zap.Int("conflicts", len(found)),
		)
		return conflictError(found)
	}
	return nil
}

func (s *ActivityScheduleService) findConflicts(ctx context.Context, candidate Candidate) ([]models.ScheduleConflict, error) {
	if s.conflicts == nil {
		return nil, nil
	}
	return s.conflicts.Conflicts(ctx, candidate)
}

func (s *ActivityScheduleService) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateIntegrity(ctx); err != nil {
		logger.WithContext(ctx, s.logger).Warn("failed to invalidate integrity cache", zap.Error(err))
	}
}

func scheduleCandidate(schedule models.ActivitySchedule, ignoreID int64) Candidate {
	candidate := Candidate{
		Date:         schedule.Date,
		Window:       schedule.Window(),
		IgnoreID:     ignoreID,
		IgnoreSource: models.AssignmentSourceActivitySchedule,
	}
	if schedule.VehicleID != nil {
		candidate.VehicleID = *schedule.VehicleID
	}
	if schedule.DriverID != nil {
		candidate.DriverID = *schedule.DriverID
	}
	return candidate
}

func conflictError(conflicts []models.ScheduleConflict) error {
	first := conflicts[0]
	message := fmt.Sprintf("%s already booked on %s between %s and %s",
		dimensionLabel(first.Dimension), first.Date, first.Window.Start, first.Window.End)
	domainErr := &models.ScheduleConflictError{Type: first.Dimension, Message: message, Conflicts: conflicts}
	return appErrors.Wrap(domainErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, fmt.Sprintf("schedule conflict: %s", message))
}
