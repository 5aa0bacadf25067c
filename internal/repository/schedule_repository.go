package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/busbuddy-api/internal/models"
)

const scheduleColumns = "id, trip_type, scheduled_date, leave_time, event_time, driver_id, vehicle_id, destination, status, created_at, updated_at"

// ActivityScheduleRepository provides persistence for activity schedules.
type ActivityScheduleRepository struct {
	db *sqlx.DB
}

// NewActivityScheduleRepository creates a new schedule repository.
func NewActivityScheduleRepository(db *sqlx.DB) *ActivityScheduleRepository {
	return &ActivityScheduleRepository{db: db}
}

// List returns schedules with optional filtering and pagination.
func (r *ActivityScheduleRepository) List(ctx context.Context, filter models.ActivityScheduleFilter) ([]models.ActivitySchedule, int, error) {
	base := "FROM activity_schedules WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Date != nil {
		conditions = append(conditions, "scheduled_date = ?")
		args = append(args, *filter.Date)
	}
	if filter.DriverID != nil {
		conditions = append(conditions, "driver_id = ?")
		args = append(args, *filter.DriverID)
	}
	if filter.VehicleID != nil {
		conditions = append(conditions, "vehicle_id = ?")
		args = append(args, *filter.VehicleID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "LOWER(status) = ?")
		args = append(args, strings.ToLower(filter.Status))
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"scheduled_date": true,
		"leave_time":     true,
		"created_at":     true,
		"id":             true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "scheduled_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s, id ASC LIMIT %d OFFSET %d", scheduleColumns, base, sortBy, order, size, offset)
	var schedules []models.ActivitySchedule
	if err := r.db.SelectContext(ctx, &schedules, r.db.Rebind(query), args...); err != nil {
		return nil, 0, fmt.Errorf("list activity schedules: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind("SELECT COUNT(*) "+base), args...); err != nil {
		return nil, 0, fmt.Errorf("count activity schedules: %w", err)
	}

	return schedules, total, nil
}

// FindByID loads a schedule by id. It returns sql.ErrNoRows when absent.
func (r *ActivityScheduleRepository) FindByID(ctx context.Context, id int64) (*models.ActivitySchedule, error) {
	var sched models.ActivitySchedule
	if err := r.db.GetContext(ctx, &sched, r.db.Rebind("SELECT "+scheduleColumns+" FROM activity_schedules WHERE id = ?"), id); err != nil {
		return nil, err
	}
	return &sched, nil
}

// Create stores a new schedule and fills its generated id and timestamps.
func (r *ActivityScheduleRepository) Create(ctx context.Context, schedule *models.ActivitySchedule) error {
	if err := insertSchedule(ctx, r.db, schedule); err != nil {
		return fmt.Errorf("create activity schedule: %w", err)
	}
	return nil
}

// BulkCreate inserts many schedules within a transaction.
func (r *ActivityScheduleRepository) BulkCreate(ctx context.Context, schedules []models.ActivitySchedule) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk create activity schedules: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i := range schedules {
		if err = insertSchedule(ctx, tx, &schedules[i]); err != nil {
			return fmt.Errorf("bulk insert activity schedule: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk create activity schedules: %w", err)
	}
	return nil
}

type rowQueryer interface {
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
	Rebind(query string) string
}

func insertSchedule(ctx context.Context, q rowQueryer, schedule *models.ActivitySchedule) error {
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now
	if schedule.Status == "" {
		schedule.Status = models.StatusScheduled
	}

	const query = `INSERT INTO activity_schedules (trip_type, scheduled_date, leave_time, event_time, driver_id, vehicle_id, destination, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`
	return q.QueryRowxContext(ctx, q.Rebind(query),
		schedule.TripType, schedule.Date, schedule.LeaveTime, schedule.EventTime,
		schedule.DriverID, schedule.VehicleID, schedule.Destination, schedule.Status,
		schedule.CreatedAt, schedule.UpdatedAt,
	).Scan(&schedule.ID)
}

// Update modifies a schedule record.
func (r *ActivityScheduleRepository) Update(ctx context.Context, schedule *models.ActivitySchedule) error {
	schedule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE activity_schedules SET trip_type = :trip_type, scheduled_date = :scheduled_date, leave_time = :leave_time, event_time = :event_time, driver_id = :driver_id, vehicle_id = :vehicle_id, destination = :destination, status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("update activity schedule: %w", err)
	}
	return nil
}

// Delete removes a schedule by id.
func (r *ActivityScheduleRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM activity_schedules WHERE id = ?"), id); err != nil {
		return fmt.Errorf("delete activity schedule: %w", err)
	}
	return nil
}
