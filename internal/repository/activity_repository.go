package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/busbuddy-api/internal/models"
)

const activityColumns = "id, activity_type, activity_date, start_time, end_time, driver_id, vehicle_id, route_id, destination, status, created_at, updated_at"

// ActivityRepository reads activity trips.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository creates an activity repository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// List returns activities matching the filter ordered by date, start time and id.
func (r *ActivityRepository) List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, error) {
	var conditions []string
	var args []interface{}

	if filter.From != nil {
		conditions = append(conditions, "activity_date >= ?")
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, "activity_date <= ?")
		args = append(args, *filter.To)
	}
	if filter.Status != "" {
		conditions = append(conditions, "LOWER(status) = ?")
		args = append(args, strings.ToLower(filter.Status))
	}

	query := "SELECT " + activityColumns + " FROM activities"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY activity_date ASC, start_time ASC, id ASC"

	var activities []models.Activity
	if err := r.db.SelectContext(ctx, &activities, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return activities, nil
}

// ListAll returns every activity.
func (r *ActivityRepository) ListAll(ctx context.Context) ([]models.Activity, error) {
	return r.List(ctx, models.ActivityFilter{})
}
