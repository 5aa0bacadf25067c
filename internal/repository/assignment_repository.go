package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/busbuddy-api/internal/models"
	"github.com/noah-isme/busbuddy-api/pkg/timewindow"
)

// AssignmentRepository reads driver/vehicle bookings across activities and activity schedules.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository creates an assignment repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

type assignmentRow struct {
	Source    string           `db:"source"`
	ID        int64            `db:"id"`
	Date      timewindow.Date  `db:"booking_date"`
	Start     timewindow.Clock `db:"window_start"`
	End       timewindow.Clock `db:"window_end"`
	DriverID  *int64           `db:"driver_id"`
	VehicleID *int64           `db:"vehicle_id"`
	Status    string           `db:"status"`
}

// ListAssignmentsOn returns the bookings on date that use vehicleID or driverID.
// A zero id is not matched. With both ids zero nothing is returned.
func (r *AssignmentRepository) ListAssignmentsOn(ctx context.Context, date timewindow.Date, vehicleID, driverID int64) ([]models.Assignment, error) {
	var ors []string
	var idArgs []interface{}
	if vehicleID != 0 {
		ors = append(ors, "vehicle_id = ?")
		idArgs = append(idArgs, vehicleID)
	}
	if driverID != 0 {
		ors = append(ors, "driver_id = ?")
		idArgs = append(idArgs, driverID)
	}
	if len(ors) == 0 {
		return []models.Assignment{}, nil
	}
	match := "(" + strings.Join(ors, " OR ") + ")"

	query := "SELECT 'activity' AS source, id, activity_date AS booking_date, start_time AS window_start, end_time AS window_end, driver_id, vehicle_id, status FROM activities WHERE activity_date = ? AND " + match +
		" UNION ALL " +
		"SELECT 'activity_schedule' AS source, id, scheduled_date AS booking_date, leave_time AS window_start, event_time AS window_end, driver_id, vehicle_id, status FROM activity_schedules WHERE scheduled_date = ? AND " + match +
		" ORDER BY window_start ASC, id ASC"

	args := make([]interface{}, 0, 2+2*len(idArgs))
	args = append(args, date)
	args = append(args, idArgs...)
	args = append(args, date)
	args = append(args, idArgs...)

	var rows []assignmentRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}

	out := make([]models.Assignment, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.Assignment{
			Source:    models.AssignmentSource(row.Source),
			ID:        row.ID,
			Date:      row.Date,
			Window:    timewindow.NewWindow(row.Start, row.End),
			DriverID:  row.DriverID,
			VehicleID: row.VehicleID,
			Status:    row.Status,
		})
	}
	return out, nil
}
