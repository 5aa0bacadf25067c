package models

import (
	"time"

	"github.com/noah-isme/busbuddy-api/pkg/timewindow"
)

// ActivitySchedule books a driver and vehicle for a trip window on a given day.
type ActivitySchedule struct {
	ID          int64            `db:"id" json:"id"`
	TripType    string           `db:"trip_type" json:"trip_type"`
	Date        timewindow.Date  `db:"scheduled_date" json:"date"`
	LeaveTime   timewindow.Clock `db:"leave_time" json:"leave_time"`
	EventTime   timewindow.Clock `db:"event_time" json:"event_time"`
	DriverID    *int64           `db:"driver_id" json:"driver_id,omitempty"`
	VehicleID   *int64           `db:"vehicle_id" json:"vehicle_id,omitempty"`
	Destination string           `db:"destination" json:"destination"`
	Status      string           `db:"status" json:"status"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// Window returns [LeaveTime, EventTime).
func (s ActivitySchedule) Window() timewindow.Window {
	return timewindow.NewWindow(s.LeaveTime, s.EventTime)
}

// Assignment projects the schedule onto the shared booking shape.
func (s ActivitySchedule) Assignment() Assignment {
	return Assignment{
		Source:    AssignmentSourceActivitySchedule,
		ID:        s.ID,
		Date:      s.Date,
		Window:    s.Window(),
		DriverID:  s.DriverID,
		VehicleID: s.VehicleID,
		Status:    s.Status,
	}
}

// ActivityScheduleFilter describes query params for listing schedules.
type ActivityScheduleFilter struct {
	Date      *timewindow.Date
	DriverID  *int64
	VehicleID *int64
	Status    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// ScheduleConflict describes an existing booking that collides with a candidate.
type ScheduleConflict struct {
	Source    AssignmentSource  `json:"source"`
	ID        int64             `json:"id"`
	Date      timewindow.Date   `json:"date"`
	Window    timewindow.Window `json:"window"`
	Overlap   timewindow.Window `json:"overlap"`
	DriverID  *int64            `json:"driver_id,omitempty"`
	VehicleID *int64            `json:"vehicle_id,omitempty"`
	Dimension string            `json:"dimension"`
}

// ScheduleConflictError is returned when a schedule collides with an existing one.
type ScheduleConflictError struct {
	Type      string             `json:"type"`
	Message   string             `json:"message"`
	Conflicts []ScheduleConflict `json:"conflicts"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
