package models

import (
	"time"

	"github.com/noah-isme/busbuddy-api/pkg/timewindow"
)

// Activity is an activity trip (field trip, sports event) that books a driver, vehicle and optionally a route.
type Activity struct {
	ID           int64            `db:"id" json:"id"`
	ActivityType string           `db:"activity_type" json:"activity_type"`
	Date         timewindow.Date  `db:"activity_date" json:"date"`
	StartTime    timewindow.Clock `db:"start_time" json:"start_time"`
	EndTime      timewindow.Clock `db:"end_time" json:"end_time"`
	DriverID     *int64           `db:"driver_id" json:"driver_id,omitempty"`
	VehicleID    *int64           `db:"vehicle_id" json:"vehicle_id,omitempty"`
	RouteID      *int64           `db:"route_id" json:"route_id,omitempty"`
	Destination  string           `db:"destination" json:"destination"`
	Status       string           `db:"status" json:"status"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// Window returns [StartTime, EndTime).
func (a Activity) Window() timewindow.Window {
	return timewindow.NewWindow(a.StartTime, a.EndTime)
}

// IsScheduled reports whether the activity is still pending.
func (a Activity) IsScheduled() bool {
	return StatusIs(a.Status, StatusScheduled)
}

// Assignment projects the activity onto the shared booking shape.
func (a Activity) Assignment() Assignment {
	return Assignment{
		Source:    AssignmentSourceActivity,
		ID:        a.ID,
		Date:      a.Date,
		Window:    a.Window(),
		DriverID:  a.DriverID,
		VehicleID: a.VehicleID,
		Status:    a.Status,
	}
}

// ActivityFilter narrows activity listings.
type ActivityFilter struct {
	From   *timewindow.Date
	To     *timewindow.Date
	Status string
}
