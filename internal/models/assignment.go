package models

import "github.com/noah-isme/busbuddy-api/pkg/timewindow"

// AssignmentSource names the table an assignment was projected from.
type AssignmentSource string

const (
	AssignmentSourceActivity         AssignmentSource = "activity"
	AssignmentSourceActivitySchedule AssignmentSource = "activity_schedule"
)

// Assignment is the shape shared by every record that books a driver and/or vehicle for a window on a day.
type Assignment struct {
	Source    AssignmentSource  `json:"source"`
	ID        int64             `json:"id"`
	Date      timewindow.Date   `json:"date"`
	Window    timewindow.Window `json:"window"`
	DriverID  *int64            `json:"driver_id,omitempty"`
	VehicleID *int64            `json:"vehicle_id,omitempty"`
	Status    string            `json:"status"`
}
