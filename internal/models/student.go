package models

import "time"

// Student is a rider assigned to a route and pickup stop.
type Student struct {
	ID               int64     `db:"id" json:"id"`
	FirstName        string    `db:"first_name" json:"first_name"`
	LastName         string    `db:"last_name" json:"last_name"`
	StudentNumber    string    `db:"student_number" json:"student_number"`
	GradeLevel       int       `db:"grade_level" json:"grade_level"`
	RouteID          *int64    `db:"route_id" json:"route_id,omitempty"`
	PickupStopID     *int64    `db:"pickup_stop_id" json:"pickup_stop_id,omitempty"`
	ParentPhone      string    `db:"parent_phone" json:"parent_phone"`
	EmergencyContact string    `db:"emergency_contact" json:"emergency_contact"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name.
func (s Student) FullName() string {
	switch {
	case s.FirstName == "":
		return s.LastName
	case s.LastName == "":
		return s.FirstName
	default:
		return s.FirstName + " " + s.LastName
	}
}
