package models

import (
	"time"

	"github.com/noah-isme/busbuddy-api/pkg/timewindow"
)

// Vehicle is a bus in the fleet.
type Vehicle struct {
	ID                 int64            `db:"id" json:"id"`
	Number             string           `db:"vehicle_number" json:"number"`
	Status             string           `db:"status" json:"status"`
	LastInspectionDate *timewindow.Date `db:"last_inspection_date" json:"last_inspection_date,omitempty"`
	Mileage            int              `db:"mileage" json:"mileage"`
	CreatedAt          time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time        `db:"updated_at" json:"updated_at"`
}

// IsActive reports whether the vehicle can be assigned.
func (v Vehicle) IsActive() bool {
	return StatusIs(v.Status, StatusActive)
}
