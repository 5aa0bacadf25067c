package models

import (
	"time"

	"github.com/noah-isme/busbuddy-api/pkg/timewindow"
)

// Driver is a bus driver.
type Driver struct {
	ID                int64            `db:"id" json:"id"`
	Name              string           `db:"name" json:"name"`
	Status            string           `db:"status" json:"status"`
	LicenseExpiryDate *timewindow.Date `db:"license_expiry_date" json:"license_expiry_date,omitempty"`
	PhoneNumber       string           `db:"phone_number" json:"phone_number"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time        `db:"updated_at" json:"updated_at"`
}

// IsActive reports whether the driver can be assigned.
func (d Driver) IsActive() bool {
	return StatusIs(d.Status, StatusActive)
}
