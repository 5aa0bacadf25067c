package models

import "strings"

// Status values shared by drivers, vehicles and assignments. Stored as free text.
const (
	StatusActive    = "Active"
	StatusInactive  = "Inactive"
	StatusScheduled = "Scheduled"
	StatusCompleted = "Completed"
	StatusCancelled = "Cancelled"
)

// StatusIs compares a stored status with an expected value ignoring case and padding.
func StatusIs(actual, expected string) bool {
	return strings.EqualFold(strings.TrimSpace(actual), expected)
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 { return &v }
