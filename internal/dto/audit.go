package dto

import "github.com/noah-isme/busbuddy-api/internal/models"

// AuditRequest captures POST /integrity/audits payload.
type AuditRequest struct {
	Format      models.ExportFormat `json:"format" validate:"required,oneof=csv pdf xlsx json"`
	MinSeverity string              `json:"min_severity,omitempty" validate:"omitempty,oneof=Low Medium High Critical low medium high critical"`
	Entity      string              `json:"entity,omitempty"`
}

// AuditRunResponse is returned after enqueueing an audit.
type AuditRunResponse struct {
	ID       string             `json:"id"`
	Status   models.AuditStatus `json:"status"`
	Progress int                `json:"progress"`
}

// AuditStatusResponse exposes run progress metadata.
type AuditStatusResponse struct {
	ID              string              `json:"id"`
	Status          models.AuditStatus  `json:"status"`
	Progress        int                 `json:"progress"`
	Format          models.ExportFormat `json:"format"`
	TotalIssues     int                 `json:"total_issues"`
	HighestSeverity *models.Severity    `json:"highest_severity,omitempty"`
	ResultURL       *string             `json:"result_url,omitempty"`
	Error           *string             `json:"error,omitempty"`
}
