package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ExportFormat enumerates supported audit export formats.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatPDF  ExportFormat = "pdf"
	ExportFormatXLSX ExportFormat = "xlsx"
	ExportFormatJSON ExportFormat = "json"
)

// AuditStatus captures background audit lifecycle states.
type AuditStatus string

const (
	AuditStatusQueued     AuditStatus = "QUEUED"
	AuditStatusProcessing AuditStatus = "PROCESSING"
	AuditStatusFinished   AuditStatus = "FINISHED"
	AuditStatusFailed     AuditStatus = "FAILED"
)

// AuditRun is a persisted asynchronous integrity sweep.
type AuditRun struct {
	ID              string         `db:"id" json:"id"`
	Params          AuditRunParams `db:"params" json:"params"`
	Status          AuditStatus    `db:"status" json:"status"`
	Progress        int            `db:"progress" json:"progress"`
	TotalIssues     int            `db:"total_issues" json:"total_issues"`
	HighestSeverity *Severity      `db:"highest_severity" json:"highest_severity,omitempty"`
	ResultURL       *string        `db:"result_url" json:"result_url,omitempty"`
	CreatedBy       string         `db:"created_by" json:"created_by"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	FinishedAt      *time.Time     `db:"finished_at" json:"finished_at,omitempty"`
	ErrorMessage    *string        `db:"error_message" json:"error_message,omitempty"`
}

// AuditRunParams stores request options persisted as a JSON column.
type AuditRunParams struct {
	Format      ExportFormat `json:"format"`
	MinSeverity *Severity    `json:"min_severity,omitempty"`
	Entity      string       `json:"entity,omitempty"`
}

// Value marshals params to JSON for persistence.
func (p AuditRunParams) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal audit run params: %w", err)
	}
	return string(data), nil
}

// Scan unmarshals JSON payloads into the params struct.
func (p *AuditRunParams) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*p = AuditRunParams{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for AuditRunParams", value)
	}
	if len(data) == 0 {
		*p = AuditRunParams{}
		return nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("unmarshal audit run params: %w", err)
	}
	return nil
}

// AuditRunUpdate carries the mutable columns of an audit run.
type AuditRunUpdate struct {
	ID              string
	Status          AuditStatus
	Progress        int
	TotalIssues     *int
	HighestSeverity *Severity
	ResultURL       *string
	ErrorMessage    *string
	FinishedAt      *time.Time
}
