package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Severity ranks an integrity issue. Higher values are more urgent.
type Severity int

const (
	// SeverityLow is informational.
	SeverityLow Severity = iota + 1
	// SeverityMedium should be fixed.
	SeverityMedium
	// SeverityHigh must be fixed soon.
	SeverityHigh
	// SeverityCritical blocks operation.
	SeverityCritical
)

var severityNames = map[Severity]string{
	SeverityLow:      "Low",
	SeverityMedium:   "Medium",
	SeverityHigh:     "High",
	SeverityCritical: "Critical",
}

// Severities lists every severity from lowest to highest.
func Severities() []Severity {
	return []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
}

// ParseSeverity resolves a severity name case-insensitively.
func ParseSeverity(raw string) (Severity, error) {
	for sev, name := range severityNames {
		if strings.EqualFold(strings.TrimSpace(raw), name) {
			return sev, nil
		}
	}
	return 0, fmt.Errorf("unknown severity %q", raw)
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// Valid reports whether s is one of the defined severities.
func (s Severity) Valid() bool {
	_, ok := severityNames[s]
	return ok
}

func (s Severity) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("severity must be a string: %w", err)
	}
	parsed, err := ParseSeverity(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MarshalText lets Severity be used as a JSON map key.
func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value persists the severity by name.
func (s Severity) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, nil
	}
	return s.String(), nil
}

// Scan reads a severity stored by name.
func (s *Severity) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*s = 0
		return nil
	case []byte:
		return s.UnmarshalText(v)
	case string:
		return s.UnmarshalText([]byte(v))
	default:
		return fmt.Errorf("unsupported type %T for Severity", value)
	}
}

// EntityType names the entity collection an issue belongs to.
type EntityType string

const (
	EntityRoute       EntityType = "Route"
	EntityActivity    EntityType = "Activity"
	EntityStudent     EntityType = "Student"
	EntityDriver      EntityType = "Driver"
	EntityVehicle     EntityType = "Vehicle"
	EntityCrossEntity EntityType = "CrossEntity"
)

// IssueType categorises an issue.
type IssueType string

const (
	IssueMissingRequiredData IssueType = "Missing Required Data"
	IssueInvalidData         IssueType = "Invalid Data"
	IssueInvalidTimeRange    IssueType = "Invalid Time Range"
	IssueDuplicateData       IssueType = "Duplicate Data"
	IssueInvalidReference    IssueType = "Invalid Reference"
	IssueInactiveReference   IssueType = "Inactive Reference"
	IssueOutdatedSchedule    IssueType = "Outdated Schedule"
	IssueLicense             IssueType = "License Issue"
	IssueContactInformation  IssueType = "Contact Information"
	IssueMaintenance         IssueType = "Maintenance Issue"
	IssueSchedulingConflict  IssueType = "Scheduling Conflict"
	IssueValidationError     IssueType = "Validation Error"
	IssueInvalidRequest      IssueType = "Invalid Request"
)

// Special EntityID markers.
const (
	EntityIDMultiple = "Multiple"
	EntityIDSystem   = "System"
)

// Issue is a single data-quality or business-rule violation.
type Issue struct {
	EntityType  EntityType `json:"entity_type"`
	EntityID    string     `json:"entity_id"`
	IssueType   IssueType  `json:"issue_type"`
	Description string     `json:"description"`
	Severity    Severity   `json:"severity"`
}

// IntegrityReport aggregates the issue lists of one validation run.
type IntegrityReport struct {
	RunID             string           `json:"run_id"`
	GeneratedAt       time.Time        `json:"generated_at"`
	Duration          time.Duration    `json:"duration_ns"`
	RouteIssues       []Issue          `json:"route_issues"`
	ActivityIssues    []Issue          `json:"activity_issues"`
	StudentIssues     []Issue          `json:"student_issues"`
	DriverIssues      []Issue          `json:"driver_issues"`
	VehicleIssues     []Issue          `json:"vehicle_issues"`
	CrossEntityIssues []Issue          `json:"cross_entity_issues"`
	TotalIssues       int              `json:"total_issues"`
	SeverityCounts    map[Severity]int `json:"severity_counts"`
	Error             string           `json:"error,omitempty"`
}

// AllIssues flattens the per-entity lists in report order.
func (r *IntegrityReport) AllIssues() []Issue {
	if r == nil {
		return nil
	}
	all := make([]Issue, 0, r.TotalIssues)
	all = append(all, r.RouteIssues...)
	all = append(all, r.ActivityIssues...)
	all = append(all, r.StudentIssues...)
	all = append(all, r.DriverIssues...)
	all = append(all, r.VehicleIssues...)
	all = append(all, r.CrossEntityIssues...)
	return all
}

// Summarize recomputes TotalIssues and SeverityCounts from the lists.
func (r *IntegrityReport) Summarize() {
	if r == nil {
		return
	}
	counts := make(map[Severity]int, len(severityNames))
	all := r.AllIssues()
	for _, issue := range all {
		counts[issue.Severity]++
	}
	r.TotalIssues = len(all)
	r.SeverityCounts = counts
}

// HighestSeverity returns the most urgent severity in the report, or 0 when empty.
func (r *IntegrityReport) HighestSeverity() Severity {
	var highest Severity
	for _, issue := range r.AllIssues() {
		if issue.Severity > highest {
			highest = issue.Severity
		}
	}
	return highest
}
