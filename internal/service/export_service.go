package service

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/busbuddy-api/internal/models"
	"github.com/noah-isme/busbuddy-api/pkg/export"
	"github.com/noah-isme/busbuddy-api/pkg/storage"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	ReadFile(filename string) ([]byte, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

var issueHeaders = []string{"Entity", "Entity ID", "Issue Type", "Severity", "Description"}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath    string
	Token           string
	URL             string
	Format          models.ExportFormat
	TotalIssues     int
	HighestSeverity models.Severity
	ExpiresAt       time.Time
}

// ExportService renders integrity reports and persists the files behind signed URLs.
type ExportService struct {
	storage fileStorage
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{storage: files, signer: signer, logger: logger, cfg: cfg, now: time.Now}
}

// SelectIssues applies the run parameters to a report. The entity filter picks
// a report section, so cross-entity conflicts are selected on their own.
func SelectIssues(report *models.IntegrityReport, params models.AuditRunParams) []models.Issue {
	issues := report.AllIssues()
	if params.Entity != "" {
		if entity, ok := ParseEntityType(params.Entity); ok {
			issues = append([]models.Issue(nil), reportSection(report, entity)...)
		}
	}
	if params.MinSeverity != nil {
		issues = FilterBySeverity(issues, *params.MinSeverity)
	}
	return issues
}

func reportSection(report *models.IntegrityReport, entity models.EntityType) []models.Issue {
	if report == nil {
		return nil
	}
	switch entity {
	case models.EntityRoute:
		return report.RouteIssues
	case models.EntityActivity:
		return report.ActivityIssues
	case models.EntityStudent:
		return report.StudentIssues
	case models.EntityDriver:
		return report.DriverIssues
	case models.EntityVehicle:
		return report.VehicleIssues
	case models.EntityCrossEntity:
		return report.CrossEntityIssues
	}
	return nil
}

// IssuesDataset turns issues into tabular export content.
func IssuesDataset(issues []models.Issue) export.Dataset {
	rows := make([]map[string]string, 0, len(issues))
	for _, issue := range issues {
		rows = append(rows, map[string]string{
			"Entity":      string(issue.EntityType),
			"Entity ID":   issue.EntityID,
			"Issue Type":  string(issue.IssueType),
			"Severity":    issue.Severity.String(),
			"Description": issue.Description,
		})
	}
	return export.Dataset{Headers: issueHeaders, Rows: rows}
}

// Render encodes issues in the requested format.
func (s *ExportService) Render(report *models.IntegrityReport, issues []models.Issue, format models.ExportFormat) ([]byte, string, error) {
	if format == models.ExportFormatJSON {
		payload := struct {
			RunID       string         `json:"run_id"`
			GeneratedAt time.Time      `json:"generated_at"`
			TotalIssues int            `json:"total_issues"`
			Issues      []models.Issue `json:"issues"`
		}{RunID: report.RunID, GeneratedAt: report.GeneratedAt, TotalIssues: len(issues), Issues: issues}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return nil, "", fmt.Errorf("encode json export: %w", err)
		}
		return data, "json", nil
	}

	renderer, err := export.ForFormat(string(format))
	if err != nil {
		return nil, "", err
	}
	title := fmt.Sprintf("Integrity audit %s", report.GeneratedAt.UTC().Format(time.RFC3339))
	data, err := renderer.Render(IssuesDataset(issues), title)
	if err != nil {
		return nil, "", fmt.Errorf("render %s export: %w", format, err)
	}
	return data, renderer.Extension(), nil
}

// Generate renders the run's view of report, stores it and signs a download URL.
func (s *ExportService) Generate(ctx context.Context, run *models.AuditRun, report *models.IntegrityReport) (*ExportResult, error) {
	if run == nil || report == nil {
		return nil, fmt.Errorf("run and report required")
	}
	issues := SelectIssues(report, run.Params)
	data, ext, err := s.Render(report, issues, run.Params.Format)
	if err != nil {
		return nil, err
	}

	filename := path.Join("audits", run.ID, fmt.Sprintf("integrity-%s.%s", s.now().UTC().Format("20060102-150405"), ext))
	relPath, err := s.storage.Save(filename, data)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(run.ID, relPath)
	if err != nil {
		return nil, err
	}

	var highest models.Severity
	for _, issue := range issues {
		if issue.Severity > highest {
			highest = issue.Severity
		}
	}

	return &ExportResult{
		RelativePath:    relPath,
		Token:           token,
		URL:             s.DownloadURL(token),
		Format:          run.Params.Format,
		TotalIssues:     len(issues),
		HighestSeverity: highest,
		ExpiresAt:       expiresAt,
	}, nil
}

// DownloadURL builds the API path serving token.
func (s *ExportService) DownloadURL(token string) string {
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return fmt.Sprintf("%s/integrity/audits/download/%s", prefix, token)
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (storage.DownloadToken, error) {
	return s.signer.Parse(token, allowExpired)
}

// Read loads a stored export.
func (s *ExportService) Read(relPath string) ([]byte, error) {
	return s.storage.ReadFile(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than the configured TTL.
func (s *ExportService) Cleanup() ([]string, error) {
	return s.storage.CleanupOlderThan(s.cfg.ResultTTL)
}

// ContentType maps an export format to its MIME type.
func ContentType(format models.ExportFormat) string {
	if format == models.ExportFormatJSON {
		return "application/json"
	}
	renderer, err := export.ForFormat(string(format))
	if err != nil {
		return "application/octet-stream"
	}
	return renderer.ContentType()
}
