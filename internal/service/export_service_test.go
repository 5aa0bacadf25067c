package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/busbuddy-api/internal/models"
	"github.com/noah-isme/busbuddy-api/pkg/storage"
	"github.com/noah-isme/busbuddy-api/pkg/timewindow"
)

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	dir := t.TempDir()
	files, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	svc := NewExportService(files, signer, ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC) }
	return svc, files
}

func sampleReport() *models.IntegrityReport {
	report := &models.IntegrityReport{
		RunID:       "report-1",
		GeneratedAt: time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC),
		RouteIssues: []models.Issue{
			{EntityType: models.EntityRoute, EntityID: "1", IssueType: models.IssueMissingRequiredData, Severity: models.SeverityMedium, Description: "Route 1 has no stops"},
		},
		DriverIssues: []models.Issue{
			{EntityType: models.EntityDriver, EntityID: "7", IssueType: models.IssueLicense, Severity: models.SeverityCritical, Description: "Driver 7 license expired on 2025-07-01"},
		},
		VehicleIssues: []models.Issue{
			{EntityType: models.EntityVehicle, EntityID: "3", IssueType: models.IssueInvalidData, Severity: models.SeverityHigh, Description: "Vehicle 3 has negative mileage"},
		},
	}
	report.Summarize()
	return report
}

func TestSelectIssuesFiltersByEntityAndSeverity(t *testing.T) {
	report := sampleReport()
	high := models.SeverityHigh

	all := SelectIssues(report, models.AuditRunParams{Format: models.ExportFormatCSV})
	assert.Len(t, all, 3)

	severe := SelectIssues(report, models.AuditRunParams{MinSeverity: &high})
	assert.Len(t, severe, 2)

	drivers := SelectIssues(report, models.AuditRunParams{Entity: "drivers", MinSeverity: &high})
	require.Len(t, drivers, 1)
	assert.Equal(t, "7", drivers[0].EntityID)
}

func TestSelectIssuesUsesReportSections(t *testing.T) {
	day := timewindow.NewDate(2025, 8, 2)
	f := newIntegrityFixture()
	f.activities.activities = []models.Activity{
		scheduledActivity(1, day, window(8, 0, 9, 0), models.Int64Ptr(1), nil),
		scheduledActivity(2, day, window(8, 30, 9, 30), models.Int64Ptr(1), nil),
	}
	report := f.service(t).ValidateAll(context.Background())
	require.Len(t, report.CrossEntityIssues, 2)

	cross := SelectIssues(report, models.AuditRunParams{Entity: "cross-entity"})
	require.Len(t, cross, 2)
	for _, issue := range cross {
		assert.Equal(t, models.IssueSchedulingConflict, issue.IssueType)
	}

	activities := SelectIssues(report, models.AuditRunParams{Entity: "activity"})
	assert.Len(t, activities, len(report.ActivityIssues))
	for _, issue := range activities {
		assert.NotEqual(t, models.IssueSchedulingConflict, issue.IssueType)
	}

	high := models.SeverityHigh
	assert.Len(t, SelectIssues(report, models.AuditRunParams{Entity: "crossentity", MinSeverity: &high}), 2)
}

func TestExportServiceRenderFormats(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	report := sampleReport()
	issues := report.AllIssues()

	csvData, ext, err := svc.Render(report, issues, models.ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "csv", ext)
	lines := strings.Split(strings.TrimSpace(string(csvData)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Entity,Entity ID,Issue Type,Severity,Description", strings.TrimSpace(lines[0]))

	jsonData, ext, err := svc.Render(report, issues, models.ExportFormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "json", ext)
	var decoded struct {
		RunID       string         `json:"run_id"`
		TotalIssues int            `json:"total_issues"`
		Issues      []models.Issue `json:"issues"`
	}
	require.NoError(t, json.Unmarshal(jsonData, &decoded))
	assert.Equal(t, "report-1", decoded.RunID)
	assert.Equal(t, 3, decoded.TotalIssues)

	xlsxData, ext, err := svc.Render(report, issues, models.ExportFormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, "xlsx", ext)
	assert.NotEmpty(t, xlsxData)

	pdfData, ext, err := svc.Render(report, issues, models.ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "pdf", ext)
	assert.True(t, strings.HasPrefix(string(pdfData), "%PDF"))
}

func TestExportServiceGenerateStoresAndSigns(t *testing.T) {
	svc, files := newExportServiceForTest(t)
	run := &models.AuditRun{ID: "run-1", Params: models.AuditRunParams{Format: models.ExportFormatCSV}}

	result, err := svc.Generate(context.Background(), run, sampleReport())
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalIssues)
	assert.Equal(t, models.SeverityCritical, result.HighestSeverity)
	assert.Equal(t, "audits/run-1/integrity-20250801-120000.csv", result.RelativePath)
	assert.Equal(t, "/api/v1/integrity/audits/download/"+result.Token, result.URL)

	token, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, "run-1", token.RunID)
	assert.Equal(t, result.RelativePath, token.Path)

	data, err := files.ReadFile(result.RelativePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Driver 7 license expired")
}

func TestExportServiceGenerateEmptyReport(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	run := &models.AuditRun{ID: "run-empty", Params: models.AuditRunParams{Format: models.ExportFormatJSON}}
	report := &models.IntegrityReport{RunID: "r", GeneratedAt: time.Now()}
	report.Summarize()

	result, err := svc.Generate(context.Background(), run, report)
	require.NoError(t, err)
	assert.Zero(t, result.TotalIssues)
	assert.False(t, result.HighestSeverity.Valid())
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json", ContentType(models.ExportFormatJSON))
	assert.Equal(t, "text/csv", ContentType(models.ExportFormatCSV))
	assert.Equal(t, "application/octet-stream", ContentType("docx"))
}
