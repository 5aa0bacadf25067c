package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/busbuddy-api/internal/models"
)

type integrityServiceMock struct {
	report    *models.IntegrityReport
	cached    bool
	refreshed bool
	issues    []models.Issue
	entity    models.EntityType
}

func (m *integrityServiceMock) Report(ctx context.Context, refresh bool) (*models.IntegrityReport, bool) {
	m.refreshed = refresh
	return m.report, m.cached
}

func (m *integrityServiceMock) TypeIssues(ctx context.Context, entity models.EntityType, refresh bool) ([]models.Issue, bool, error) {
	m.entity = entity
	m.refreshed = refresh
	return m.issues, m.cached, nil
}

func (m *integrityServiceMock) ValidateEntity(ctx context.Context, entityType string, entityID int64) []models.Issue {
	return m.issues
}

func mixedIssues() []models.Issue {
	return []models.Issue{
		{EntityType: models.EntityDriver, EntityID: "1", IssueType: models.IssueLicense, Severity: models.SeverityCritical},
		{EntityType: models.EntityDriver, EntityID: "2", IssueType: models.IssueContactInformation, Severity: models.SeverityLow},
	}
}

func TestIntegrityHandlerReportFiltersBySeverity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	report := &models.IntegrityReport{RunID: "r1", DriverIssues: mixedIssues()}
	report.Summarize()
	mockSvc := &integrityServiceMock{report: report, cached: true}
	handler := NewIntegrityHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/integrity/report?min_severity=high&refresh=1", nil)
	handler.Report(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.refreshed)
	var body struct {
		Data models.IntegrityReport `json:"data"`
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Data.TotalIssues)
	assert.Equal(t, true, body.Meta["cached"])
	assert.Equal(t, 2, report.TotalIssues, "cached report must not be mutated")
}

func TestIntegrityHandlerReportRejectsUnknownSeverity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewIntegrityHandler(&integrityServiceMock{report: &models.IntegrityReport{}})

	c, w := newGinContext(http.MethodGet, "/integrity/report?min_severity=urgent", nil)
	handler.Report(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIntegrityHandlerEntityIssues(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &integrityServiceMock{issues: mixedIssues(), cached: true}
	handler := NewIntegrityHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/integrity/drivers?min_severity=critical", nil)
	c.Params = gin.Params{{Key: "entity", Value: "drivers"}}
	handler.EntityIssues(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.EntityDriver, mockSvc.entity)
	assert.False(t, mockSvc.refreshed)
	assert.Contains(t, w.Body.String(), `"total":1`)
	assert.Contains(t, w.Body.String(), `"cached":true`)
}

func TestIntegrityHandlerEntityIssuesUnknownEntity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewIntegrityHandler(&integrityServiceMock{})

	c, w := newGinContext(http.MethodGet, "/integrity/buses", nil)
	c.Params = gin.Params{{Key: "entity", Value: "buses"}}
	handler.EntityIssues(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIntegrityHandlerEntityByID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewIntegrityHandler(&integrityServiceMock{issues: mixedIssues()[:1]})

	c, w := newGinContext(http.MethodGet, "/integrity/driver/1", nil)
	c.Params = gin.Params{{Key: "entity", Value: "driver"}, {Key: "id", Value: "1"}}
	handler.EntityByID(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)

	c, w = newGinContext(http.MethodGet, "/integrity/driver/x", nil)
	c.Params = gin.Params{{Key: "entity", Value: "driver"}, {Key: "id", Value: "x"}}
	handler.EntityByID(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
