package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/busbuddy-api/internal/models"
	"github.com/noah-isme/busbuddy-api/internal/service"
	appErrors "github.com/noah-isme/busbuddy-api/pkg/errors"
	"github.com/noah-isme/busbuddy-api/pkg/response"
)

type integrityService interface {
	Report(ctx context.Context, refresh bool) (*models.IntegrityReport, bool)
	TypeIssues(ctx context.Context, entity models.EntityType, refresh bool) ([]models.Issue, bool, error)
	ValidateEntity(ctx context.Context, entityType string, entityID int64) []models.Issue
}

// IntegrityHandler exposes data integrity reports.
type IntegrityHandler struct {
	service integrityService
}

// NewIntegrityHandler constructs an IntegrityHandler.
func NewIntegrityHandler(service integrityService) *IntegrityHandler {
	return &IntegrityHandler{service: service}
}

// Report godoc
// @Summary Full integrity report
// @Tags Integrity
// @Produce json
// @Param refresh query bool false "Bypass the cached report"
// @Param min_severity query string false "Low, Medium, High or Critical"
// @Success 200 {object} response.Envelope
// @Router /integrity/report [get]
func (h *IntegrityHandler) Report(c *gin.Context) {
	minSeverity, err := severityQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, cached := h.service.Report(c.Request.Context(), refreshQuery(c))
	if minSeverity != 0 {
		filtered := *report
		filtered.RouteIssues = service.FilterBySeverity(report.RouteIssues, minSeverity)
		filtered.ActivityIssues = service.FilterBySeverity(report.ActivityIssues, minSeverity)
		filtered.StudentIssues = service.FilterBySeverity(report.StudentIssues, minSeverity)
		filtered.DriverIssues = service.FilterBySeverity(report.DriverIssues, minSeverity)
		filtered.VehicleIssues = service.FilterBySeverity(report.VehicleIssues, minSeverity)
		filtered.CrossEntityIssues = service.FilterBySeverity(report.CrossEntityIssues, minSeverity)
		filtered.Summarize()
		report = &filtered
	}
	response.JSON(c, http.StatusOK, report, nil, map[string]interface{}{"cached": cached})
}

// EntityIssues godoc
// @Summary Issues for one entity type
// @Tags Integrity
// @Produce json
// @Param entity path string true "routes, activities, students, drivers, vehicles or cross-entity"
// @Param refresh query bool false "Bypass the cached issue list"
// @Param min_severity query string false "Low, Medium, High or Critical"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /integrity/{entity} [get]
func (h *IntegrityHandler) EntityIssues(c *gin.Context) {
	entity, ok := service.ParseEntityType(c.Param("entity"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown entity type %q", c.Param("entity"))))
		return
	}
	minSeverity, err := severityQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	issues, cached, err := h.service.TypeIssues(c.Request.Context(), entity, refreshQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if minSeverity != 0 {
		issues = service.FilterBySeverity(issues, minSeverity)
	}
	response.JSON(c, http.StatusOK, issues, nil, map[string]interface{}{"entity": entity, "total": len(issues), "cached": cached})
}

// EntityByID godoc
// @Summary Validate a single entity
// @Tags Integrity
// @Produce json
// @Param entity path string true "Entity type"
// @Param id path int true "Entity ID"
// @Success 200 {object} response.Envelope
// @Router /integrity/{entity}/{id} [get]
func (h *IntegrityHandler) EntityByID(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	issues := h.service.ValidateEntity(c.Request.Context(), c.Param("entity"), id)
	response.JSON(c, http.StatusOK, issues, nil, map[string]interface{}{"total": len(issues)})
}

func severityQuery(c *gin.Context) (models.Severity, error) {
	raw := strings.TrimSpace(c.Query("min_severity"))
	if raw == "" {
		return 0, nil
	}
	sev, err := models.ParseSeverity(raw)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	return sev, nil
}

func refreshQuery(c *gin.Context) bool {
	raw := c.Query("refresh")
	return raw == "1" || strings.EqualFold(raw, "true")
}
