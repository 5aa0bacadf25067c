package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/busbuddy-api/internal/models"
	"github.com/noah-isme/busbuddy-api/pkg/config"
	appErrors "github.com/noah-isme/busbuddy-api/pkg/errors"
)

type routeLister interface {
	List(ctx context.Context) ([]models.Route, error)
}

type activityLister interface {
	ListAll(ctx context.Context) ([]models.Activity, error)
}

type studentLister interface {
	List(ctx context.Context) ([]models.Student, error)
}

type driverLister interface {
	List(ctx context.Context) ([]models.Driver, error)
}

type vehicleLister interface {
	List(ctx context.Context) ([]models.Vehicle, error)
}

// IntegrityRepositories bundles the read collaborators of the validator.
type IntegrityRepositories struct {
	Routes     routeLister
	Activities activityLister
	Students   studentLister
	Drivers    driverLister
	Vehicles   vehicleLister
}

// IntegrityService audits every entity collection and reports typed issues. It never writes.
type IntegrityService struct {
	repos   IntegrityRepositories
	cfg     config.IntegrityConfig
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	clock   func() time.Time
}

// NewIntegrityService wires the validator. cache and metrics are optional.
func NewIntegrityService(repos IntegrityRepositories, cfg config.IntegrityConfig, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *IntegrityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntegrityService{repos: repos, cfg: cfg, cache: cache, metrics: metrics, logger: logger, clock: time.Now}
}

// WithClock overrides the time source, used by tests.
func (s *IntegrityService) WithClock(clock func() time.Time) *IntegrityService {
	if clock != nil {
		s.clock = clock
	}
	return s
}

func (s *IntegrityService) ruleContext() ruleContext {
	return newRuleContext(s.clock(), s.cfg)
}

func systemIssue(entity models.EntityType, err error) models.Issue {
	return models.Issue{
		EntityType:  entity,
		EntityID:    models.EntityIDSystem,
		IssueType:   models.IssueValidationError,
		Description: fmt.Sprintf("Error validating %s data: %v", strings.ToLower(string(entity)), err),
		Severity:    models.SeverityCritical,
	}
}

// guard runs one validation pass. A returned error or a panic becomes a single Critical
// system issue appended to whatever the pass collected.
func (s *IntegrityService) guard(entity models.EntityType, pass func(collect *[]models.Issue) error) (issues []models.Issue) {
	start := time.Now()
	failed := false
	defer func() {
		if r := recover(); r != nil {
			failed = true
			s.logger.Error("validation pass panicked", zap.String("entity", string(entity)), zap.Any("panic", r))
			issues = append(issues, systemIssue(entity, fmt.Errorf("unexpected failure: %v", r)))
		}
		if issues == nil {
			issues = []models.Issue{}
		}
		s.metrics.ObserveValidation(entity, time.Since(start), issues, failed)
	}()

	if err := pass(&issues); err != nil {
		failed = true
		s.logger.Warn("validation pass failed", zap.String("entity", string(entity)), zap.Error(err))
		issues = append(issues, systemIssue(entity, err))
	}
	return issues
}

func timed[T any](s *IntegrityService, label string, fetch func() (T, error)) (T, error) {
	start := time.Now()
	out, err := fetch()
	s.metrics.ObserveDBQuery(label, time.Since(start))
	return out, err
}

func (s *IntegrityService) loadRoutes(ctx context.Context) ([]models.Route, error) {
	return timed(s, "integrity.routes", func() ([]models.Route, error) { return s.repos.Routes.List(ctx) })
}

func (s *IntegrityService) loadActivities(ctx context.Context) ([]models.Activity, error) {
	return timed(s, "integrity.activities", func() ([]models.Activity, error) { return s.repos.Activities.ListAll(ctx) })
}

func (s *IntegrityService) loadStudents(ctx context.Context) ([]models.Student, error) {
	return timed(s, "integrity.students", func() ([]models.Student, error) { return s.repos.Students.List(ctx) })
}

func (s *IntegrityService) loadDrivers(ctx context.Context) ([]models.Driver, error) {
	return timed(s, "integrity.drivers", func() ([]models.Driver, error) { return s.repos.Drivers.List(ctx) })
}

func (s *IntegrityService) loadVehicles(ctx context.Context) ([]models.Vehicle, error) {
	return timed(s, "integrity.vehicles", func() ([]models.Vehicle, error) { return s.repos.Vehicles.List(ctx) })
}

// ValidateRoutes checks names, numbers, stops and operating windows.
func (s *IntegrityService) ValidateRoutes(ctx context.Context) []models.Issue {
	return s.guard(models.EntityRoute, func(collect *[]models.Issue) error {
		routes, err := s.loadRoutes(ctx)
		if err != nil {
			return err
		}
		*collect = append(*collect, routeRules(routes)...)
		return nil
	})
}

// ValidateActivities checks activity fields and their driver, vehicle and route references.
func (s *IntegrityService) ValidateActivities(ctx context.Context) []models.Issue {
	return s.guard(models.EntityActivity, func(collect *[]models.Issue) error {
		activities, err := s.loadActivities(ctx)
		if err != nil {
			return err
		}
		drivers, err := s.loadDrivers(ctx)
		if err != nil {
			return err
		}
		vehicles, err := s.loadVehicles(ctx)
		if err != nil {
			return err
		}
		routes, err := s.loadRoutes(ctx)
		if err != nil {
			return err
		}
		*collect = append(*collect, activityRules(activities, drivers, vehicles, routes, s.ruleContext())...)
		return nil
	})
}

// ValidateStudents checks student records, route assignment and contact details.
func (s *IntegrityService) ValidateStudents(ctx context.Context) []models.Issue {
	return s.guard(models.EntityStudent, func(collect *[]models.Issue) error {
		students, err := s.loadStudents(ctx)
		if err != nil {
			return err
		}
		routes, err := s.loadRoutes(ctx)
		if err != nil {
			return err
		}
		*collect = append(*collect, studentRules(students, routes, s.ruleContext())...)
		return nil
	})
}

// ValidateDrivers checks license expiry and contact details.
func (s *IntegrityService) ValidateDrivers(ctx context.Context) []models.Issue {
	return s.guard(models.EntityDriver, func(collect *[]models.Issue) error {
		drivers, err := s.loadDrivers(ctx)
		if err != nil {
			return err
		}
		*collect = append(*collect, driverRules(drivers, s.ruleContext())...)
		return nil
	})
}

// ValidateVehicles checks inspection age and mileage.
func (s *IntegrityService) ValidateVehicles(ctx context.Context) []models.Issue {
	return s.guard(models.EntityVehicle, func(collect *[]models.Issue) error {
		vehicles, err := s.loadVehicles(ctx)
		if err != nil {
			return err
		}
		*collect = append(*collect, vehicleRules(vehicles, s.ruleContext())...)
		return nil
	})
}

// ValidateCrossEntityRelationships reports drivers and vehicles double-booked by scheduled activities.
func (s *IntegrityService) ValidateCrossEntityRelationships(ctx context.Context) []models.Issue {
	return s.guard(models.EntityCrossEntity, func(collect *[]models.Issue) error {
		activities, err := s.loadActivities(ctx)
		if err != nil {
			return err
		}
		*collect = append(*collect, crossEntityRules(activities)...)
		return nil
	})
}

type validationStep struct {
	entity models.EntityType
	run    func(context.Context) []models.Issue
	dest   *[]models.Issue
}

// ValidateAll runs every pass in order and aggregates the results. It always returns a report;
// cancellation or an unexpected failure stops the remaining passes and sets Report.Error.
func (s *IntegrityService) ValidateAll(ctx context.Context) (report *models.IntegrityReport) {
	started := s.clock()
	report = &models.IntegrityReport{RunID: uuid.NewString(), GeneratedAt: started.UTC()}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("integrity run panicked", zap.String("run_id", report.RunID), zap.Any("panic", r))
			report.Error = fmt.Sprintf("validation run failed: %v", r)
		}
		report.Summarize()
		report.Duration = s.clock().Sub(started)
		s.metrics.ObserveIntegrityRun(report)
		s.logger.Info("integrity run finished",
			zap.String("run_id", report.RunID),
			zap.Int("total_issues", report.TotalIssues),
			zap.Duration("duration", report.Duration),
			zap.String("error", report.Error),
		)
	}()

	steps := []validationStep{
		{models.EntityRoute, s.ValidateRoutes, &report.RouteIssues},
		{models.EntityActivity, s.ValidateActivities, &report.ActivityIssues},
		{models.EntityStudent, s.ValidateStudents, &report.StudentIssues},
		{models.EntityDriver, s.ValidateDrivers, &report.DriverIssues},
		{models.EntityVehicle, s.ValidateVehicles, &report.VehicleIssues},
		{models.EntityCrossEntity, s.ValidateCrossEntityRelationships, &report.CrossEntityIssues},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			report.Error = fmt.Sprintf("validation cancelled before %s checks: %v", strings.ToLower(string(step.entity)), err)
			return report
		}
		*step.dest = step.run(ctx)
	}
	return report
}

// Report returns the cached full report unless refresh is set or the cache misses.
// The boolean reports whether the result came from the cache. Runs that failed a
// pass are never cached.
func (s *IntegrityService) Report(ctx context.Context, refresh bool) (*models.IntegrityReport, bool) {
	if !refresh && s.cache.Enabled() {
		var cached models.IntegrityReport
		if hit, err := s.cache.Get(ctx, integrityReportCacheKey, &cached); err == nil && hit {
			return &cached, true
		}
	}

	report := s.ValidateAll(ctx)
	if report.Error == "" && !hasSystemIssue(report.AllIssues()) {
		_ = s.cache.Set(ctx, integrityReportCacheKey, report, s.cfg.CacheTTL)
	}
	return report, false
}

// Invalidate drops cached integrity results after a write.
func (s *IntegrityService) Invalidate(ctx context.Context) {
	_ = s.cache.InvalidateIntegrity(ctx)
}

// TypeIssues is ValidateType behind the cache. Lists carrying a System issue are never cached.
func (s *IntegrityService) TypeIssues(ctx context.Context, entity models.EntityType, refresh bool) ([]models.Issue, bool, error) {
	key := integrityEntityCacheKey(entity)
	if !refresh && s.cache.Enabled() {
		var cached []models.Issue
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, true, nil
		}
	}

	issues, err := s.ValidateType(ctx, entity)
	if err != nil {
		return nil, false, err
	}
	if hasSystemIssue(issues) {
		return issues, false, nil
	}
	_ = s.cache.Set(ctx, key, issues, s.cfg.CacheTTL)
	return issues, false, nil
}

func hasSystemIssue(issues []models.Issue) bool {
	for _, issue := range issues {
		if issue.EntityID == models.EntityIDSystem {
			return true
		}
	}
	return false
}

func integrityEntityCacheKey(entity models.EntityType) string {
	return integrityCachePrefix + "entity:" + strings.ToLower(string(entity))
}

// ParseEntityType resolves singular, plural and hyphenated entity names case-insensitively.
func ParseEntityType(raw string) (models.EntityType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "route", "routes":
		return models.EntityRoute, true
	case "activity", "activities":
		return models.EntityActivity, true
	case "student", "students":
		return models.EntityStudent, true
	case "driver", "drivers":
		return models.EntityDriver, true
	case "vehicle", "vehicles":
		return models.EntityVehicle, true
	case "crossentity", "cross-entity", "cross_entity":
		return models.EntityCrossEntity, true
	default:
		return "", false
	}
}

// ValidateType runs the pass for one entity type.
func (s *IntegrityService) ValidateType(ctx context.Context, entity models.EntityType) ([]models.Issue, error) {
	switch entity {
	case models.EntityRoute:
		return s.ValidateRoutes(ctx), nil
	case models.EntityActivity:
		return s.ValidateActivities(ctx), nil
	case models.EntityStudent:
		return s.ValidateStudents(ctx), nil
	case models.EntityDriver:
		return s.ValidateDrivers(ctx), nil
	case models.EntityVehicle:
		return s.ValidateVehicles(ctx), nil
	case models.EntityCrossEntity:
		return s.ValidateCrossEntityRelationships(ctx), nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown entity type %q", entity))
	}
}

// ValidateEntity re-runs the pass for entityType and keeps the issues about entityID.
// An unknown type yields a single Invalid Request issue.
func (s *IntegrityService) ValidateEntity(ctx context.Context, entityType string, entityID int64) []models.Issue {
	id := strconv.FormatInt(entityID, 10)
	entity, ok := ParseEntityType(entityType)
	if !ok {
		return []models.Issue{{
			EntityType:  models.EntityType(entityType),
			EntityID:    id,
			IssueType:   models.IssueInvalidRequest,
			Description: fmt.Sprintf("Unknown entity type %q", entityType),
			Severity:    models.SeverityMedium,
		}}
	}

	all, _ := s.ValidateType(ctx, entity)
	filtered := make([]models.Issue, 0)
	for _, issue := range all {
		if issue.EntityID == id {
			filtered = append(filtered, issue)
		}
	}
	return filtered
}

// FilterBySeverity keeps issues at or above min.
func FilterBySeverity(issues []models.Issue, min models.Severity) []models.Issue {
	if min <= models.SeverityLow {
		return issues
	}
	out := make([]models.Issue, 0, len(issues))
	for _, issue := range issues {
		if issue.Severity >= min {
			out = append(out, issue)
		}
	}
	return out
}
