package service

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/noah-isme/busbuddy-api/internal/models"
	"github.com/noah-isme/busbuddy-api/pkg/config"
	appErrors "github.com/noah-isme/busbuddy-api/pkg/errors"
)

type memoryCacheRepo struct {
	items  map[string][]byte
	ttls   map[string]time.Duration
	getErr error
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (r *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	if r.getErr != nil {
		return r.getErr
	}
	raw, ok := r.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (r *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.items[key] = raw
	r.ttls[key] = ttl
	return nil
}

func (r *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	for key := range r.items {
		if ok, _ := path.Match(pattern, key); ok {
			delete(r.items, key)
		}
	}
	return nil
}

func TestCacheServiceDisabledIsAlwaysMiss(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, 0, zaptest.NewLogger(t), false)

	require.NoError(t, svc.Set(context.Background(), "k", 1, 0))
	var out int
	hit, err := svc.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Empty(t, repo.items)

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
	assert.NoError(t, nilSvc.InvalidateIntegrity(context.Background()))
}

func TestCacheServiceRecordsHitsAndMisses(t *testing.T) {
	metrics := NewMetricsService()
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, metrics, time.Minute, zaptest.NewLogger(t), true)
	ctx := context.Background()

	var out string
	hit, err := svc.Get(ctx, "integrity:report", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, "integrity:report", "payload", 0))
	assert.Equal(t, time.Minute, repo.ttls["integrity:report"])

	hit, err = svc.Get(ctx, "integrity:report", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "payload", out)

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.CacheHits)
	assert.Equal(t, uint64(1), snap.CacheMisses)
	assert.InDelta(t, 0.5, snap.CacheHitRatio, 0.0001)
}

func TestCacheServiceSurfacesBackendErrors(t *testing.T) {
	repo := newMemoryCacheRepo()
	repo.getErr = errors.New("redis down")
	svc := NewCacheService(repo, nil, 0, zaptest.NewLogger(t), true)

	var out string
	hit, err := svc.Get(context.Background(), "k", &out)
	assert.False(t, hit)
	assert.Error(t, err)
}

func TestIntegrityReportUsesCache(t *testing.T) {
	f := newIntegrityFixture()
	f.routes.routes = []models.Route{{ID: 1, Name: "North", RouteNumber: 5}}
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, 0, zaptest.NewLogger(t), true)
	cfg := config.IntegrityConfig{LicenseWarningDays: 30, InspectionMaxAgeDays: 365, MinGrade: 1, MaxGrade: 12, CacheTTL: 2 * time.Minute}
	svc := NewIntegrityService(IntegrityRepositories{
		Routes: f.routes, Activities: f.activities, Students: f.students, Drivers: f.drivers, Vehicles: f.vehicles,
	}, cfg, cache, nil, zaptest.NewLogger(t)).WithClock(func() time.Time { return integrityNow })
	ctx := context.Background()

	first, cached := svc.Report(ctx, false)
	require.False(t, cached)
	assert.Equal(t, 2*time.Minute, repo.ttls[integrityReportCacheKey])

	// A route fixed after the first run stays hidden until the cache is refreshed.
	f.routes.routes[0].Stops = validStops(1)

	second, cached := svc.Report(ctx, false)
	require.True(t, cached)
	assert.Equal(t, first.RunID, second.RunID)
	assert.Equal(t, first.TotalIssues, second.TotalIssues)

	fresh, cached := svc.Report(ctx, true)
	require.False(t, cached)
	assert.NotEqual(t, first.RunID, fresh.RunID)

	svc.Invalidate(ctx)
	assert.Empty(t, repo.items)
}

func TestIntegrityReportSkipsCachingIncompleteRuns(t *testing.T) {
	f := newIntegrityFixture()
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, zaptest.NewLogger(t), true)
	svc := NewIntegrityService(IntegrityRepositories{
		Routes: f.routes, Activities: f.activities, Students: f.students, Drivers: f.drivers, Vehicles: f.vehicles,
	}, config.IntegrityConfig{}, cache, nil, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, cached := svc.Report(ctx, false)
	require.False(t, cached)
	assert.NotEmpty(t, report.Error)
	assert.Empty(t, repo.items)
}

func TestIntegrityReportDoesNotCacheFailedPasses(t *testing.T) {
	f := newIntegrityFixture()
	f.students.err = errors.New("transient db outage")
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, zaptest.NewLogger(t), true)
	svc := NewIntegrityService(IntegrityRepositories{
		Routes: f.routes, Activities: f.activities, Students: f.students, Drivers: f.drivers, Vehicles: f.vehicles,
	}, config.IntegrityConfig{MinGrade: 1, MaxGrade: 12}, cache, nil, zaptest.NewLogger(t)).
		WithClock(func() time.Time { return integrityNow })
	ctx := context.Background()

	report, cached := svc.Report(ctx, false)
	require.False(t, cached)
	require.Empty(t, report.Error)
	require.Len(t, report.StudentIssues, 1)
	assert.Equal(t, models.EntityIDSystem, report.StudentIssues[0].EntityID)
	assert.Equal(t, models.IssueValidationError, report.StudentIssues[0].IssueType)
	assert.Empty(t, repo.items)

	f.students.err = nil

	recovered, cached := svc.Report(ctx, false)
	require.False(t, cached)
	assert.Empty(t, recovered.StudentIssues)
	assert.Contains(t, repo.items, integrityReportCacheKey)

	again, cached := svc.Report(ctx, false)
	require.True(t, cached)
	assert.Equal(t, recovered.RunID, again.RunID)
}

func TestTypeIssuesCachesCleanPasses(t *testing.T) {
	f := newIntegrityFixture()
	f.vehicles.vehicles = []models.Vehicle{{ID: 1, Number: "B1", Status: "Active", Mileage: -1}}
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, zaptest.NewLogger(t), true)
	svc := NewIntegrityService(IntegrityRepositories{
		Routes: f.routes, Activities: f.activities, Students: f.students, Drivers: f.drivers, Vehicles: f.vehicles,
	}, config.IntegrityConfig{InspectionMaxAgeDays: 365}, cache, nil, zaptest.NewLogger(t)).
		WithClock(func() time.Time { return integrityNow })
	ctx := context.Background()

	issues, cached, err := svc.TypeIssues(ctx, models.EntityVehicle, false)
	require.NoError(t, err)
	require.False(t, cached)
	require.Len(t, issues, 1)
	assert.Contains(t, repo.items, "integrity:entity:vehicle")

	issues, cached, err = svc.TypeIssues(ctx, models.EntityVehicle, false)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Len(t, issues, 1)

	f.students.err = errors.New("students table locked")
	issues, cached, err = svc.TypeIssues(ctx, models.EntityStudent, false)
	require.NoError(t, err)
	assert.False(t, cached)
	require.Len(t, issues, 1)
	assert.Equal(t, models.EntityIDSystem, issues[0].EntityID)
	assert.NotContains(t, repo.items, "integrity:entity:student")

	_, _, err = svc.TypeIssues(ctx, models.EntityType("Bus"), false)
	assert.Error(t, err)
}
