package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/noah-isme/busbuddy-api/internal/models"
	"github.com/noah-isme/busbuddy-api/pkg/timewindow"
)

type activityScheduleRepoStub struct {
	items   map[int64]*models.ActivitySchedule
	nextID  int64
	bulk    []models.ActivitySchedule
	deleted []int64
	listErr error
}

func newActivityScheduleRepoStub() *activityScheduleRepoStub {
	return &activityScheduleRepoStub{items: map[int64]*models.ActivitySchedule{}, nextID: 100}
}

func (r *activityScheduleRepoStub) List(ctx context.Context, filter models.ActivityScheduleFilter) ([]models.ActivitySchedule, int, error) {
	if r.listErr != nil {
		return nil, 0, r.listErr
	}
	var out []models.ActivitySchedule
	for _, item := range r.items {
		if filter.Date != nil && !item.Date.Equal(*filter.Date) {
			continue
		}
		out = append(out, *item)
	}
	return out, len(out), nil
}

func (r *activityScheduleRepoStub) FindByID(ctx context.Context, id int64) (*models.ActivitySchedule, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *item
	return &copied, nil
}

func (r *activityScheduleRepoStub) Create(ctx context.Context, schedule *models.ActivitySchedule) error {
	r.nextID++
	schedule.ID = r.nextID
	copied := *schedule
	r.items[schedule.ID] = &copied
	return nil
}

func (r *activityScheduleRepoStub) BulkCreate(ctx context.Context, schedules []models.ActivitySchedule) error {
	for i := range schedules {
		if err := r.Create(ctx, &schedules[i]); err != nil {
			return err
		}
	}
	r.bulk = append(r.bulk, schedules...)
	return nil
}

func (r *activityScheduleRepoStub) Update(ctx context.Context, schedule *models.ActivitySchedule) error {
	copied := *schedule
	r.items[schedule.ID] = &copied
	return nil
}

func (r *activityScheduleRepoStub) Delete(ctx context.Context, id int64) error {
	delete(r.items, id)
	r.deleted = append(r.deleted, id)
	return nil
}

// storedAssignments exposes the stub's schedules to the conflict finder.
type storedAssignments struct {
	repo  *activityScheduleRepoStub
	extra []models.Assignment
}

func (s storedAssignments) ListAssignmentsOn(ctx context.Context, date timewindow.Date, vehicleID, driverID int64) ([]models.Assignment, error) {
	out := append([]models.Assignment(nil), s.extra...)
	for _, item := range s.repo.items {
		out = append(out, item.Assignment())
	}
	return out, nil
}

func newActivityScheduleServiceForTest(t *testing.T, extra ...models.Assignment) (*ActivityScheduleService, *activityScheduleRepoStub) {
	t.Helper()
	repo := newActivityScheduleRepoStub()
	conflicts := NewConflictService(storedAssignments{repo: repo, extra: extra}, zaptest.NewLogger(t))
	return NewActivityScheduleService(repo, conflicts, nil, nil, zaptest.NewLogger(t)), repo
}

func scheduleRequest(date, leave, event string, vehicleID, driverID *int64) ActivityScheduleRequest {
	return ActivityScheduleRequest{
		TripType:    "Field Trip",
		Date:        date,
		LeaveTime:   leave,
		EventTime:   event,
		VehicleID:   vehicleID,
		DriverID:    driverID,
		Destination: "Science Museum",
	}
}

func TestActivityScheduleServiceCreate(t *testing.T) {
	svc, repo := newActivityScheduleServiceForTest(t)

	created, err := svc.Create(context.Background(), scheduleRequest("2025-08-02", "08:00", "10:30", models.Int64Ptr(10), models.Int64Ptr(20)))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, models.StatusScheduled, created.Status)
	assert.Equal(t, timewindow.NewDate(2025, 8, 2), created.Date)
	assert.Equal(t, timewindow.MustClock(10, 30), created.EventTime)
	assert.Contains(t, repo.items, created.ID)
}

func TestActivityScheduleServiceCreateRejectsBadInput(t *testing.T) {
	svc, repo := newActivityScheduleServiceForTest(t)
	ctx := context.Background()

	cases := map[string]ActivityScheduleRequest{
		"missing trip type": {Date: "2025-08-02", LeaveTime: "08:00", EventTime: "09:00"},
		"bad date":          scheduleRequest("02/08/2025", "08:00", "09:00", nil, nil),
		"bad clock":         scheduleRequest("2025-08-02", "8am", "09:00", nil, nil),
		"reversed window":   scheduleRequest("2025-08-02", "10:00", "09:00", nil, nil),
		"empty window":      scheduleRequest("2025-08-02", "09:00", "09:00", nil, nil),
		"non-positive id":   scheduleRequest("2025-08-02", "08:00", "09:00", models.Int64Ptr(0), nil),
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, req)
			requireAppErrorStatus(t, err, http.StatusBadRequest)
		})
	}
	assert.Empty(t, repo.items)
}

func TestActivityScheduleServiceCreateConflict(t *testing.T) {
	day := timewindow.NewDate(2025, 8, 2)
	existing := booking(7, day, window(9, 0, 11, 0), models.Int64Ptr(10), nil)
	svc, repo := newActivityScheduleServiceForTest(t, existing)

	_, err := svc.Create(context.Background(), scheduleRequest("2025-08-02", "10:00", "12:00", models.Int64Ptr(10), models.Int64Ptr(99)))
	requireAppErrorStatus(t, err, http.StatusConflict)

	var domainErr *models.ScheduleConflictError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, ConflictDimensionVehicle, domainErr.Type)
	require.Len(t, domainErr.Conflicts, 1)
	assert.Equal(t, int64(7), domainErr.Conflicts[0].ID)
	assert.Equal(t, window(10, 0, 11, 0), domainErr.Conflicts[0].Overlap)
	assert.Empty(t, repo.items)

	_, err = svc.Create(context.Background(), scheduleRequest("2025-08-02", "11:00", "12:00", models.Int64Ptr(10), nil))
	require.NoError(t, err)
}

func TestActivityScheduleServiceUpdateIgnoresItself(t *testing.T) {
	svc, repo := newActivityScheduleServiceForTest(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, scheduleRequest("2025-08-02", "08:00", "10:00", models.Int64Ptr(10), nil))
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, scheduleRequest("2025-08-02", "09:00", "11:00", models.Int64Ptr(10), nil))
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, timewindow.MustClock(9, 0), repo.items[created.ID].LeaveTime)

	_, err = svc.Update(ctx, 999, scheduleRequest("2025-08-02", "09:00", "11:00", nil, nil))
	requireAppErrorStatus(t, err, http.StatusNotFound)
}

func TestActivityScheduleServiceUpdateConflictWithOther(t *testing.T) {
	svc, _ := newActivityScheduleServiceForTest(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, scheduleRequest("2025-08-02", "08:00", "10:00", nil, models.Int64Ptr(20)))
	require.NoError(t, err)
	second, err := svc.Create(ctx, scheduleRequest("2025-08-02", "10:00", "12:00", nil, models.Int64Ptr(20)))
	require.NoError(t, err)

	_, err = svc.Update(ctx, second.ID, scheduleRequest("2025-08-02", "09:30", "12:00", nil, models.Int64Ptr(20)))
	requireAppErrorStatus(t, err, http.StatusConflict)
}

func TestActivityScheduleServiceDelete(t *testing.T) {
	svc, repo := newActivityScheduleServiceForTest(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, scheduleRequest("2025-08-02", "08:00", "10:00", nil, nil))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	assert.Equal(t, []int64{created.ID}, repo.deleted)
	requireAppErrorStatus(t, svc.Delete(ctx, created.ID), http.StatusNotFound)
}

func TestActivityScheduleServiceList(t *testing.T) {
	svc, repo := newActivityScheduleServiceForTest(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, scheduleRequest("2025-08-02", "08:00", "10:00", nil, nil))
	require.NoError(t, err)
	_, err = svc.Create(ctx, scheduleRequest("2025-08-03", "08:00", "10:00", nil, nil))
	require.NoError(t, err)

	day := timewindow.NewDate(2025, 8, 2)
	items, pagination, err := svc.List(ctx, models.ActivityScheduleFilter{Date: &day})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 1, pagination.TotalCount)

	repo.listErr = errors.New("db down")
	_, _, err = svc.List(ctx, models.ActivityScheduleFilter{})
	requireAppErrorStatus(t, err, http.StatusInternalServerError)
}

func TestActivityScheduleServiceBulkCreateDetectsIntraBatchConflicts(t *testing.T) {
	svc, repo := newActivityScheduleServiceForTest(t)
	req := BulkCreateActivitySchedulesRequest{
		Items: []ActivityScheduleRequest{
			scheduleRequest("2025-08-02", "08:00", "10:00", models.Int64Ptr(10), nil),
			scheduleRequest("2025-08-02", "09:00", "11:00", models.Int64Ptr(10), nil),
			scheduleRequest("2025-08-02", "10:00", "11:00", models.Int64Ptr(10), nil),
		},
	}

	_, err := svc.BulkCreate(context.Background(), req)
	requireAppErrorStatus(t, err, http.StatusConflict)
	assert.Empty(t, repo.items)

	req.PartialOnError = true
	result, err := svc.BulkCreate(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Created, 2)
	assert.NotZero(t, result.Created[0].ID)
	assert.Equal(t, timewindow.MustClock(10, 0), result.Created[1].LeaveTime)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, int64(-1), result.Conflicts[0].ID)
	assert.Len(t, repo.items, 2)
}

func TestActivityScheduleServiceBulkCreateValidation(t *testing.T) {
	svc, _ := newActivityScheduleServiceForTest(t)

	_, err := svc.BulkCreate(context.Background(), BulkCreateActivitySchedulesRequest{})
	requireAppErrorStatus(t, err, http.StatusBadRequest)

	_, err = svc.BulkCreate(context.Background(), BulkCreateActivitySchedulesRequest{
		Items: []ActivityScheduleRequest{scheduleRequest("2025-08-02", "12:00", "08:00", nil, nil)},
	})
	requireAppErrorStatus(t, err, http.StatusBadRequest)
}
