package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/busbuddy-api/internal/models"
	"github.com/noah-isme/busbuddy-api/pkg/timewindow"
)

var scheduleRowColumns = []string{"id", "trip_type", "scheduled_date", "leave_time", "event_time", "driver_id", "vehicle_id", "destination", "status", "created_at", "updated_at"}

func TestActivityScheduleRepositoryListAppliesFilters(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewActivityScheduleRepository(db)

	date := timewindow.NewDate(2025, 5, 1)
	driverID := int64(3)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM activity_schedules WHERE 1=1 AND scheduled_date = $1 AND driver_id = $2 AND LOWER(status) = $3 ORDER BY leave_time DESC, id ASC LIMIT 10 OFFSET 10")).
		WithArgs("2025-05-01", int64(3), "scheduled").
		WillReturnRows(sqlmock.NewRows(scheduleRowColumns).
			AddRow(5, "Field Trip", "2025-05-01", "09:00:00", "12:00:00", 3, 8, "Museum", "Scheduled", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM activity_schedules WHERE 1=1 AND scheduled_date = $1")).
		WithArgs("2025-05-01", int64(3), "scheduled").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	items, total, err := repo.List(context.Background(), models.ActivityScheduleFilter{
		Date:      &date,
		DriverID:  &driverID,
		Status:    "Scheduled",
		Page:      2,
		PageSize:  10,
		SortBy:    "leave_time",
		SortOrder: "desc",
	})
	require.NoError(t, err)
	assert.Equal(t, 11, total)
	require.Len(t, items, 1)
	assert.Equal(t, "Museum", items[0].Destination)
	assert.Equal(t, timewindow.MustClock(9, 0), items[0].LeaveTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityScheduleRepositoryListRejectsUnknownSort(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewActivityScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY scheduled_date ASC, id ASC LIMIT 20 OFFSET 0")).
		WillReturnRows(sqlmock.NewRows(scheduleRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, _, err := repo.List(context.Background(), models.ActivityScheduleFilter{SortBy: "destination; DROP TABLE x"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityScheduleRepositoryCreateDefaultsStatus(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewActivityScheduleRepository(db)

	vehicleID := int64(8)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO activity_schedules")).
		WithArgs("Sports", "2025-05-02", "15:00:00", "18:30:00", nil, int64(8), "Stadium", models.StatusScheduled, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(21))

	sched := &models.ActivitySchedule{
		TripType:    "Sports",
		Date:        timewindow.NewDate(2025, 5, 2),
		LeaveTime:   timewindow.MustClock(15, 0),
		EventTime:   timewindow.MustClock(18, 30),
		VehicleID:   &vehicleID,
		Destination: "Stadium",
	}
	require.NoError(t, repo.Create(context.Background(), sched))
	assert.Equal(t, int64(21), sched.ID)
	assert.Equal(t, models.StatusScheduled, sched.Status)
	assert.False(t, sched.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityScheduleRepositoryBulkCreateRollsBack(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewActivityScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO activity_schedules").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery("INSERT INTO activity_schedules").WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := repo.BulkCreate(context.Background(), []models.ActivitySchedule{
		{TripType: "A", Date: timewindow.NewDate(2025, 5, 2), LeaveTime: timewindow.MustClock(8, 0), EventTime: timewindow.MustClock(9, 0)},
		{TripType: "B", Date: timewindow.NewDate(2025, 5, 2), LeaveTime: timewindow.MustClock(10, 0), EventTime: timewindow.MustClock(11, 0)},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityScheduleRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewActivityScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM activity_schedules WHERE id = $1")).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), 4))
	assert.NoError(t, mock.ExpectationsWereMet())
}
