package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/busbuddy-api/internal/models"
	appErrors "github.com/noah-isme/busbuddy-api/pkg/errors"
	"github.com/noah-isme/busbuddy-api/pkg/timewindow"
)

type assignmentFinder interface {
	ListAssignmentsOn(ctx context.Context, date timewindow.Date, vehicleID, driverID int64) ([]models.Assignment, error)
}

// Conflict dimensions.
const (
	ConflictDimensionVehicle = "VEHICLE"
	ConflictDimensionDriver  = "DRIVER"
)

// Candidate is a proposed booking checked against existing assignments.
// A zero VehicleID or DriverID means the resource is not part of the booking.
type Candidate struct {
	VehicleID    int64
	DriverID     int64
	Date         timewindow.Date
	Window       timewindow.Window
	IgnoreID     int64
	IgnoreSource models.AssignmentSource
}

func (c Candidate) ignores(a models.Assignment) bool {
	if c.IgnoreID == 0 || a.ID != c.IgnoreID {
		return false
	}
	return c.IgnoreSource == "" || c.IgnoreSource == a.Source
}

// FindConflicts returns the assignments that share the candidate's vehicle or driver on
// the same date with an overlapping window. Nil ids on either side never match.
func FindConflicts(existing []models.Assignment, candidate Candidate) []models.ScheduleConflict {
	var conflicts []models.ScheduleConflict
	for _, a := range existing {
		if candidate.ignores(a) {
			continue
		}
		if !a.Date.Equal(candidate.Date) {
			continue
		}
		overlap, ok := timewindow.Intersection(a.Window, candidate.Window)
		if !ok {
			continue
		}
		vehicleMatch := candidate.VehicleID != 0 && a.VehicleID != nil && *a.VehicleID == candidate.VehicleID
		driverMatch := candidate.DriverID != 0 && a.DriverID != nil && *a.DriverID == candidate.DriverID
		if !vehicleMatch && !driverMatch {
			continue
		}

		dimension := ConflictDimensionVehicle
		if !vehicleMatch {
			dimension = ConflictDimensionDriver
		}
		conflicts = append(conflicts, models.ScheduleConflict{
			Source:    a.Source,
			ID:        a.ID,
			Date:      a.Date,
			Window:    a.Window,
			Overlap:   overlap,
			DriverID:  a.DriverID,
			VehicleID: a.VehicleID,
			Dimension: dimension,
		})
	}
	return conflicts
}

// ConflictService answers double-booking questions for vehicles and drivers.
type ConflictService struct {
	finder assignmentFinder
	logger *zap.Logger
}

// NewConflictService constructs the service.
func NewConflictService(finder assignmentFinder, logger *zap.Logger) *ConflictService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{finder: finder, logger: logger}
}

// HasConflict reports whether [start, end) on date overlaps an existing booking of vehicleID or driverID.
// The caller guarantees start < end.
func (s *ConflictService) HasConflict(ctx context.Context, vehicleID, driverID int64, date timewindow.Date, start, end timewindow.Clock) (bool, error) {
	conflicts, err := s.Conflicts(ctx, Candidate{
		VehicleID: vehicleID,
		DriverID:  driverID,
		Date:      date,
		Window:    timewindow.NewWindow(start, end),
	})
	if err != nil {
		return false, err
	}
	return len(conflicts) > 0, nil
}

// Conflicts returns every existing booking that collides with the candidate.
func (s *ConflictService) Conflicts(ctx context.Context, candidate Candidate) ([]models.ScheduleConflict, error) {
	if candidate.VehicleID == 0 && candidate.DriverID == 0 {
		return nil, nil
	}
	existing, err := s.finder.ListAssignmentsOn(ctx, candidate.Date, candidate.VehicleID, candidate.DriverID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
	}
	conflicts := FindConflicts(existing, candidate)
	if len(conflicts) > 0 {
		s.logger.Debug("booking conflicts found",
			zap.Int64("vehicle_id", candidate.VehicleID),
			zap.Int64("driver_id", candidate.DriverID),
			zap.String("date", candidate.Date.String()),
			zap.Int("count", len(conflicts)),
		)
	}
	return conflicts, nil
}

func dimensionLabel(dimension string) string {
	if dimension == ConflictDimensionDriver {
		return "driver"
	}
	return "vehicle"
}
