package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/busbuddy-api/internal/models"
	"github.com/noah-isme/busbuddy-api/internal/service"
	appErrors "github.com/noah-isme/busbuddy-api/pkg/errors"
	"github.com/noah-isme/busbuddy-api/pkg/response"
	"github.com/noah-isme/busbuddy-api/pkg/timewindow"
)

type conflictService interface {
	Conflicts(ctx context.Context, candidate service.Candidate) ([]models.ScheduleConflict, error)
}

// ConflictCheckRequest describes a proposed booking.
type ConflictCheckRequest struct {
	VehicleID int64  `json:"vehicle_id" binding:"omitempty,gt=0"`
	DriverID  int64  `json:"driver_id" binding:"omitempty,gt=0"`
	Date      string `json:"date" binding:"required"`
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time" binding:"required"`
	IgnoreID  int64  `json:"ignore_id"`
	// IgnoreSource is "activity" or "activity_schedule"; empty ignores IgnoreID in both tables.
	IgnoreSource string `json:"ignore_source" binding:"omitempty,oneof=activity activity_schedule"`
}

// ConflictCheckResponse answers a conflict check.
type ConflictCheckResponse struct {
	HasConflict bool                      `json:"has_conflict"`
	Conflicts   []models.ScheduleConflict `json:"conflicts"`
}

// ConflictHandler exposes vehicle and driver double-booking checks.
type ConflictHandler struct {
	service conflictService
}

// NewConflictHandler constructs a ConflictHandler.
func NewConflictHandler(service conflictService) *ConflictHandler {
	return &ConflictHandler{service: service}
}

// Check godoc
// @Summary Check a booking for conflicts
// @Tags Conflicts
// @Accept json
// @Produce json
// @Param payload body ConflictCheckRequest true "Proposed booking"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /conflicts/check [post]
func (h *ConflictHandler) Check(c *gin.Context) {
	var req ConflictCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid conflict check payload"))
		return
	}
	if req.VehicleID == 0 && req.DriverID == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "vehicle_id or driver_id required"))
		return
	}
	date, err := timewindow.ParseDate(req.Date)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
		return
	}
	start, errStart := timewindow.ParseClock(req.StartTime)
	end, errEnd := timewindow.ParseClock(req.EndTime)
	if errStart != nil || errEnd != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "start_time and end_time must be HH:MM[:SS]"))
		return
	}
	if !start.Before(end) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time"))
		return
	}

	conflicts, err := h.service.Conflicts(c.Request.Context(), service.Candidate{
		VehicleID:    req.VehicleID,
		DriverID:     req.DriverID,
		Date:         date,
		Window:       timewindow.NewWindow(start, end),
		IgnoreID:     req.IgnoreID,
		IgnoreSource: models.AssignmentSource(req.IgnoreSource),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	if conflicts == nil {
		conflicts = []models.ScheduleConflict{}
	}
	response.JSON(c, http.StatusOK, ConflictCheckResponse{HasConflict: len(conflicts) > 0, Conflicts: conflicts}, nil)
}
