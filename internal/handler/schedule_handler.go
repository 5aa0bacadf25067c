package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/busbuddy-api/internal/models"
	"github.com/noah-isme/busbuddy-api/internal/service"
	appErrors "github.com/noah-isme/busbuddy-api/pkg/errors"
	"github.com/noah-isme/busbuddy-api/pkg/response"
)

type activityScheduleService interface {
	List(ctx context.Context, filter models.ActivityScheduleFilter) ([]models.ActivitySchedule, *models.Pagination, error)
	Get(ctx context.Context, id int64) (*models.ActivitySchedule, error)
	Create(ctx context.Context, req service.ActivityScheduleRequest) (*models.ActivitySchedule, error)
	Update(ctx context.Context, id int64, req service.ActivityScheduleRequest) (*models.ActivitySchedule, error)
	Delete(ctx context.Context, id int64) error
	BulkCreate(ctx context.Context, req service.BulkCreateActivitySchedulesRequest) (*service.BulkCreateActivitySchedulesResult, error)
}

// ActivityScheduleHandler manages activity schedule endpoints.
type ActivityScheduleHandler struct {
	service activityScheduleService
}

// NewActivityScheduleHandler constructs handler.
func NewActivityScheduleHandler(svc activityScheduleService) *ActivityScheduleHandler {
	return &ActivityScheduleHandler{service: svc}
}

// List godoc
// @Summary List activity schedules
// @Tags Schedules
// @Produce json
// @Param date query string false "Filter by date (YYYY-MM-DD)"
// @Param driverId query int false "Filter by driver"
// @Param vehicleId query int false "Filter by vehicle"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sort query string false "scheduled_date, leave_time, created_at or id"
// @Param order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Router /activity-schedules [get]
func (h *ActivityScheduleHandler) List(c *gin.Context) {
	var filter models.ActivityScheduleFilter
	date, err := parseDateQuery(c, "date")
	if err != nil {
		response.Error(c, err)
		return
	}
	filter.Date = date
	if id, err := strconv.ParseInt(c.Query("driverId"), 10, 64); err == nil && id > 0 {
		filter.DriverID = &id
	}
	if id, err := strconv.ParseInt(c.Query("vehicleId"), 10, 64); err == nil && id > 0 {
		filter.VehicleID = &id
	}
	filter.Status = c.Query("status")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	schedules, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, pagination)
}

// Get godoc
// @Summary Get activity schedule
// @Tags Schedules
// @Produce json
// @Param id path int true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /activity-schedules/{id} [get]
func (h *ActivityScheduleHandler) Get(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	schedule, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Create godoc
// @Summary Create activity schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body service.ActivityScheduleRequest true "Schedule payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /activity-schedules [post]
func (h *ActivityScheduleHandler) Create(c *gin.Context) {
	var req service.ActivityScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	schedule, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, schedule)
}

// BulkCreate godoc
// @Summary Bulk create activity schedules
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body service.BulkCreateActivitySchedulesRequest true "Bulk payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /activity-schedules/bulk [post]
func (h *ActivityScheduleHandler) BulkCreate(c *gin.Context) {
	var req service.BulkCreateActivitySchedulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.BulkCreate(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Update godoc
// @Summary Update activity schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path int true "Schedule ID"
// @Param payload body service.ActivityScheduleRequest true "Schedule payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /activity-schedules/{id} [put]
func (h *ActivityScheduleHandler) Update(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.ActivityScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	schedule, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Delete godoc
// @Summary Delete activity schedule
// @Tags Schedules
// @Produce json
// @Param id path int true "Schedule ID"
// @Success 204
// @Router /activity-schedules/{id} [delete]
func (h *ActivityScheduleHandler) Delete(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
