package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/busbuddy-api/internal/service"
	"github.com/noah-isme/busbuddy-api/pkg/response"
)

type calendarService interface {
	Feed(ctx context.Context, req service.CalendarFeedRequest) ([]byte, error)
	ContentType() string
}

// CalendarHandler publishes the activity trip calendar.
type CalendarHandler struct {
	service calendarService
}

// NewCalendarHandler constructs a CalendarHandler.
func NewCalendarHandler(service calendarService) *CalendarHandler {
	return &CalendarHandler{service: service}
}

// Feed godoc
// @Summary Scheduled activity trips as iCalendar
// @Tags Activities
// @Produce text/calendar
// @Param from query string false "First date (YYYY-MM-DD), defaults to today"
// @Param to query string false "Last date (YYYY-MM-DD), defaults to 30 days after from"
// @Success 200 {string} string
// @Failure 400 {object} response.Envelope
// @Router /activities/calendar.ics [get]
func (h *CalendarHandler) Feed(c *gin.Context) {
	from, err := parseDateQuery(c, "from")
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := parseDateQuery(c, "to")
	if err != nil {
		response.Error(c, err)
		return
	}
	data, err := h.service.Feed(c.Request.Context(), service.CalendarFeedRequest{From: from, To: to})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="activities.ics"`)
	c.Data(http.StatusOK, h.service.ContentType(), data)
}
