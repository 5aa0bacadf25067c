package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/busbuddy-api/internal/models"
	"github.com/noah-isme/busbuddy-api/internal/service"
	appErrors "github.com/noah-isme/busbuddy-api/pkg/errors"
)

type routeServiceMock struct {
	routes []models.RouteDetail
	err    error
}

func (m *routeServiceMock) List(ctx context.Context) ([]models.RouteDetail, error) {
	return m.routes, m.err
}

func (m *routeServiceMock) Get(ctx context.Context, id int64) (*models.RouteDetail, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &m.routes[0], nil
}

type calendarServiceMock struct {
	req service.CalendarFeedRequest
	err error
}

func (m *calendarServiceMock) Feed(ctx context.Context, req service.CalendarFeedRequest) ([]byte, error) {
	m.req = req
	if m.err != nil {
		return nil, m.err
	}
	return []byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"), nil
}

func (m *calendarServiceMock) ContentType() string {
	return "text/calendar; charset=utf-8"
}

func TestRouteHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRouteHandler(&routeServiceMock{routes: []models.RouteDetail{{Route: models.Route{ID: 1, Name: "North"}, Polyline: "abc"}}})

	c, w := newGinContext(http.MethodGet, "/routes", nil)
	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"polyline":"abc"`)
	assert.Contains(t, w.Body.String(), `"total":1`)
}

func TestRouteHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRouteHandler(&routeServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "route not found")})

	c, w := newGinContext(http.MethodGet, "/routes/5", nil)
	c.Params = gin.Params{{Key: "id", Value: "5"}}
	handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCalendarHandlerFeed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &calendarServiceMock{}
	handler := NewCalendarHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/activities/calendar.ics?from=2025-08-01", nil)
	handler.Feed(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "BEGIN:VCALENDAR")
	require.NotNil(t, mockSvc.req.From)
	assert.Equal(t, "2025-08-01", mockSvc.req.From.String())
	assert.Nil(t, mockSvc.req.To)
}

func TestCalendarHandlerFeedBadRange(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewCalendarHandler(&calendarServiceMock{err: appErrors.Clone(appErrors.ErrValidation, "to must not be before from")})

	c, w := newGinContext(http.MethodGet, "/activities/calendar.ics?from=2025-08-10&to=2025-08-01", nil)
	handler.Feed(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newGinContext(http.MethodGet, "/activities/calendar.ics?to=tomorrow", nil)
	handler.Feed(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
