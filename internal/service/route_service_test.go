package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-polyline"

	"github.com/noah-isme/busbuddy-api/internal/models"
)

type routeReaderStub struct {
	routes []models.Route
	err    error
}

func (s routeReaderStub) List(ctx context.Context) ([]models.Route, error) {
	return s.routes, s.err
}

func (s routeReaderStub) FindByID(ctx context.Context, id int64) (*models.Route, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, route := range s.routes {
		if route.ID == id {
			r := route
			return &r, nil
		}
	}
	return nil, sql.ErrNoRows
}

func TestNewRouteDetailEncodesOrderedStops(t *testing.T) {
	route := models.Route{
		ID:          1,
		Name:        "North Loop",
		RouteNumber: 12,
		Stops: []models.Stop{
			{ID: 3, Name: "School", Latitude: 40.7, Longitude: -120.95, Order: 3},
			{ID: 1, Name: "Depot", Latitude: 38.5, Longitude: -120.2, Order: 1},
			{ID: 2, Name: "Unmapped", Order: 2},
			{ID: 4, Name: "Library", Latitude: 43.252, Longitude: -126.453, Order: 4},
		},
	}

	detail := NewRouteDetail(route)
	require.Len(t, detail.Stops, 4)
	assert.Equal(t, []int64{1, 2, 3, 4}, []int64{detail.Stops[0].ID, detail.Stops[1].ID, detail.Stops[2].ID, detail.Stops[3].ID})
	assert.Equal(t, "_p~iF~ps|U_ulLnnqC_mqNvxq`@", detail.Polyline)

	decoded, _, err := polyline.DecodeCoords([]byte(detail.Polyline))
	require.NoError(t, err)
	assert.Len(t, decoded, 3)
	assert.Equal(t, int64(3), route.Stops[0].ID)
}

func TestNewRouteDetailWithoutStops(t *testing.T) {
	detail := NewRouteDetail(models.Route{ID: 9})
	assert.Empty(t, detail.Polyline)
	assert.Empty(t, detail.Stops)
}

func TestRouteServiceGet(t *testing.T) {
	svc := NewRouteService(routeReaderStub{routes: []models.Route{
		{ID: 5, Name: "East", RouteNumber: 5, Stops: []models.Stop{{ID: 1, Latitude: 1, Longitude: 1, Order: 1}}},
	}}, nil)

	detail, err := svc.Get(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "East", detail.Name)
	assert.NotEmpty(t, detail.Polyline)

	_, err = svc.Get(context.Background(), 6)
	requireAppErrorStatus(t, err, http.StatusNotFound)
}

func TestRouteServiceList(t *testing.T) {
	svc := NewRouteService(routeReaderStub{routes: []models.Route{{ID: 1}, {ID: 2}}}, nil)
	details, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, details, 2)

	failing := NewRouteService(routeReaderStub{err: sql.ErrConnDone}, nil)
	_, err = failing.List(context.Background())
	requireAppErrorStatus(t, err, http.StatusInternalServerError)
}
