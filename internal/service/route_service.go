package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/twpayne/go-polyline"
	"go.uber.org/zap"

	"github.com/noah-isme/busbuddy-api/internal/models"
	appErrors "github.com/noah-isme/busbuddy-api/pkg/errors"
)

type routeReader interface {
	List(ctx context.Context) ([]models.Route, error)
	FindByID(ctx context.Context, id int64) (*models.Route, error)
}

// RouteService serves route views to API clients.
type RouteService struct {
	repo   routeReader
	logger *zap.Logger
}

// NewRouteService constructs a RouteService.
func NewRouteService(repo routeReader, logger *zap.Logger) *RouteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RouteService{repo: repo, logger: logger}
}

// List returns all routes as detail views.
func (s *RouteService) List(ctx context.Context) ([]models.RouteDetail, error) {
	routes, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list routes")
	}
	details := make([]models.RouteDetail, 0, len(routes))
	for _, route := range routes {
		details = append(details, NewRouteDetail(route))
	}
	return details, nil
}

// Get returns one route with its stops and encoded path.
func (s *RouteService) Get(ctx context.Context, id int64) (*models.RouteDetail, error) {
	route, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "route not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load route")
	}
	detail := NewRouteDetail(*route)
	return &detail, nil
}

// NewRouteDetail orders stops by their stop order and encodes them as a polyline.
// Stops without coordinates are left out of the path.
func NewRouteDetail(route models.Route) models.RouteDetail {
	stops := append([]models.Stop(nil), route.Stops...)
	sort.SliceStable(stops, func(i, j int) bool { return stops[i].Order < stops[j].Order })
	route.Stops = stops

	var coords [][]float64
	for _, stop := range stops {
		if stop.Latitude == 0 || stop.Longitude == 0 {
			continue
		}
		coords = append(coords, []float64{stop.Latitude, stop.Longitude})
	}
	detail := models.RouteDetail{Route: route}
	if len(coords) > 0 {
		detail.Polyline = string(polyline.EncodeCoords(coords))
	}
	return detail
}
