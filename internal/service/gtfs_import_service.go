package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jamespfennell/gtfs"
	"go.uber.org/zap"

	"github.com/noah-isme/busbuddy-api/internal/models"
	"github.com/noah-isme/busbuddy-api/pkg/timewindow"
)

type routeUpserter interface {
	UpsertByNumber(ctx context.Context, route *models.Route) (bool, error)
}

// GTFSImportSummary reports the outcome of one feed import.
type GTFSImportSummary struct {
	Routes  int      `json:"routes"`
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped []string `json:"skipped,omitempty"`
}

// GTFSImportService loads routes and stops from a static GTFS feed.
type GTFSImportService struct {
	repo   routeUpserter
	cache  *CacheService
	client *http.Client
	logger *zap.Logger
}

// NewGTFSImportService constructs the importer.
func NewGTFSImportService(repo routeUpserter, cache *CacheService, logger *zap.Logger) *GTFSImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GTFSImportService{repo: repo, cache: cache, client: &http.Client{Timeout: 60 * time.Second}, logger: logger}
}

// Load reads a feed from a local zip path or an http(s) URL.
func (s *GTFSImportService) Load(ctx context.Context, source string) ([]byte, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("read local GTFS file: %w", err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("build GTFS request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download GTFS feed: %w", err)
	}
	defer resp.Body.Close() // nolint
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download GTFS feed: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read GTFS feed: %w", err)
	}
	return data, nil
}

// Import parses raw feed bytes and upserts every route with a numeric short name.
func (s *GTFSImportService) Import(ctx context.Context, data []byte) (*GTFSImportSummary, error) {
	static, err := gtfs.ParseStatic(data, gtfs.ParseStaticOptions{})
	if err != nil {
		return nil, fmt.Errorf("parse GTFS feed: %w", err)
	}

	routes, skipped := RoutesFromStatic(static)
	return s.upsert(ctx, routes, skipped)
}

func (s *GTFSImportService) upsert(ctx context.Context, routes []models.Route, skipped []string) (*GTFSImportSummary, error) {
	summary := &GTFSImportSummary{Skipped: skipped}
	for i := range routes {
		route := &routes[i]
		created, err := s.repo.UpsertByNumber(ctx, route)
		if err != nil {
			return summary, fmt.Errorf("upsert route %d: %w", route.RouteNumber, err)
		}
		summary.Routes++
		if created {
			summary.Created++
		} else {
			summary.Updated++
		}
		s.logger.Debug("route imported", zap.Int("route_number", route.RouteNumber), zap.Int("stops", len(route.Stops)), zap.Bool("created", created))
	}
	if summary.Routes > 0 {
		if err := s.cache.InvalidateIntegrity(ctx); err != nil {
			s.logger.Warn("failed to invalidate integrity cache", zap.Error(err))
		}
	}
	s.logger.Info("GTFS import finished",
		zap.Int("routes", summary.Routes),
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int("skipped", len(summary.Skipped)),
	)
	return summary, nil
}

// RoutesFromStatic maps each feed route onto a Route built from its longest trip.
// Routes whose short name is not a positive integer are returned in skipped by GTFS id.
func RoutesFromStatic(static *gtfs.Static) (routes []models.Route, skipped []string) {
	longest := make(map[string]*gtfs.ScheduledTrip)
	for i := range static.Trips {
		trip := &static.Trips[i]
		if trip.Route == nil {
			continue
		}
		current, ok := longest[trip.Route.Id]
		if !ok || len(trip.StopTimes) > len(current.StopTimes) {
			longest[trip.Route.Id] = trip
		}
	}

	for _, feedRoute := range static.Routes {
		number, err := strconv.Atoi(strings.TrimSpace(feedRoute.ShortName))
		if err != nil || number <= 0 {
			skipped = append(skipped, feedRoute.Id)
			continue
		}
		route := models.Route{Name: routeName(feedRoute), RouteNumber: number}
		if trip, ok := longest[feedRoute.Id]; ok {
			applyTrip(&route, trip)
		}
		routes = append(routes, route)
	}
	sort.SliceStable(routes, func(i, j int) bool { return routes[i].RouteNumber < routes[j].RouteNumber })
	return routes, skipped
}

func routeName(route gtfs.Route) string {
	if name := strings.TrimSpace(route.LongName); name != "" {
		return name
	}
	return strings.TrimSpace(route.ShortName)
}

func applyTrip(route *models.Route, trip *gtfs.ScheduledTrip) {
	stopTimes := append([]gtfs.ScheduledStopTime(nil), trip.StopTimes...)
	sort.SliceStable(stopTimes, func(i, j int) bool { return stopTimes[i].StopSequence < stopTimes[j].StopSequence })
	if len(stopTimes) == 0 {
		return
	}

	for i, st := range stopTimes {
		if st.Stop == nil {
			continue
		}
		stop := models.Stop{Name: st.Stop.Name, Order: i + 1}
		if st.Stop.Latitude != nil {
			stop.Latitude = *st.Stop.Latitude
		}
		if st.Stop.Longitude != nil {
			stop.Longitude = *st.Stop.Longitude
		}
		route.Stops = append(route.Stops, stop)
	}

	start := timewindow.FromDuration(stopTimes[0].DepartureTime)
	end := timewindow.FromDuration(stopTimes[len(stopTimes)-1].ArrivalTime)
	route.StartTime = &start
	route.EndTime = &end
}
