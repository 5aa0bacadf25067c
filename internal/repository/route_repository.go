package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/busbuddy-api/internal/models"
)

const (
	routeColumns = "id, name, route_number, start_time, end_time, created_at, updated_at"
	stopColumns  = "id, route_id, name, latitude, longitude, stop_order"
)

// RouteRepository provides persistence for routes and their stops.
type RouteRepository struct {
	db *sqlx.DB
}

// NewRouteRepository creates a new route repository.
func NewRouteRepository(db *sqlx.DB) *RouteRepository {
	return &RouteRepository{db: db}
}

// List returns every route with its stops ordered by stop order.
func (r *RouteRepository) List(ctx context.Context) ([]models.Route, error) {
	var routes []models.Route
	if err := r.db.SelectContext(ctx, &routes, "SELECT "+routeColumns+" FROM routes ORDER BY id ASC"); err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}

	var stops []models.Stop
	if err := r.db.SelectContext(ctx, &stops, "SELECT "+stopColumns+" FROM stops ORDER BY route_id ASC, stop_order ASC, id ASC"); err != nil {
		return nil, fmt.Errorf("list stops: %w", err)
	}

	byRoute := make(map[int64][]models.Stop, len(routes))
	for _, stop := range stops {
		byRoute[stop.RouteID] = append(byRoute[stop.RouteID], stop)
	}
	for i := range routes {
		routes[i].Stops = byRoute[routes[i].ID]
	}
	return routes, nil
}

// FindByID loads a route and its stops. It returns sql.ErrNoRows when absent.
func (r *RouteRepository) FindByID(ctx context.Context, id int64) (*models.Route, error) {
	var route models.Route
	if err := r.db.GetContext(ctx, &route, r.db.Rebind("SELECT "+routeColumns+" FROM routes WHERE id = ?"), id); err != nil {
		return nil, err
	}
	if err := r.db.SelectContext(ctx, &route.Stops, r.db.Rebind("SELECT "+stopColumns+" FROM stops WHERE route_id = ? ORDER BY stop_order ASC, id ASC"), id); err != nil {
		return nil, fmt.Errorf("list route stops: %w", err)
	}
	return &route, nil
}

// UpsertByNumber replaces the route carrying route.RouteNumber (or inserts it) together with its stops.
// It reports whether a new row was created.
func (r *RouteRepository) UpsertByNumber(ctx context.Context, route *models.Route) (created bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin upsert route: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	route.UpdatedAt = now

	var existingID int64
	err = tx.GetContext(ctx, &existingID, tx.Rebind("SELECT id FROM routes WHERE route_number = ? ORDER BY id ASC LIMIT 1"), route.RouteNumber)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		route.CreatedAt = now
		err = tx.QueryRowxContext(ctx,
			tx.Rebind("INSERT INTO routes (name, route_number, start_time, end_time, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?) RETURNING id"),
			route.Name, route.RouteNumber, route.StartTime, route.EndTime, route.CreatedAt, route.UpdatedAt,
		).Scan(&route.ID)
		if err != nil {
			return false, fmt.Errorf("insert route: %w", err)
		}
		created = true
	case err != nil:
		return false, fmt.Errorf("find route by number: %w", err)
	default:
		route.ID = existingID
		if _, err = tx.ExecContext(ctx,
			tx.Rebind("UPDATE routes SET name = ?, start_time = ?, end_time = ?, updated_at = ? WHERE id = ?"),
			route.Name, route.StartTime, route.EndTime, route.UpdatedAt, route.ID,
		); err != nil {
			return false, fmt.Errorf("update route: %w", err)
		}
		if _, err = tx.ExecContext(ctx, tx.Rebind("DELETE FROM stops WHERE route_id = ?"), route.ID); err != nil {
			return false, fmt.Errorf("clear route stops: %w", err)
		}
	}

	for i := range route.Stops {
		stop := &route.Stops[i]
		stop.RouteID = route.ID
		err = tx.QueryRowxContext(ctx,
			tx.Rebind("INSERT INTO stops (route_id, name, latitude, longitude, stop_order) VALUES (?, ?, ?, ?, ?) RETURNING id"),
			stop.RouteID, stop.Name, stop.Latitude, stop.Longitude, stop.Order,
		).Scan(&stop.ID)
		if err != nil {
			return false, fmt.Errorf("insert stop: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit upsert route: %w", err)
	}
	return created, nil
}
