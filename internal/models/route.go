package models

import (
	"time"

	"github.com/noah-isme/busbuddy-api/pkg/timewindow"
)

// Route is a bus route with its ordered stops.
type Route struct {
	ID          int64             `db:"id" json:"id"`
	Name        string            `db:"name" json:"name"`
	RouteNumber int               `db:"route_number" json:"route_number"`
	StartTime   *timewindow.Clock `db:"start_time" json:"start_time,omitempty"`
	EndTime     *timewindow.Clock `db:"end_time" json:"end_time,omitempty"`
	Stops       []Stop            `db:"-" json:"stops"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updated_at"`
}

// Stop is a pickup/drop-off point on a route.
type Stop struct {
	ID        int64   `db:"id" json:"id"`
	RouteID   int64   `db:"route_id" json:"route_id"`
	Name      string  `db:"name" json:"name"`
	Latitude  float64 `db:"latitude" json:"latitude"`
	Longitude float64 `db:"longitude" json:"longitude"`
	Order     int     `db:"stop_order" json:"order"`
}

// Window returns the operating window when both ends are set.
func (r Route) Window() (timewindow.Window, bool) {
	if r.StartTime == nil || r.EndTime == nil {
		return timewindow.Window{}, false
	}
	return timewindow.NewWindow(*r.StartTime, *r.EndTime), true
}

// HasStop reports whether stopID belongs to the route.
func (r Route) HasStop(stopID int64) bool {
	for _, stop := range r.Stops {
		if stop.ID == stopID {
			return true
		}
	}
	return false
}

// RouteDetail is the route view served to clients, with the stop path encoded as a polyline.
type RouteDetail struct {
	Route
	Polyline string `json:"polyline"`
}
