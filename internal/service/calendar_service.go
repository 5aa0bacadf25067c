package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/busbuddy-api/internal/models"
	appErrors "github.com/noah-isme/busbuddy-api/pkg/errors"
	"github.com/noah-isme/busbuddy-api/pkg/export"
	"github.com/noah-isme/busbuddy-api/pkg/timewindow"
)

const (
	defaultCalendarSpanDays = 30
	maxCalendarSpanDays     = 366
)

type activityRangeLister interface {
	List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, error)
}

// CalendarFeedRequest bounds the feed by activity date, inclusive on both ends.
type CalendarFeedRequest struct {
	From *timewindow.Date
	To   *timewindow.Date
}

// CalendarService publishes scheduled activity trips as an iCalendar feed.
type CalendarService struct {
	repo     activityRangeLister
	exporter *export.CalendarExporter
	loc      *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewCalendarService constructs a CalendarService. Activity clock times are read in loc.
func NewCalendarService(repo activityRangeLister, loc *time.Location, logger *zap.Logger) *CalendarService {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{repo: repo, exporter: export.NewCalendarExporter(""), loc: loc, logger: logger, now: time.Now}
}

// Events returns the scheduled activities in range as calendar events.
func (s *CalendarService) Events(ctx context.Context, req CalendarFeedRequest) ([]export.CalendarEvent, error) {
	from, to, err := s.bounds(req)
	if err != nil {
		return nil, err
	}
	activities, err := s.repo.List(ctx, models.ActivityFilter{From: &from, To: &to, Status: models.StatusScheduled})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activities")
	}

	events := make([]export.CalendarEvent, 0, len(activities))
	for _, activity := range activities {
		if !activity.IsScheduled() || activity.Date.IsZero() {
			continue
		}
		events = append(events, s.event(activity))
	}
	return events, nil
}

// Feed renders Events as an RFC 5545 document.
func (s *CalendarService) Feed(ctx context.Context, req CalendarFeedRequest) ([]byte, error) {
	events, err := s.Events(ctx, req)
	if err != nil {
		return nil, err
	}
	data, err := s.exporter.Render("BusBuddy activities", events)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render calendar")
	}
	return data, nil
}

// ContentType is the MIME type of Feed output.
func (s *CalendarService) ContentType() string {
	return s.exporter.ContentType()
}

func (s *CalendarService) bounds(req CalendarFeedRequest) (timewindow.Date, timewindow.Date, error) {
	from := timewindow.DateOf(s.now().In(s.loc))
	if req.From != nil {
		from = *req.From
	}
	to := from.AddDays(defaultCalendarSpanDays)
	if req.To != nil {
		to = *req.To
	}
	if to.Before(from) {
		return from, to, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	if from.DaysUntil(to) > maxCalendarSpanDays {
		return from, to, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("range must not exceed %d days", maxCalendarSpanDays))
	}
	return from, to, nil
}

func (s *CalendarService) event(activity models.Activity) export.CalendarEvent {
	start := activity.Date.At(activity.StartTime, s.loc)
	end := activity.Date.At(activity.EndTime, s.loc)
	if end.Before(start) {
		end = start
	}

	summary := strings.TrimSpace(activity.ActivityType)
	if summary == "" {
		summary = "Activity trip"
	}
	if activity.Destination != "" {
		summary = fmt.Sprintf("%s: %s", summary, activity.Destination)
	}

	var details []string
	if activity.DriverID != nil {
		details = append(details, fmt.Sprintf("Driver %d", *activity.DriverID))
	}
	if activity.VehicleID != nil {
		details = append(details, fmt.Sprintf("Vehicle %d", *activity.VehicleID))
	}
	if activity.RouteID != nil {
		details = append(details, fmt.Sprintf("Route %d", *activity.RouteID))
	}

	return export.CalendarEvent{
		UID:         fmt.Sprintf("activity-%d@busbuddy", activity.ID),
		Summary:     summary,
		Description: strings.Join(details, ", "),
		Location:    activity.Destination,
		Start:       start,
		End:         end,
		Status:      "CONFIRMED",
	}
}
