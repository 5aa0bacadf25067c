package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/noah-isme/busbuddy-api/internal/models"
	"github.com/noah-isme/busbuddy-api/pkg/config"
	"github.com/noah-isme/busbuddy-api/pkg/timewindow"
)

const (
	defaultLicenseWarningDays   = 30
	defaultInspectionMaxAgeDays = 365
	defaultMinGrade             = 1
	defaultMaxGrade             = 12
)

// ruleContext is the fixed reference point of one validation run.
type ruleContext struct {
	now   time.Time
	today timewindow.Date
	loc   *time.Location
	cfg   config.IntegrityConfig
}

func newRuleContext(now time.Time, cfg config.IntegrityConfig) ruleContext {
	if cfg.LicenseWarningDays <= 0 {
		cfg.LicenseWarningDays = defaultLicenseWarningDays
	}
	if cfg.InspectionMaxAgeDays <= 0 {
		cfg.InspectionMaxAgeDays = defaultInspectionMaxAgeDays
	}
	if cfg.MinGrade == 0 && cfg.MaxGrade == 0 {
		cfg.MinGrade, cfg.MaxGrade = defaultMinGrade, defaultMaxGrade
	}
	loc := cfg.Location()
	local := now.In(loc)
	return ruleContext{now: local, today: timewindow.DateOf(local), loc: loc, cfg: cfg}
}

func entityID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func newIssue(entity models.EntityType, id string, issueType models.IssueType, severity models.Severity, format string, args ...interface{}) models.Issue {
	return models.Issue{
		EntityType:  entity,
		EntityID:    id,
		IssueType:   issueType,
		Description: fmt.Sprintf(format, args...),
		Severity:    severity,
	}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func routeRules(routes []models.Route) []models.Issue {
	var issues []models.Issue
	numbers := make(map[int]int, len(routes))

	for _, route := range routes {
		id := entityID(route.ID)
		if blank(route.Name) {
			issues = append(issues, newIssue(models.EntityRoute, id, models.IssueMissingRequiredData, models.SeverityHigh,
				"Route %d is missing a name", route.ID))
		}
		if route.RouteNumber <= 0 {
			issues = append(issues, newIssue(models.EntityRoute, id, models.IssueInvalidData, models.SeverityHigh,
				"Route %d has invalid route number %d", route.ID, route.RouteNumber))
		} else {
			numbers[route.RouteNumber]++
		}
		if len(route.Stops) == 0 {
			issues = append(issues, newIssue(models.EntityRoute, id, models.IssueMissingRequiredData, models.SeverityCritical,
				"Route %d has no stops", route.ID))
		}
		for _, stop := range route.Stops {
			if blank(stop.Name) {
				issues = append(issues, newIssue(models.EntityRoute, id, models.IssueMissingRequiredData, models.SeverityMedium,
					"Stop %d (order %d) on route %d is missing a name", stop.ID, stop.Order, route.ID))
			}
			if stop.Latitude == 0 || stop.Longitude == 0 {
				issues = append(issues, newIssue(models.EntityRoute, id, models.IssueInvalidData, models.SeverityMedium,
					"Stop %d (order %d) on route %d has invalid coordinates (%g, %g)", stop.ID, stop.Order, route.ID, stop.Latitude, stop.Longitude))
			}
		}
		if window, ok := route.Window(); ok && !window.Valid() {
			issues = append(issues, newIssue(models.EntityRoute, id, models.IssueInvalidTimeRange, models.SeverityHigh,
				"Route %d start time %s is not before end time %s", route.ID, window.Start, window.End))
		}
	}

	dupes := make([]int, 0)
	for number, count := range numbers {
		if count > 1 {
			dupes = append(dupes, number)
		}
	}
	sort.Ints(dupes)
	for _, number := range dupes {
		issues = append(issues, newIssue(models.EntityRoute, models.EntityIDMultiple, models.IssueDuplicateData, models.SeverityHigh,
			"Route number %d is used by %d routes", number, numbers[number]))
	}
	return issues
}

func activityRules(activities []models.Activity, drivers []models.Driver, vehicles []models.Vehicle, routes []models.Route, rc ruleContext) []models.Issue {
	driverByID := make(map[int64]models.Driver, len(drivers))
	for _, d := range drivers {
		driverByID[d.ID] = d
	}
	vehicleByID := make(map[int64]models.Vehicle, len(vehicles))
	for _, v := range vehicles {
		vehicleByID[v.ID] = v
	}
	routeIDs := make(map[int64]struct{}, len(routes))
	for _, r := range routes {
		routeIDs[r.ID] = struct{}{}
	}

	var issues []models.Issue
	for _, activity := range activities {
		id := entityID(activity.ID)
		if blank(activity.ActivityType) {
			issues = append(issues, newIssue(models.EntityActivity, id, models.IssueMissingRequiredData, models.SeverityHigh,
				"Activity %d is missing an activity type", activity.ID))
		}
		if !activity.Window().Valid() {
			issues = append(issues, newIssue(models.EntityActivity, id, models.IssueInvalidTimeRange, models.SeverityHigh,
				"Activity %d start time %s is not before end time %s", activity.ID, activity.StartTime, activity.EndTime))
		}
		if activity.IsScheduled() && activity.Date.At(activity.StartTime, rc.loc).Before(rc.now) {
			issues = append(issues, newIssue(models.EntityActivity, id, models.IssueOutdatedSchedule, models.SeverityMedium,
				"Activity %d is still scheduled but started on %s at %s", activity.ID, activity.Date, activity.StartTime))
		}
		if activity.DriverID != nil {
			driver, ok := driverByID[*activity.DriverID]
			switch {
			case !ok:
				issues = append(issues, newIssue(models.EntityActivity, id, models.IssueInvalidReference, models.SeverityHigh,
					"Activity %d references unknown driver %d", activity.ID, *activity.DriverID))
			case !driver.IsActive():
				issues = append(issues, newIssue(models.EntityActivity, id, models.IssueInactiveReference, models.SeverityMedium,
					"Activity %d is assigned to driver %d with status %q", activity.ID, driver.ID, driver.Status))
			}
		}
		if activity.VehicleID != nil {
			vehicle, ok := vehicleByID[*activity.VehicleID]
			switch {
			case !ok:
				issues = append(issues, newIssue(models.EntityActivity, id, models.IssueInvalidReference, models.SeverityHigh,
					"Activity %d references unknown vehicle %d", activity.ID, *activity.VehicleID))
			case !vehicle.IsActive():
				issues = append(issues, newIssue(models.EntityActivity, id, models.IssueInactiveReference, models.SeverityMedium,
					"Activity %d is assigned to vehicle %d with status %q", activity.ID, vehicle.ID, vehicle.Status))
			}
		}
		if activity.RouteID != nil {
			if _, ok := routeIDs[*activity.RouteID]; !ok {
				issues = append(issues, newIssue(models.EntityActivity, id, models.IssueInvalidReference, models.SeverityHigh,
					"Activity %d references unknown route %d", activity.ID, *activity.RouteID))
			}
		}
	}
	return issues
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func studentRules(students []models.Student, routes []models.Route, rc ruleContext) []models.Issue {
	routeByID := make(map[int64]models.Route, len(routes))
	for _, r := range routes {
		routeByID[r.ID] = r
	}

	var issues []models.Issue
	numbers := make(map[string]int, len(students))

	for _, student := range students {
		id := entityID(student.ID)
		if blank(student.FirstName) {
			issues = append(issues, newIssue(models.EntityStudent, id, models.IssueMissingRequiredData, models.SeverityHigh,
				"Student %d is missing a first name", student.ID))
		}
		if blank(student.LastName) {
			issues = append(issues, newIssue(models.EntityStudent, id, models.IssueMissingRequiredData, models.SeverityHigh,
				"Student %d is missing a last name", student.ID))
		}
		number := strings.TrimSpace(student.StudentNumber)
		if !isNumeric(number) {
			issues = append(issues, newIssue(models.EntityStudent, id, models.IssueInvalidData, models.SeverityMedium,
				"Student %d has invalid student number %q", student.ID, student.StudentNumber))
		}
		if number != "" {
			numbers[number]++
		}
		if student.GradeLevel < rc.cfg.MinGrade || student.GradeLevel > rc.cfg.MaxGrade {
			issues = append(issues, newIssue(models.EntityStudent, id, models.IssueInvalidData, models.SeverityMedium,
				"Student %d has grade level %d outside %d-%d", student.ID, student.GradeLevel, rc.cfg.MinGrade, rc.cfg.MaxGrade))
		}

		var route models.Route
		routeKnown := false
		if student.RouteID != nil {
			route, routeKnown = routeByID[*student.RouteID]
			if !routeKnown {
				issues = append(issues, newIssue(models.EntityStudent, id, models.IssueInvalidReference, models.SeverityHigh,
					"Student %d references unknown route %d", student.ID, *student.RouteID))
			}
		}
		if student.PickupStopID != nil {
			switch {
			case student.RouteID == nil:
				issues = append(issues, newIssue(models.EntityStudent, id, models.IssueInvalidReference, models.SeverityHigh,
					"Student %d has pickup stop %d but no assigned route", student.ID, *student.PickupStopID))
			case routeKnown && !route.HasStop(*student.PickupStopID):
				issues = append(issues, newIssue(models.EntityStudent, id, models.IssueInvalidReference, models.SeverityHigh,
					"Student %d pickup stop %d is not a stop on route %d", student.ID, *student.PickupStopID, route.ID))
			}
		}
		if blank(student.ParentPhone) && blank(student.EmergencyContact) {
			issues = append(issues, newIssue(models.EntityStudent, id, models.IssueContactInformation, models.SeverityCritical,
				"Student %d has neither a parent phone nor an emergency contact", student.ID))
		}
	}

	dupes := make([]string, 0)
	for number, count := range numbers {
		if count > 1 {
			dupes = append(dupes, number)
		}
	}
	sort.Strings(dupes)
	for _, number := range dupes {
		issues = append(issues, newIssue(models.EntityStudent, models.EntityIDMultiple, models.IssueDuplicateData, models.SeverityHigh,
			"Student number %s is used by %d students", number, numbers[number]))
	}
	return issues
}

func driverRules(drivers []models.Driver, rc ruleContext) []models.Issue {
	var issues []models.Issue
	for _, driver := range drivers {
		id := entityID(driver.ID)
		if expiry := driver.LicenseExpiryDate; expiry != nil {
			switch {
			case expiry.Before(rc.today):
				issues = append(issues, newIssue(models.EntityDriver, id, models.IssueLicense, models.SeverityCritical,
					"Driver %d license expired on %s", driver.ID, expiry))
			case rc.today.DaysUntil(*expiry) <= rc.cfg.LicenseWarningDays:
				issues = append(issues, newIssue(models.EntityDriver, id, models.IssueLicense, models.SeverityHigh,
					"Driver %d license expires within %d days (on %s)", driver.ID, rc.cfg.LicenseWarningDays, expiry))
			}
		}
		if blank(driver.PhoneNumber) {
			issues = append(issues, newIssue(models.EntityDriver, id, models.IssueContactInformation, models.SeverityHigh,
				"Driver %d is missing a phone number", driver.ID))
		}
	}
	return issues
}

func vehicleRules(vehicles []models.Vehicle, rc ruleContext) []models.Issue {
	var issues []models.Issue
	for _, vehicle := range vehicles {
		id := entityID(vehicle.ID)
		if last := vehicle.LastInspectionDate; last != nil && last.DaysUntil(rc.today) > rc.cfg.InspectionMaxAgeDays {
			issues = append(issues, newIssue(models.EntityVehicle, id, models.IssueMaintenance, models.SeverityCritical,
				"Vehicle %d was last inspected on %s, more than %d days ago", vehicle.ID, last, rc.cfg.InspectionMaxAgeDays))
		}
		if vehicle.Mileage < 0 {
			issues = append(issues, newIssue(models.EntityVehicle, id, models.IssueInvalidData, models.SeverityHigh,
				"Vehicle %d has negative mileage %d", vehicle.ID, vehicle.Mileage))
		}
	}
	return issues
}

type bookingKey struct {
	resourceID int64
	date       timewindow.Date
}

// crossEntityRules reports scheduled activities that double-book a driver or a vehicle.
func crossEntityRules(activities []models.Activity) []models.Issue {
	scheduled := make([]models.Activity, 0, len(activities))
	for _, a := range activities {
		if a.IsScheduled() {
			scheduled = append(scheduled, a)
		}
	}
	sort.SliceStable(scheduled, func(i, j int) bool { return scheduled[i].ID < scheduled[j].ID })

	var issues []models.Issue
	issues = append(issues, doubleBookings(scheduled, "driver", func(a models.Activity) *int64 { return a.DriverID })...)
	issues = append(issues, doubleBookings(scheduled, "vehicle", func(a models.Activity) *int64 { return a.VehicleID })...)
	return issues
}

func doubleBookings(activities []models.Activity, resource string, resourceOf func(models.Activity) *int64) []models.Issue {
	groups := make(map[bookingKey][]models.Activity)
	for _, a := range activities {
		ref := resourceOf(a)
		if ref == nil {
			continue
		}
		key := bookingKey{resourceID: *ref, date: a.Date}
		groups[key] = append(groups[key], a)
	}

	keys := make([]bookingKey, 0, len(groups))
	for key, members := range groups {
		if len(members) > 1 {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].resourceID != keys[j].resourceID {
			return keys[i].resourceID < keys[j].resourceID
		}
		return keys[i].date.Before(keys[j].date)
	})

	label := strings.ToUpper(resource[:1]) + resource[1:]
	var issues []models.Issue
	for _, key := range keys {
		members := groups[key]
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				a, b := members[i], members[j]
				if !timewindow.Overlaps(a.Window(), b.Window()) {
					continue
				}
				issues = append(issues,
					newIssue(models.EntityActivity, entityID(a.ID), models.IssueSchedulingConflict, models.SeverityHigh,
						"%s %d is double-booked on %s: activity %d (%s) overlaps activity %d (%s)", label, key.resourceID, key.date, a.ID, a.Window(), b.ID, b.Window()),
					newIssue(models.EntityActivity, entityID(b.ID), models.IssueSchedulingConflict, models.SeverityHigh,
						"%s %d is double-booked on %s: activity %d (%s) overlaps activity %d (%s)", label, key.resourceID, key.date, b.ID, b.Window(), a.ID, a.Window()),
				)
			}
		}
	}
	return issues
}
