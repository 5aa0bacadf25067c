package export

import (
	"bytes"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"entity_type", "entity_id", "severity", "description"},
		Rows: []map[string]string{
			{"entity_type": "Route", "entity_id": "3", "severity": "Critical", "description": "Route 'North' has no stops"},
			{"entity_type": "Driver", "entity_id": "7", "severity": "High", "description": "Driver, with comma"},
		},
	}
}

func TestCSVRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset(), "ignored")
	require.NoError(t, err)

	expected := "entity_type,entity_id,severity,description\n" +
		"Route,3,Critical,Route 'North' has no stops\n" +
		"Driver,7,High,\"Driver, with comma\"\n"
	assert.Equal(t, expected, string(out))
}

func TestCSVRenderNeutralizesFormulas(t *testing.T) {
	data := Dataset{
		Headers: []string{"name"},
		Rows:    []map[string]string{{"name": "=HYPERLINK(\"x\")"}, {"name": "@stop"}, {"name": "North"}},
	}
	out, err := NewCSVExporter().Render(data, "")
	require.NoError(t, err)
	assert.Equal(t, "name\n\"'=HYPERLINK(\"\"x\"\")\"\n'@stop\nNorth\n", string(out))
}

func TestRenderRequiresHeaders(t *testing.T) {
	for _, format := range []string{"csv", "pdf", "xlsx"} {
		r, err := ForFormat(format)
		require.NoError(t, err)
		_, err = r.Render(Dataset{}, "")
		assert.Error(t, err, format)
	}
	_, err := ForFormat("docx")
	assert.Error(t, err)
}

func TestPDFRender(t *testing.T) {
	data := sampleDataset()
	for i := 0; i < 80; i++ {
		data.Rows = append(data.Rows, map[string]string{"entity_type": "Vehicle", "description": "a fairly long description that must be truncated to fit inside its column on the page"})
	}
	out, err := NewPDFExporter().Render(data, "Integrity audit")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestXLSXRender(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleDataset(), "Integrity audit")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	title, err := f.GetCellValue(xlsxSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Integrity audit", title)

	header, err := f.GetCellValue(xlsxSheet, "C2")
	require.NoError(t, err)
	assert.Equal(t, "severity", header)

	value, err := f.GetCellValue(xlsxSheet, "D4")
	require.NoError(t, err)
	assert.Equal(t, "Driver, with comma", value)
}

func TestCalendarRender(t *testing.T) {
	exporter := NewCalendarExporter("")
	exporter.Now = func() time.Time { return time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC) }

	start := time.Date(2025, 8, 2, 8, 0, 0, 0, time.UTC)
	out, err := exporter.Render("Activities", []CalendarEvent{{
		UID:      "activity-1@busbuddy",
		Summary:  "Field trip",
		Location: "Museum",
		Start:    start,
		End:      start.Add(2 * time.Hour),
		Status:   "CONFIRMED",
	}})
	require.NoError(t, err)

	cal, err := ics.ParseCalendar(bytes.NewReader(out))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "Field trip", events[0].GetProperty(ics.ComponentPropertySummary).Value)
	assert.Equal(t, "Museum", events[0].GetProperty(ics.ComponentPropertyLocation).Value)
	assert.Equal(t, "20250802T080000Z", events[0].GetProperty(ics.ComponentPropertyDtStart).Value)
}

func TestCalendarRejectsInvertedEvent(t *testing.T) {
	start := time.Date(2025, 8, 2, 8, 0, 0, 0, time.UTC)
	_, err := NewCalendarExporter("").Render("", []CalendarEvent{{UID: "x", Start: start, End: start.Add(-time.Hour)}})
	assert.Error(t, err)
}
