package timewindow

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func win(sh, sm, eh, em int) Window {
	return NewWindow(MustClock(sh, sm), MustClock(eh, em))
}

func TestOverlapsSymmetric(t *testing.T) {
	windows := []Window{
		win(8, 0, 9, 0),
		win(8, 30, 9, 30),
		win(9, 0, 10, 0),
		win(7, 0, 11, 0),
		win(10, 0, 10, 30),
		win(8, 15, 8, 45),
	}
	for _, a := range windows {
		for _, b := range windows {
			assert.Equal(t, Overlaps(a, b), Overlaps(b, a), "%s vs %s", a, b)
		}
	}
}

func TestOverlapsTouchingBoundary(t *testing.T) {
	assert.False(t, Overlaps(win(8, 0, 9, 0), win(9, 0, 10, 0)))
	assert.False(t, Overlaps(win(9, 0, 10, 0), win(8, 0, 9, 0)))
}

func TestOverlapsContainment(t *testing.T) {
	assert.True(t, Overlaps(win(8, 0, 10, 0), win(8, 30, 9, 0)))
	assert.True(t, Overlaps(win(8, 30, 9, 0), win(8, 0, 10, 0)))
	assert.True(t, Overlaps(win(8, 0, 9, 0), win(8, 0, 9, 0)))
}

func TestOverlapsPartial(t *testing.T) {
	assert.True(t, Overlaps(win(8, 0, 9, 0), win(8, 30, 9, 30)))
	assert.False(t, Overlaps(win(8, 0, 9, 0), win(9, 30, 10, 0)))
}

func TestIntersection(t *testing.T) {
	got, ok := Intersection(win(8, 0, 9, 0), win(8, 30, 9, 30))
	require.True(t, ok)
	assert.Equal(t, win(8, 30, 9, 0), got)

	_, ok = Intersection(win(8, 0, 9, 0), win(9, 0, 10, 0))
	assert.False(t, ok)
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("08:30")
	require.NoError(t, err)
	assert.Equal(t, MustClock(8, 30), c)

	c, err = ParseClock("14:05:09")
	require.NoError(t, err)
	assert.Equal(t, "14:05:09", c.String())

	_, err = ParseClock("25:00")
	assert.Error(t, err)
}

func TestClockScan(t *testing.T) {
	var c Clock
	require.NoError(t, c.Scan([]byte("07:45:00")))
	assert.Equal(t, MustClock(7, 45), c)

	require.NoError(t, c.Scan(time.Date(0, 1, 1, 16, 10, 0, 0, time.UTC)))
	assert.Equal(t, MustClock(16, 10), c)

	assert.Error(t, c.Scan(3.14))
}

func TestFromDurationWraps(t *testing.T) {
	assert.Equal(t, MustClock(1, 15), FromDuration(25*time.Hour+15*time.Minute))
	assert.Equal(t, MustClock(6, 0), FromDuration(6*time.Hour))
}

func TestDateOrderingAndArithmetic(t *testing.T) {
	d, err := ParseDate("2025-08-02")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2025, time.August, 2), d)
	assert.True(t, d.Before(d.AddDays(1)))
	assert.True(t, d.AddDays(-1).Before(d))
	assert.Equal(t, 30, d.DaysUntil(d.AddDays(30)))
	assert.Equal(t, NewDate(2025, time.March, 1), NewDate(2025, time.February, 28).AddDays(1))
}

func TestDateScanAndJSON(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2025, 8, 2, 13, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-08-02", d.String())

	require.NoError(t, d.Scan("2024-02-29T00:00:00Z"))
	assert.Equal(t, NewDate(2024, time.February, 29), d)

	payload, err := json.Marshal(struct {
		Date  Date  `json:"date"`
		Start Clock `json:"start"`
	}{Date: d, Start: MustClock(8, 0)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2024-02-29","start":"08:00"}`, string(payload))
}

func TestDateAt(t *testing.T) {
	d := NewDate(2025, time.August, 2)
	at := d.At(MustClock(8, 30), time.UTC)
	assert.Equal(t, time.Date(2025, 8, 2, 8, 30, 0, 0, time.UTC), at)
}
