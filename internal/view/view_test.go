package view

import (
	"testing"
	"time"

	"autoservice/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func booking(id, date, slot, status string) models.Booking {
	return models.Booking{ID: id, BookingDate: date, BookingTime: slot, CarPlate: "A" + id, Status: status}
}

func TestStatusColor(t *testing.T) {
	assert.Equal(t, ColorYellow, StatusColor(models.StatusPending))
	assert.Equal(t, ColorGreen, StatusColor(models.StatusApproved))
	assert.Equal(t, ColorRed, StatusColor(models.StatusDeclined))
	assert.Equal(t, ColorGray, StatusColor("archived"))
}

func TestBuildList(t *testing.T) {
	bookings := []models.Booking{
		booking("1", "2024-03-05", "09:00", models.StatusPending),
		booking("2", "2024-03-05", "10:00", models.StatusApproved),
	}
	editor := &NotesEditor{}
	editor.Begin("2", "old")
	editor.Update("new")

	items := BuildList(bookings, editor)
	require.Len(t, items, 2)

	assert.Equal(t, "1", items[0].Key)
	assert.Equal(t, []string{ActionApprove, ActionDecline, ActionNotes}, items[0].Actions)
	assert.False(t, items[0].Editing)

	assert.Equal(t, []string{ActionNotes}, items[1].Actions)
	assert.Equal(t, ColorGreen, items[1].Color)
	assert.True(t, items[1].Editing)
	assert.Equal(t, "new", items[1].NotesDraft)

	assert.Empty(t, BuildList(nil, nil))
}

func TestNotesEditor(t *testing.T) {
	e := &NotesEditor{}

	assert.False(t, e.Update("x"), "update without begin")
	_, _, ok := e.Save()
	assert.False(t, ok)

	e.Begin("a", "first")
	e.Begin("b", "second")
	id, draft := e.State()
	assert.Equal(t, "b", id, "only one booking is edited at a time")
	assert.Equal(t, "second", draft)

	assert.True(t, e.Update("changed"))
	id, notes, ok := e.Save()
	assert.True(t, ok)
	assert.Equal(t, "b", id)
	assert.Equal(t, "changed", notes)

	id, _ = e.State()
	assert.Empty(t, id, "save clears the editor")

	e.Begin("c", "x")
	e.Cancel()
	_, _, ok = e.Save()
	assert.False(t, ok)
}

func TestBuildCalendar_Grouping(t *testing.T) {
	bookings := []models.Booking{
		booking("1", "2024-03-05", "09:00", models.StatusPending),
		booking("2", "2024-03-05", "10:00", models.StatusApproved),
		booking("3", "2024-03-07", "09:00", models.StatusDeclined),
		booking("4", "2024-04-01", "09:00", models.StatusPending),
	}
	today := time.Date(2024, 3, 7, 15, 0, 0, 0, time.UTC)

	cal := BuildCalendar(bookings, MonthCursor{Year: 2024, Month: time.March}, today)

	assert.Equal(t, "March 2024", cal.Title)
	assert.Equal(t, 5, cal.LeadingBlanks, "1 March 2024 is a Friday")
	require.Len(t, cal.Days, 31)

	for _, day := range cal.Days {
		switch day.Day {
		case 5:
			require.Len(t, day.Entries, 2)
			assert.Equal(t, "09:00 - A1", day.Entries[0].Title)
			assert.Equal(t, ColorYellow, day.Entries[0].Color)
			assert.Equal(t, ColorGreen, day.Entries[1].Color)
		case 7:
			require.Len(t, day.Entries, 1)
			assert.Equal(t, ColorRed, day.Entries[0].Color)
			assert.True(t, day.IsToday)
		default:
			assert.Empty(t, day.Entries, "day %d", day.Day)
			assert.False(t, day.IsToday)
		}
	}
}

func TestBuildCalendar_LeapFebruary(t *testing.T) {
	cal := BuildCalendar(nil, MonthCursor{Year: 2024, Month: time.February}, time.Time{})
	assert.Len(t, cal.Days, 29)
	assert.Equal(t, 4, cal.LeadingBlanks)
}

func TestMonthCursor(t *testing.T) {
	c := MonthCursor{Year: 2024, Month: time.December}
	assert.Equal(t, MonthCursor{Year: 2025, Month: time.January}, c.Next())
	assert.Equal(t, MonthCursor{Year: 2024, Month: time.November}, c.Prev())
	assert.Equal(t, c, c.Next().Prev())

	jan := MonthCursor{Year: 2024, Month: time.January}
	assert.Equal(t, MonthCursor{Year: 2023, Month: time.December}, jan.Prev())
}

func TestGroupByDate(t *testing.T) {
	groups := GroupByDate([]models.Booking{
		booking("1", "2024-03-05", "09:00", models.StatusPending),
		booking("2", "2024-03-05", "10:00", models.StatusPending),
	})
	require.Len(t, groups["2024-03-05"], 2)
	assert.Equal(t, "1", groups["2024-03-05"][0].ID)
}
