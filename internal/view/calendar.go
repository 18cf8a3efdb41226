package view

import (
	"fmt"
	"time"

	"autoservice/internal/models"
)

// MonthCursor is the month displayed by the calendar. Moving it never
// touches booking data.
type MonthCursor struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

func NewMonthCursor(t time.Time) MonthCursor {
	return MonthCursor{Year: t.Year(), Month: t.Month()}
}

func (c MonthCursor) first() time.Time {
	return time.Date(c.Year, c.Month, 1, 0, 0, 0, 0, time.UTC)
}

func (c MonthCursor) Next() MonthCursor {
	return NewMonthCursor(c.first().AddDate(0, 1, 0))
}

func (c MonthCursor) Prev() MonthCursor {
	return NewMonthCursor(c.first().AddDate(0, -1, 0))
}

func (c MonthCursor) Title() string {
	return fmt.Sprintf("%s %d", c.Month, c.Year)
}

type CalendarEntry struct {
	BookingID string `json:"booking_id"`
	Title     string `json:"title"`
	Color     string `json:"color"`
	Status    string `json:"status"`
}

type CalendarDay struct {
	Day     int             `json:"day"`
	Date    string          `json:"date"`
	IsToday bool            `json:"is_today"`
	Entries []CalendarEntry `json:"entries"`
}

type Calendar struct {
	Title         string        `json:"title"`
	Year          int           `json:"year"`
	Month         int           `json:"month"`
	LeadingBlanks int           `json:"leading_blanks"`
	Days          []CalendarDay `json:"days"`
}

// GroupByDate indexes bookings by their ISO booking date, keeping order.
func GroupByDate(bookings []models.Booking) map[string][]models.Booking {
	byDate := make(map[string][]models.Booking)
	for _, b := range bookings {
		byDate[b.BookingDate] = append(byDate[b.BookingDate], b)
	}
	return byDate
}

// BuildCalendar projects bookings onto the month under cursor. Bookings
// outside that month are ignored.
func BuildCalendar(bookings []models.Booking, cursor MonthCursor, today time.Time) Calendar {
	first := cursor.first()
	daysInMonth := first.AddDate(0, 1, -1).Day()
	todayKey := today.Format(models.DateLayout)
	byDate := GroupByDate(bookings)

	cal := Calendar{
		Title:         cursor.Title(),
		Year:          cursor.Year,
		Month:         int(cursor.Month),
		LeadingBlanks: int(first.Weekday()),
		Days:          make([]CalendarDay, 0, daysInMonth),
	}

	for day := 1; day <= daysInMonth; day++ {
		key := first.AddDate(0, 0, day-1).Format(models.DateLayout)
		entries := make([]CalendarEntry, 0, len(byDate[key]))
		for _, b := range byDate[key] {
			entries = append(entries, CalendarEntry{
				BookingID: b.ID,
				Title:     b.BookingTime + " - " + b.CarPlate,
				Color:     StatusColor(b.Status),
				Status:    b.Status,
			})
		}
		cal.Days = append(cal.Days, CalendarDay{
			Day:     day,
			Date:    key,
			IsToday: key == todayKey,
			Entries: entries,
		})
	}
	return cal
}
