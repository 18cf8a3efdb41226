package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountByStatus(t *testing.T) {
	bookings := []Booking{
		{ID: "1", Status: StatusPending},
		{ID: "2", Status: StatusPending},
		{ID: "3", Status: StatusApproved},
		{ID: "4", Status: StatusDeclined},
		{ID: "5", Status: StatusApproved},
	}

	c := CountByStatus(bookings)
	assert.Equal(t, Counts{Total: 5, Pending: 2, Approved: 2, Declined: 1}, c)
	assert.Equal(t, Counts{}, CountByStatus(nil))
}

func TestStatusFilter(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		assert.True(t, FilterAll.Valid())
		assert.True(t, FilterDeclined.Valid())
		assert.False(t, StatusFilter("archived").Valid())
		assert.False(t, StatusFilter("").Valid())
	})

	t.Run("Match", func(t *testing.T) {
		assert.True(t, FilterAll.Match(StatusDeclined))
		assert.True(t, FilterPending.Match(StatusPending))
		assert.False(t, FilterPending.Match(StatusApproved))
	})
}

func TestCatalogLookup(t *testing.T) {
	c := Catalog{
		Services: []ServiceType{
			{Key: "oil", BasePrice: 50, Active: true},
			{Key: "legacy", BasePrice: 10, Active: false},
		},
		Slots: []TimeSlot{{Label: "09:00", Active: true}, {Label: "18:00", Active: false}},
	}

	s, ok := c.Service("oil")
	assert.True(t, ok)
	assert.Equal(t, 50.0, s.BasePrice)

	_, ok = c.Service("legacy")
	assert.False(t, ok)

	assert.True(t, c.HasSlot("09:00"))
	assert.False(t, c.HasSlot("18:00"))
	assert.False(t, c.HasSlot("10:00"))
}

func TestBookingIsTerminal(t *testing.T) {
	assert.False(t, (&Booking{Status: StatusPending}).IsTerminal())
	assert.True(t, (&Booking{Status: StatusApproved}).IsTerminal())
	assert.True(t, (&Booking{Status: StatusDeclined}).IsTerminal())
}
