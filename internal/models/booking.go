package models

import "time"

type Booking struct {
	ID            string    `json:"id"`
	PhoneNumber   string    `json:"phone_number"`
	BookingDate   string    `json:"booking_date"` // YYYY-MM-DD
	BookingTime   string    `json:"booking_time"`
	CarVIN        string    `json:"car_vin,omitempty"`
	CarPlate      string    `json:"car_plate"`
	ServiceType   string    `json:"service_type"`
	Price         float64   `json:"price"`
	Status        string    `json:"status"` // pending, approved, declined
	CustomerNotes string    `json:"customer_notes,omitempty"`
	AdminNotes    string    `json:"admin_notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsTerminal reports whether the booking can no longer change status.
func (b *Booking) IsTerminal() bool {
	return b.Status == StatusApproved || b.Status == StatusDeclined
}

// BookingDraft is the raw public form input before validation.
type BookingDraft struct {
	PhoneNumber   string `json:"phone_number"`
	BookingDate   string `json:"booking_date"`
	BookingTime   string `json:"booking_time"`
	CarVIN        string `json:"car_vin"`
	CarPlate      string `json:"car_plate"`
	ServiceType   string `json:"service_type"`
	CustomerNotes string `json:"customer_notes"`
}

// Counts aggregates a booking snapshot by status.
type Counts struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Declined int `json:"declined"`
}

// CountByStatus computes aggregate counts over the whole slice.
func CountByStatus(bookings []Booking) Counts {
	c := Counts{Total: len(bookings)}
	for i := range bookings {
		switch bookings[i].Status {
		case StatusPending:
			c.Pending++
		case StatusApproved:
			c.Approved++
		case StatusDeclined:
			c.Declined++
		}
	}
	return c
}
