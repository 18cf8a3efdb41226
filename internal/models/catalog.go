package models

import "time"

type ServiceType struct {
	Key             string    `yaml:"key" json:"key"`
	NameKey         string    `yaml:"name_key" json:"name_key"`
	BasePrice       float64   `yaml:"base_price" json:"base_price"`
	DurationMinutes int       `yaml:"duration_minutes" json:"duration_minutes"`
	Active          bool      `yaml:"active" json:"active"`
	CreatedAt       time.Time `yaml:"-" json:"created_at"`
}

type TimeSlot struct {
	Label      string    `yaml:"label" json:"label"`
	OrderIndex int       `yaml:"order_index" json:"order_index"`
	Active     bool      `yaml:"active" json:"active"`
	CreatedAt  time.Time `yaml:"-" json:"created_at"`
}

// Catalog is the reference data a booking form is rendered and validated against.
type Catalog struct {
	Services []ServiceType `json:"services"`
	Slots    []TimeSlot    `json:"time_slots"`
}

// Service returns the active service with the given key.
func (c Catalog) Service(key string) (ServiceType, bool) {
	for _, s := range c.Services {
		if s.Key == key && s.Active {
			return s, true
		}
	}
	return ServiceType{}, false
}

// HasSlot reports whether label is one of the active slots.
func (c Catalog) HasSlot(label string) bool {
	for _, s := range c.Slots {
		if s.Label == label && s.Active {
			return true
		}
	}
	return false
}
