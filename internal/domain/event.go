package domain

import (
	"time"
)

// Event is the seat-inventory aggregate. The available seat counter is the
// only contended field and is mutated exclusively through the inventory
// store's conditional AdjustSeats operation.
type Event struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Venue          string    `json:"venue"`
	StartsAt       time.Time `json:"starts_at"`
	TotalSeats     int       `json:"total_seats"`
	AvailableSeats int       `json:"available_seats"`
	Price          float64   `json:"price"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// BookedSeats is the ledger-derived sum of non-cancelled reservation
	// quantities. Populated by listing queries only; zero elsewhere.
	BookedSeats int `json:"booked_seats,omitempty"`
}

// HasCapacityFor reports whether quantity seats are currently available.
// Advisory only: the authoritative check happens inside AdjustSeats.
func (e *Event) HasCapacityFor(quantity int) bool {
	return quantity >= 1 && e.AvailableSeats >= quantity
}

// EventSummary carries the event fields embedded in reservation listings.
type EventSummary struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Venue    string    `json:"venue"`
	StartsAt time.Time `json:"starts_at"`
}

// EventWithBookings is the read-only dashboard composition of an event and
// its non-cancelled reservations.
type EventWithBookings struct {
	Event          Event          `json:"event"`
	Reservations   []*Reservation `json:"reservations"`
	ActiveQuantity int            `json:"active_quantity"`
}
