package domain

import (
	"time"
)

// ReservationStatus is the closed set of reservation lifecycle states.
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCancelled ReservationStatus = "cancelled"
)

// String returns the status as a string
func (s ReservationStatus) String() string {
	return string(s)
}

// Valid reports whether s is one of the known states.
func (s ReservationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether s -> target is a legal transition.
// Legal transitions: pending -> confirmed, pending -> cancelled,
// confirmed -> cancelled. Both confirmed and cancelled are otherwise terminal.
func (s ReservationStatus) CanTransitionTo(target ReservationStatus) bool {
	switch s {
	case StatusPending:
		return target == StatusConfirmed || target == StatusCancelled
	case StatusConfirmed:
		return target == StatusCancelled
	}
	return false
}

// Active reports whether the reservation still holds seats.
func (s ReservationStatus) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Reservation is one ledger entry per booking attempt. UserID, EventID,
// Quantity, TotalAmount and BookedAt are immutable after creation; only
// Status moves, through the transitions above.
type Reservation struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	EventID     string            `json:"event_id"`
	Quantity    int               `json:"quantity"`
	TotalAmount float64           `json:"total_amount"`
	Status      ReservationStatus `json:"status"`
	BookedAt    time.Time         `json:"booked_at"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`

	// Populated on listing reads via a join; nil elsewhere.
	Event *EventSummary `json:"event,omitempty"`
}

// BelongsToUser checks reservation ownership
func (r *Reservation) BelongsToUser(userID string) bool {
	return r.UserID == userID
}

// IsCancelled reports whether the reservation reached the terminal
// cancelled state.
func (r *Reservation) IsCancelled() bool {
	return r.Status == StatusCancelled
}

// SeatCompensation is a pending inventory adjustment that could not be
// applied inline and must be retried until it lands. Positive delta restores
// seats, negative re-claims them.
type SeatCompensation struct {
	ID            string     `json:"id"`
	EventID       string     `json:"event_id"`
	ReservationID string     `json:"reservation_id,omitempty"`
	Delta         int        `json:"delta"`
	Reason        string     `json:"reason"`
	Applied       bool       `json:"applied"`
	Attempts      int        `json:"attempts"`
	CreatedAt     time.Time  `json:"created_at"`
	AppliedAt     *time.Time `json:"applied_at,omitempty"`
}
