package domain

import (
	"time"
)

// BookingEventType identifies a booking lifecycle event on the wire.
type BookingEventType string

const (
	BookingEventCreated   BookingEventType = "booking.created"
	BookingEventConfirmed BookingEventType = "booking.confirmed"
	BookingEventCancelled BookingEventType = "booking.cancelled"
)

// StatusChangeNotification is the payload handed to the notification
// collaborator when a reservation changes state. Delivery is fire-and-forget;
// the collaborator resolves the recipient from the user id.
type StatusChangeNotification struct {
	EventID       string            `json:"event_id"`
	ReservationID string            `json:"reservation_id"`
	UserID        string            `json:"user_id"`
	EventTitle    string            `json:"event_title"`
	EventDate     time.Time         `json:"event_date"`
	Venue         string            `json:"venue"`
	Quantity      int               `json:"quantity"`
	TotalAmount   float64           `json:"total_amount"`
	Status        ReservationStatus `json:"status"`
}

// BookingEvent is the envelope published for every lifecycle change.
type BookingEvent struct {
	EventID   string                   `json:"event_id"`
	Type      BookingEventType         `json:"type"`
	Payload   StatusChangeNotification `json:"payload"`
	Timestamp time.Time                `json:"timestamp"`
}

// Key returns the partition key: all events for one reservation stay ordered.
func (e *BookingEvent) Key() string {
	return e.Payload.ReservationID
}
