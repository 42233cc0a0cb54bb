package dto

import (
	"time"

	"github.com/seatledger/seatledger/internal/domain"
)

// CreateBookingRequest represents a request to reserve seats for an event
type CreateBookingRequest struct {
	EventID  string `json:"event_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
}

// UpdateBookingStatusRequest represents an admin status transition request
type UpdateBookingStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// EventSummary mirrors the event fields embedded in booking responses
type EventSummary struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Venue    string    `json:"venue"`
	StartsAt time.Time `json:"starts_at"`
}

// BookingResponse represents a reservation in API responses
type BookingResponse struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	EventID     string        `json:"event_id"`
	Quantity    int           `json:"quantity"`
	TotalAmount float64       `json:"total_amount"`
	Status      string        `json:"status"`
	BookedAt    time.Time     `json:"booked_at"`
	Event       *EventSummary `json:"event,omitempty"`
}

// AvailabilityResponse reports current seat availability for an event
type AvailabilityResponse struct {
	EventID        string `json:"event_id"`
	TotalSeats     int    `json:"total_seats"`
	AvailableSeats int    `json:"available_seats"`
}

// PaginationMeta carries paging metadata for admin listings
type PaginationMeta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

// NewPaginationMeta computes metadata with pages = ceil(total/limit).
func NewPaginationMeta(page, limit int, total int64) PaginationMeta {
	pages := int64(0)
	if limit > 0 {
		pages = (total + int64(limit) - 1) / int64(limit)
	}
	return PaginationMeta{
		Page:  page,
		Limit: limit,
		Total: total,
		Pages: pages,
	}
}

// PaginatedBookingsResponse is the admin listing payload
type PaginatedBookingsResponse struct {
	Data []*BookingResponse `json:"data"`
	Meta PaginationMeta     `json:"meta"`
}

// FromDomain converts a domain Reservation to a BookingResponse
func FromDomain(r *domain.Reservation) *BookingResponse {
	resp := &BookingResponse{
		ID:          r.ID,
		UserID:      r.UserID,
		EventID:     r.EventID,
		Quantity:    r.Quantity,
		TotalAmount: r.TotalAmount,
		Status:      r.Status.String(),
		BookedAt:    r.BookedAt,
	}
	if r.Event != nil {
		resp.Event = &EventSummary{
			ID:       r.Event.ID,
			Title:    r.Event.Title,
			Venue:    r.Event.Venue,
			StartsAt: r.Event.StartsAt,
		}
	}
	return resp
}

// FromDomainList converts a slice of reservations
func FromDomainList(rs []*domain.Reservation) []*BookingResponse {
	out := make([]*BookingResponse, len(rs))
	for i, r := range rs {
		out[i] = FromDomain(r)
	}
	return out
}
