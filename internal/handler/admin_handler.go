package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/seatledger/seatledger/internal/domain"
	"github.com/seatledger/seatledger/internal/dto"
	"github.com/seatledger/seatledger/internal/service"
	"github.com/seatledger/seatledger/pkg/response"
	"github.com/seatledger/seatledger/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// AdminHandler handles back-office booking operations
type AdminHandler struct {
	bookingService service.BookingService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(bookingService service.BookingService) *AdminHandler {
	return &AdminHandler{
		bookingService: bookingService,
	}
}

// ListBookings handles GET /admin/bookings
func (h *AdminHandler) ListBookings(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admin.list_bookings")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	status := domain.ReservationStatus(c.Query("status"))
	page, limit := parsePagination(c)

	span.SetAttributes(
		attribute.String("status", status.String()),
		attribute.Int("page", page),
		attribute.Int("limit", limit),
	)

	result, err := h.bookingService.ListBookings(ctx, status, page, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.Int64("total", result.Meta.Total))
	span.SetStatus(codes.Ok, "")
	response.SuccessWithMeta(c, result.Data, result.Meta)
}

// UpdateBookingStatus handles PATCH /admin/bookings/:id/status
func (h *AdminHandler) UpdateBookingStatus(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admin.update_status")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	bookingID := c.Param("id")
	if bookingID == "" {
		span.SetStatus(codes.Error, "booking id required")
		response.BadRequest(c, "booking id required")
		return
	}

	var req dto.UpdateBookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		response.BadRequest(c, "status is required")
		return
	}

	span.SetAttributes(
		attribute.String("reservation_id", bookingID),
		attribute.String("target_status", req.Status),
	)

	result, err := h.bookingService.UpdateBookingStatus(ctx, bookingID, domain.ReservationStatus(req.Status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, result)
}

// ListEvents handles GET /admin/events
func (h *AdminHandler) ListEvents(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admin.list_events")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	page, limit := parsePagination(c)
	span.SetAttributes(
		attribute.Int("page", page),
		attribute.Int("limit", limit),
	)

	result, err := h.bookingService.ListEvents(ctx, page, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, result)
}

// GetEventWithBookings handles GET /admin/events/:id
func (h *AdminHandler) GetEventWithBookings(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admin.get_event")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	eventID := c.Param("id")
	if eventID == "" {
		span.SetStatus(codes.Error, "event id required")
		response.BadRequest(c, "event id required")
		return
	}
	span.SetAttributes(attribute.String("event_id", eventID))

	result, err := h.bookingService.GetEventWithBookings(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, result)
}
