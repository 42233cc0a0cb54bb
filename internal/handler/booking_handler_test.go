package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/seatledger/seatledger/internal/domain"
	"github.com/seatledger/seatledger/internal/dto"
	"github.com/seatledger/seatledger/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockBookingService is a mock implementation of BookingService for testing
type MockBookingService struct {
	CreateBookingFunc        func(ctx context.Context, userID string, req *dto.CreateBookingRequest) (*dto.BookingResponse, error)
	UpdateBookingStatusFunc  func(ctx context.Context, bookingID string, target domain.ReservationStatus) (*dto.BookingResponse, error)
	ListUserBookingsFunc     func(ctx context.Context, userID string, page, limit int) ([]*dto.BookingResponse, error)
	ListBookingsFunc         func(ctx context.Context, status domain.ReservationStatus, page, limit int) (*dto.PaginatedBookingsResponse, error)
	GetEventWithBookingsFunc func(ctx context.Context, eventID string) (*domain.EventWithBookings, error)
	ListEventsFunc           func(ctx context.Context, page, limit int) ([]*domain.Event, error)
	GetEventAvailabilityFunc func(ctx context.Context, eventID string) (*dto.AvailabilityResponse, error)
}

func (m *MockBookingService) CreateBooking(ctx context.Context, userID string, req *dto.CreateBookingRequest) (*dto.BookingResponse, error) {
	if m.CreateBookingFunc != nil {
		return m.CreateBookingFunc(ctx, userID, req)
	}
	return nil, nil
}

func (m *MockBookingService) UpdateBookingStatus(ctx context.Context, bookingID string, target domain.ReservationStatus) (*dto.BookingResponse, error) {
	if m.UpdateBookingStatusFunc != nil {
		return m.UpdateBookingStatusFunc(ctx, bookingID, target)
	}
	return nil, nil
}

func (m *MockBookingService) ListUserBookings(ctx context.Context, userID string, page, limit int) ([]*dto.BookingResponse, error) {
	if m.ListUserBookingsFunc != nil {
		return m.ListUserBookingsFunc(ctx, userID, page, limit)
	}
	return []*dto.BookingResponse{}, nil
}

func (m *MockBookingService) ListBookings(ctx context.Context, status domain.ReservationStatus, page, limit int) (*dto.PaginatedBookingsResponse, error) {
	if m.ListBookingsFunc != nil {
		return m.ListBookingsFunc(ctx, status, page, limit)
	}
	return &dto.PaginatedBookingsResponse{}, nil
}

func (m *MockBookingService) GetEventWithBookings(ctx context.Context, eventID string) (*domain.EventWithBookings, error) {
	if m.GetEventWithBookingsFunc != nil {
		return m.GetEventWithBookingsFunc(ctx, eventID)
	}
	return nil, domain.ErrEventNotFound
}

func (m *MockBookingService) ListEvents(ctx context.Context, page, limit int) ([]*domain.Event, error) {
	if m.ListEventsFunc != nil {
		return m.ListEventsFunc(ctx, page, limit)
	}
	return []*domain.Event{}, nil
}

func (m *MockBookingService) GetEventAvailability(ctx context.Context, eventID string) (*dto.AvailabilityResponse, error) {
	if m.GetEventAvailabilityFunc != nil {
		return m.GetEventAvailabilityFunc(ctx, eventID)
	}
	return nil, domain.ErrEventNotFound
}

func setupTestRouter(svc *MockBookingService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.UserID())

	bookingHandler := NewBookingHandler(svc)
	adminHandler := NewAdminHandler(svc)

	api := router.Group("/api/v1")
	{
		api.POST("/bookings", bookingHandler.CreateBooking)
		api.GET("/bookings", bookingHandler.ListMyBookings)
		api.GET("/events/:id/availability", bookingHandler.GetAvailability)
	}

	admin := router.Group("/admin")
	{
		admin.GET("/bookings", adminHandler.ListBookings)
		admin.PATCH("/bookings/:id/status", adminHandler.UpdateBookingStatus)
		admin.GET("/events", adminHandler.ListEvents)
		admin.GET("/events/:id", adminHandler.GetEventWithBookings)
	}

	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(middleware.UserIDHeader, userID)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateBookingHandler(t *testing.T) {
	tests := []struct {
		name           string
		userID         string
		body           interface{}
		mockFunc       func(ctx context.Context, userID string, req *dto.CreateBookingRequest) (*dto.BookingResponse, error)
		expectedStatus int
		expectedCode   string
	}{
		{
			name:   "successful booking",
			userID: "user-1",
			body:   dto.CreateBookingRequest{EventID: "event-001", Quantity: 2},
			mockFunc: func(ctx context.Context, userID string, req *dto.CreateBookingRequest) (*dto.BookingResponse, error) {
				return &dto.BookingResponse{ID: "res-1", UserID: userID, EventID: req.EventID, Quantity: req.Quantity, Status: "pending"}, nil
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing user identity",
			userID:         "",
			body:           dto.CreateBookingRequest{EventID: "event-001", Quantity: 2},
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   "UNAUTHORIZED",
		},
		{
			name:           "missing quantity",
			userID:         "user-1",
			body:           map[string]interface{}{"event_id": "event-001"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "INVALID_REQUEST",
		},
		{
			name:   "event not found",
			userID: "user-1",
			body:   dto.CreateBookingRequest{EventID: "missing", Quantity: 2},
			mockFunc: func(ctx context.Context, userID string, req *dto.CreateBookingRequest) (*dto.BookingResponse, error) {
				return nil, domain.ErrEventNotFound
			},
			expectedStatus: http.StatusNotFound,
			expectedCode:   "NOT_FOUND",
		},
		{
			name:   "insufficient seats",
			userID: "user-1",
			body:   dto.CreateBookingRequest{EventID: "event-001", Quantity: 50},
			mockFunc: func(ctx context.Context, userID string, req *dto.CreateBookingRequest) (*dto.BookingResponse, error) {
				return nil, &domain.InsufficientSeatsError{EventID: req.EventID, Requested: 50, Available: 3}
			},
			expectedStatus: http.StatusConflict,
			expectedCode:   "INSUFFICIENT_SEATS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter(&MockBookingService{CreateBookingFunc: tt.mockFunc})

			w := doJSON(t, router, http.MethodPost, "/api/v1/bookings", tt.userID, tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedCode != "" {
				var resp struct {
					Success bool `json:"success"`
					Error   *struct {
						Code string `json:"code"`
					} `json:"error"`
				}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.False(t, resp.Success)
				require.NotNil(t, resp.Error)
				assert.Equal(t, tt.expectedCode, resp.Error.Code)
			}
		})
	}
}

func TestListMyBookingsHandler(t *testing.T) {
	var gotPage, gotLimit int
	svc := &MockBookingService{
		ListUserBookingsFunc: func(ctx context.Context, userID string, page, limit int) ([]*dto.BookingResponse, error) {
			gotPage, gotLimit = page, limit
			return []*dto.BookingResponse{{ID: "res-1", UserID: userID}}, nil
		},
	}
	router := setupTestRouter(svc)

	w := doJSON(t, router, http.MethodGet, "/api/v1/bookings?page=3&limit=10", "user-1", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, gotPage)
	assert.Equal(t, 10, gotLimit)
}

func TestGetAvailabilityHandler(t *testing.T) {
	svc := &MockBookingService{
		GetEventAvailabilityFunc: func(ctx context.Context, eventID string) (*dto.AvailabilityResponse, error) {
			return &dto.AvailabilityResponse{EventID: eventID, TotalSeats: 100, AvailableSeats: 37}, nil
		},
	}
	router := setupTestRouter(svc)

	w := doJSON(t, router, http.MethodGet, "/api/v1/events/event-001/availability", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data dto.AvailabilityResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 37, resp.Data.AvailableSeats)
}

func TestUpdateBookingStatusHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		mockFunc       func(ctx context.Context, bookingID string, target domain.ReservationStatus) (*dto.BookingResponse, error)
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "confirm",
			body: dto.UpdateBookingStatusRequest{Status: "confirmed"},
			mockFunc: func(ctx context.Context, bookingID string, target domain.ReservationStatus) (*dto.BookingResponse, error) {
				assert.Equal(t, domain.StatusConfirmed, target)
				return &dto.BookingResponse{ID: bookingID, Status: "confirmed"}, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "illegal transition",
			body: dto.UpdateBookingStatusRequest{Status: "confirmed"},
			mockFunc: func(ctx context.Context, bookingID string, target domain.ReservationStatus) (*dto.BookingResponse, error) {
				return nil, &domain.InvalidTransitionError{From: domain.StatusCancelled, To: target}
			},
			expectedStatus: http.StatusConflict,
			expectedCode:   "INVALID_TRANSITION",
		},
		{
			name: "concurrent modification",
			body: dto.UpdateBookingStatusRequest{Status: "cancelled"},
			mockFunc: func(ctx context.Context, bookingID string, target domain.ReservationStatus) (*dto.BookingResponse, error) {
				return nil, domain.ErrTransitionConflict
			},
			expectedStatus: http.StatusConflict,
			expectedCode:   "CONCURRENT_MODIFICATION",
		},
		{
			name: "unknown status",
			body: dto.UpdateBookingStatusRequest{Status: "reserved"},
			mockFunc: func(ctx context.Context, bookingID string, target domain.ReservationStatus) (*dto.BookingResponse, error) {
				return nil, domain.ErrInvalidStatus
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "BAD_REQUEST",
		},
		{
			name:           "missing status",
			body:           map[string]interface{}{},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "BAD_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter(&MockBookingService{UpdateBookingStatusFunc: tt.mockFunc})

			w := doJSON(t, router, http.MethodPatch, "/admin/bookings/res-1/status", "", tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedCode != "" {
				var resp struct {
					Error *struct {
						Code string `json:"code"`
					} `json:"error"`
				}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				require.NotNil(t, resp.Error)
				assert.Equal(t, tt.expectedCode, resp.Error.Code)
			}
		})
	}
}

func TestListBookingsHandler(t *testing.T) {
	var gotStatus domain.ReservationStatus
	svc := &MockBookingService{
		ListBookingsFunc: func(ctx context.Context, status domain.ReservationStatus, page, limit int) (*dto.PaginatedBookingsResponse, error) {
			gotStatus = status
			return &dto.PaginatedBookingsResponse{
				Data: []*dto.BookingResponse{{ID: "res-1", Status: "pending"}},
				Meta: dto.NewPaginationMeta(page, limit, 1),
			}, nil
		},
	}
	router := setupTestRouter(svc)

	w := doJSON(t, router, http.MethodGet, "/admin/bookings?status=pending", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.StatusPending, gotStatus)

	var resp struct {
		Data []dto.BookingResponse `json:"data"`
		Meta dto.PaginationMeta    `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 1)
	assert.Equal(t, int64(1), resp.Meta.Total)
}

func TestListEventsHandler(t *testing.T) {
	svc := &MockBookingService{
		ListEventsFunc: func(ctx context.Context, page, limit int) ([]*domain.Event, error) {
			return []*domain.Event{
				{ID: "event-001", TotalSeats: 100, AvailableSeats: 60, BookedSeats: 40},
			}, nil
		},
	}
	router := setupTestRouter(svc)

	w := doJSON(t, router, http.MethodGet, "/admin/events", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []domain.Event `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, 40, resp.Data[0].BookedSeats)
}

func TestGetEventWithBookingsHandler(t *testing.T) {
	svc := &MockBookingService{
		GetEventWithBookingsFunc: func(ctx context.Context, eventID string) (*domain.EventWithBookings, error) {
			return &domain.EventWithBookings{
				Event:          domain.Event{ID: eventID, TotalSeats: 100, AvailableSeats: 95},
				Reservations:   []*domain.Reservation{{ID: "res-1", Quantity: 5, Status: domain.StatusConfirmed}},
				ActiveQuantity: 5,
			}, nil
		},
	}
	router := setupTestRouter(svc)

	w := doJSON(t, router, http.MethodGet, "/admin/events/event-001", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
}
