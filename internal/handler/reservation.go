package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ticketboss/reservation-api/internal/model"
	"github.com/ticketboss/reservation-api/internal/repository"
	"github.com/ticketboss/reservation-api/internal/service"
)

// ReservationService is the slice of the engine the HTTP layer needs.
// It is satisfied by *service.ReservationService and by fakes in tests.
type ReservationService interface {
	CreateReservation(ctx context.Context, partnerID string, seats int) (*model.Reservation, error)
	CancelReservation(ctx context.Context, reservationID string) error
	GetEventSummary(ctx context.Context) (*model.EventSummary, error)
}

// ReservationHandler translates HTTP requests into engine calls and
// engine errors back into status codes.  Conflicts are reported with a
// distinct reason so a retrying client can tell "retry now"
// (concurrency conflict) from "give up" (no inventory).
type ReservationHandler struct {
	svc ReservationService
}

// NewReservationHandler constructs a handler around the given engine.
func NewReservationHandler(svc ReservationService) *ReservationHandler {
	if svc == nil {
		panic("nil service passed to NewReservationHandler")
	}
	return &ReservationHandler{svc: svc}
}

// createReservationRequest is the expected body of POST /v1/reservations.
type createReservationRequest struct {
	PartnerID string `json:"partnerId"`
	Seats     int    `json:"seats"`
}

// Create handles POST /v1/reservations.  The body must carry a
// non-empty partnerId and an integer seat count between 1 and the
// policy cap.  Responses: 201 with the reservation on success, 400 for
// validation failures, 409 for both insufficient seats and concurrency
// conflicts, 500 for a missing event row or store failure.
func (h *ReservationHandler) Create(c echo.Context) error {
	var body createReservationRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.PartnerID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "partnerId is required"})
	}
	if body.Seats < 1 || body.Seats > service.MaxSeatsPerReservation {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "seats must be between 1 and 10",
		})
	}

	res, err := h.svc.CreateReservation(c.Request().Context(), body.PartnerID, body.Seats)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
		case errors.Is(err, service.ErrInsufficientSeats):
			return c.JSON(http.StatusConflict, echo.Map{"error": "not enough seats left"})
		case errors.Is(err, service.ErrConcurrencyConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "concurrency conflict, please retry"})
		case errors.Is(err, repository.ErrEventNotFound):
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "event not found"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
		}
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"reservationId": res.ReservationID,
		"seats":         res.Seats,
		"status":        res.Status,
	})
}

// Cancel handles DELETE /v1/reservations/:reservationId.  Cancelling an
// unknown or already-cancelled reservation returns 404; success is 204
// with no body.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	reservationID := c.Param("reservationId")
	if reservationID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reservationId is required"})
	}

	if err := h.svc.CancelReservation(c.Request().Context(), reservationID); err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found or already cancelled"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Summary handles GET /v1/reservations.  It returns the event snapshot
// with its live reservation count, or 404 when the event row is absent.
func (h *ReservationHandler) Summary(c echo.Context) error {
	summary, err := h.svc.GetEventSummary(c.Request().Context())
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusOK, summary)
}
