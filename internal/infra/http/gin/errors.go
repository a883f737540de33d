package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	bookingapp "venuebook/internal/app/handlers/booking"
	"venuebook/internal/app/middleware"
	"venuebook/internal/app/policies"
	bookingsvc "venuebook/internal/app/services/booking"
	domainbooking "venuebook/internal/domain/booking"
	"venuebook/internal/domain/venues"
)

// errorStatus maps application errors onto HTTP statuses.
func errorStatus(err error) int {
	var storeErr *policies.StoreError
	switch {
	case errors.Is(err, venues.ErrVenueNotFound):
		return http.StatusNotFound
	case errors.Is(err, bookingapp.ErrVenueNotOwned):
		return http.StatusForbidden
	case errors.Is(err, middleware.ErrInvalidMessage),
		errors.Is(err, bookingsvc.ErrSessionRequired),
		errors.Is(err, bookingsvc.ErrVenueMismatch):
		return http.StatusBadRequest
	case errors.Is(err, bookingsvc.ErrViewClosed):
		return http.StatusConflict
	case errors.Is(err, venues.ErrMaxGuests),
		errors.Is(err, venues.ErrIDRequired),
		errors.Is(err, venues.ErrNegativePrice):
		return http.StatusBadGateway
	case errors.As(err, &storeErr):
		if storeErr.Status == http.StatusNotFound {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// outcomeStatus maps a booking outcome onto an HTTP status.
func outcomeStatus(state domainbooking.State, reason domainbooking.Reason, discarded bool) int {
	if discarded {
		return http.StatusGone
	}
	if state == domainbooking.StateConfirmed {
		return http.StatusCreated
	}
	switch reason {
	case domainbooking.ReasonDateRangeConflict, domainbooking.ReasonConflictAfterSubmit:
		return http.StatusConflict
	case domainbooking.ReasonAlreadyInProgress:
		return http.StatusTooManyRequests
	case domainbooking.ReasonRemoteError:
		return http.StatusBadGateway
	default:
		return http.StatusUnprocessableEntity
	}
}

func respondWithError(c *gin.Context, logger *slog.Logger, err error) {
	status := errorStatus(err)
	if logger != nil {
		level := slog.LevelWarn
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request failed",
			"status", status,
			"error", err,
			"path", c.FullPath(),
			"session_id", currentPrincipal(c).SessionID)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
