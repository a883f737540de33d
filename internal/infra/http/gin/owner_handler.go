package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"venuebook/internal/app/dto"
	bookingapp "venuebook/internal/app/handlers/booking"
	"venuebook/internal/app/queries"
)

type OwnerHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

// Bookings lists the booked dates of a venue the caller owns.
func (h OwnerHandler) Bookings(c *gin.Context) {
	p, ok := requireOwner(c)
	if !ok {
		return
	}
	query := bookingapp.ListVenueBookingsQuery{OwnerID: p.OwnerID, VenueID: strings.TrimSpace(c.Param("id"))}
	result, err := queries.Ask[bookingapp.ListVenueBookingsQuery, dto.VenueBookingCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ OwnerHTTP = OwnerHandler{}
