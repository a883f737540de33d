package ginserver

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"venuebook/internal/app/commands"
	"venuebook/internal/app/dto"
	availabilityapp "venuebook/internal/app/handlers/availability"
	bookingapp "venuebook/internal/app/handlers/booking"
	"venuebook/internal/app/queries"
	domainbooking "venuebook/internal/domain/booking"
)

const headerIdempotencyKey = "Idempotency-Key"

type VenueHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

// bookingRequest mirrors the body the storefront posts for a booking.
type bookingRequest struct {
	DateFrom string `json:"dateFrom"`
	DateTo   string `json:"dateTo"`
	Guests   int    `json:"guests"`
}

func (h VenueHandler) Availability(c *gin.Context) {
	p, ok := requireSession(c)
	if !ok {
		return
	}
	query := availabilityapp.OpenViewQuery{SessionID: p.SessionID, VenueID: strings.TrimSpace(c.Param("id"))}
	result, err := queries.Ask[availabilityapp.OpenViewQuery, dto.Availability](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h VenueHandler) Validate(c *gin.Context) {
	p, ok := requireSession(c)
	if !ok {
		return
	}
	req, ok := bindBookingRequest(c)
	if !ok {
		return
	}
	query := bookingapp.ValidateBookingQuery{
		SessionID: p.SessionID,
		VenueID:   strings.TrimSpace(c.Param("id")),
		DateFrom:  req.DateFrom,
		DateTo:    req.DateTo,
		Guests:    req.Guests,
	}
	result, err := queries.Ask[bookingapp.ValidateBookingQuery, dto.Validation](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h VenueHandler) Submit(c *gin.Context) {
	p, ok := requireSession(c)
	if !ok {
		return
	}
	req, ok := bindBookingRequest(c)
	if !ok {
		return
	}
	cmd := bookingapp.SubmitBookingCommand{
		SessionID:   p.SessionID,
		VenueID:     strings.TrimSpace(c.Param("id")),
		DateFrom:    req.DateFrom,
		DateTo:      req.DateTo,
		Guests:      req.Guests,
		CustomerID:  p.CustomerID,
		AccessToken: p.Token,
	}
	if key := strings.TrimSpace(c.GetHeader(headerIdempotencyKey)); key != "" {
		// a key only repeats within the session that issued it
		cmd.IdempotencyKeyV = p.SessionID + "/" + key
	}
	result, err := commands.Dispatch[bookingapp.SubmitBookingCommand, *dto.BookingOutcome](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	if result == nil {
		respondWithError(c, h.Logger, errors.New("empty booking outcome"))
		return
	}
	status := outcomeStatus(domainbooking.State(result.State), domainbooking.Reason(result.Reason), result.Discarded)
	c.JSON(status, result)
}

func (h VenueHandler) CloseView(c *gin.Context) {
	p, ok := requireSession(c)
	if !ok {
		return
	}
	cmd := bookingapp.CloseViewCommand{SessionID: p.SessionID, VenueID: strings.TrimSpace(c.Param("id"))}
	result, err := commands.Dispatch[bookingapp.CloseViewCommand, bookingapp.CloseViewResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h VenueHandler) CloseSession(c *gin.Context) {
	p, ok := requireSession(c)
	if !ok {
		return
	}
	result, err := commands.Dispatch[bookingapp.CloseViewCommand, bookingapp.CloseViewResult](c.Request.Context(), h.Commands,
		bookingapp.CloseViewCommand{SessionID: p.SessionID})
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func bindBookingRequest(c *gin.Context) (bookingRequest, bool) {
	var req bookingRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return bookingRequest{}, false
	}
	return req, true
}

var _ VenueHTTP = VenueHandler{}
