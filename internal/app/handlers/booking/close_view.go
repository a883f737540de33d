package booking

import (
	"context"
	"log/slog"

	"venuebook/internal/app/commands"
	bookingsvc "venuebook/internal/app/services/booking"
	"venuebook/internal/domain/venues"
)

const closeViewKey = "booking.view.close"

// CloseViewCommand ends a venue view. An empty VenueID closes every view of the session.
type CloseViewCommand struct {
	SessionID string `validate:"required"`
	VenueID   string
}

func (c CloseViewCommand) Key() string { return closeViewKey }

type CloseViewResult struct {
	Closed int `json:"closed"`
}

type CloseViewHandler struct {
	Views  *bookingsvc.Views
	Logger *slog.Logger
}

func (h *CloseViewHandler) Handle(ctx context.Context, cmd CloseViewCommand) (CloseViewResult, error) {
	if h.Views == nil {
		return CloseViewResult{}, ErrViewsRequired
	}
	var res CloseViewResult
	if cmd.VenueID == "" {
		res.Closed = h.Views.CloseSession(cmd.SessionID)
	} else if h.Views.Close(cmd.SessionID, venues.VenueID(cmd.VenueID)) {
		res.Closed = 1
	}
	if h.Logger != nil {
		h.Logger.DebugContext(ctx, "venue views closed",
			slog.String("session_id", cmd.SessionID),
			slog.String("venue_id", cmd.VenueID),
			slog.Int("closed", res.Closed))
	}
	return res, nil
}

var _ commands.Handler[CloseViewCommand, CloseViewResult] = (*CloseViewHandler)(nil)
