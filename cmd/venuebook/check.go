package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"venuebook/internal/app/dto"
	"venuebook/internal/domain/availability"
	domainbooking "venuebook/internal/domain/booking"
	"venuebook/internal/domain/shared/daterange"
	"venuebook/internal/domain/venues"
	"venuebook/internal/infra/storage/memory"
)

type checkOptions struct {
	fixtures string
	venueID  string
	from     string
	to       string
	guests   int
	today    string
}

type checkReport struct {
	VenueID     string          `json:"venueId"`
	MaxGuests   int             `json:"maxGuests"`
	Unavailable []dto.DateRange `json:"unavailable"`
	Validation  dto.Validation  `json:"validation"`
}

func newCheckCmd() *cobra.Command {
	var opts checkOptions
	cmd := &cobra.Command{
		Use:     "check",
		Short:   "Validate a booking request against venue fixtures without a server",
		Example: "  venuebook check --fixtures data/venues.json --venue v1 --from 2024-06-10 --to 2024-06-12 --guests 2",
		RunE: func(cmd *cobra.Command, args []string) error {
			valid, err := runCheck(cmd.OutOrStdout(), opts, time.Now())
			if err != nil {
				return err
			}
			if !valid {
				return errors.New("booking request rejected")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.fixtures, "fixtures", "", "venue fixtures JSON file")
	cmd.Flags().StringVar(&opts.venueID, "venue", "", "venue id")
	cmd.Flags().StringVar(&opts.from, "from", "", "first day of the stay")
	cmd.Flags().StringVar(&opts.to, "to", "", "last day of the stay")
	cmd.Flags().IntVar(&opts.guests, "guests", 1, "number of guests")
	cmd.Flags().StringVar(&opts.today, "today", "", "treat this day as today (defaults to the current date)")
	_ = cmd.MarkFlagRequired("fixtures")
	_ = cmd.MarkFlagRequired("venue")
	return cmd
}

// runCheck prints a report and returns whether the request would be accepted.
func runCheck(w io.Writer, opts checkOptions, now time.Time) (bool, error) {
	fixtures, err := memory.LoadFixtures(opts.fixtures)
	if err != nil {
		return false, err
	}
	venue, ok := lo.Find(fixtures, func(v venues.Venue) bool { return string(v.ID) == opts.venueID })
	if !ok {
		return false, fmt.Errorf("venue %q: %w", opts.venueID, venues.ErrVenueNotFound)
	}
	if opts.today != "" {
		if now, err = daterange.ParseDay(opts.today); err != nil {
			return false, fmt.Errorf("--today: %w", err)
		}
	}

	index := availability.FromBookings(venue.ID, venue.Bookings, slog.New(slog.NewTextHandler(io.Discard, nil)))
	res := domainbooking.Validate(domainbooking.Request{
		VenueID:     venue.ID,
		DateFrom:    opts.from,
		DateTo:      opts.to,
		Guests:      opts.guests,
		RequestedAt: now,
	}, index, venue.MaxGuests, now)

	report := checkReport{
		VenueID:     string(venue.ID),
		MaxGuests:   venue.MaxGuests,
		Unavailable: lo.Map(index.UnavailableDates(), func(r daterange.DateRange, _ int) dto.DateRange { return dto.MapDateRange(r) }),
		Validation:  dto.MapValidation(res),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return false, err
	}
	return res.Valid(), nil
}
