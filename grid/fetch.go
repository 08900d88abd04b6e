package grid

import (
	"context"
	"time"

	"github.com/picklecourt/courtdesk/remote"
)

// SlotsPath is the public booking-slot endpoint.
const SlotsPath = "/court/public/booking_slot"

// Getter is satisfied by *remote.Client.
type Getter interface {
	Get(ctx context.Context, path string, params remote.Params, out any) error
}

// FetchSlots loads the courts and slots of courtID on date.
func FetchSlots(ctx context.Context, client Getter, courtID string, date time.Time) ([]Court, error) {
	var courts []Court
	err := client.Get(ctx, SlotsPath, remote.Params{
		"courtId":     courtID,
		"dateBooking": date.Format(remote.DateLayout),
	}, &courts)
	if err != nil {
		return nil, err
	}
	return courts, nil
}
