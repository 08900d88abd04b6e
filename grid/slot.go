package grid

import (
	"encoding/json"
	"strings"
)

// Status is the state of one time slot.
type Status string

const (
	Available Status = "AVAILABLE"
	Booked    Status = "BOOKED"
	Locked    Status = "LOCKED"
	Selected  Status = "SELECTED"
)

// UnmarshalJSON accepts any casing. An empty status is AVAILABLE; anything the client
// does not recognise is treated as LOCKED.
func (s *Status) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = ParseStatus(raw)
	return nil
}

// ParseStatus maps a server status string onto a Status.
func ParseStatus(raw string) Status {
	switch st := Status(strings.ToUpper(strings.TrimSpace(raw))); st {
	case "":
		return Available
	case Available, Booked, Locked, Selected:
		return st
	default:
		return Locked
	}
}

// Slot is one bookable time range of a court.
type Slot struct {
	ID           string  `json:"id,omitempty"`
	StartTime    string  `json:"startTime"`
	EndTime      string  `json:"endTime"`
	DailyPrice   float64 `json:"dailyPrice"`
	StudentPrice float64 `json:"studentPrice"`
	Status       Status  `json:"status"`
}

// Court is one playing surface and its slots for a date.
type Court struct {
	ID    string `json:"courtSlotId"`
	Name  string `json:"courtSlotName"`
	Slots []Slot `json:"bookingSlots"`
}

func (c Court) clone() Court {
	c.Slots = append([]Slot(nil), c.Slots...)
	return c
}

// Selection is a committed slot handed to checkout.
type Selection struct {
	Date         string  `json:"bookingDate"`
	CourtID      string  `json:"courtSlotId"`
	CourtName    string  `json:"courtSlotName"`
	StartTime    string  `json:"startTime"`
	EndTime      string  `json:"endTime"`
	DailyPrice   float64 `json:"dailyPrice"`
	StudentPrice float64 `json:"studentPrice"`
}

// Update is a live status change pushed by the booking service.
type Update struct {
	CourtID   string `json:"courtId"`
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	Status    Status `json:"status"`
}
