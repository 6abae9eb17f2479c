// Package conflict decides whether a proposed booking range may be saved.
package conflict

import (
	"fmt"

	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/model"
)

// Candidate is a proposed [Start, End) in Room on Date. ExcludeID names the
// booking being edited so it does not conflict with itself.
type Candidate struct {
	Date      string
	Room      string
	Start     model.Clock
	End       model.Clock
	ExcludeID string
}

func FromInput(in model.BookingInput, excludeID string) Candidate {
	return Candidate{Date: in.Date, Room: in.Room, Start: in.StartTime, End: in.EndTime, ExcludeID: excludeID}
}

// Validate rejects an empty or inverted range with model.ErrValidation, and a
// range overlapping another booking of the same room and date with model.ErrConflict.
// The same check runs on the client before submit and in the store before write.
func Validate(bookings []model.Booking, c Candidate) error {
	if c.Start >= c.End {
		return model.Validationf("start time must be before end time")
	}
	for _, b := range bookings {
		if b.Date != c.Date || b.Room != c.Room {
			continue
		}
		if c.ExcludeID != "" && b.ID == c.ExcludeID {
			continue
		}
		if availability.Overlaps(c.Start, c.End, b.StartTime, b.EndTime) {
			return fmt.Errorf("%w: %s %s-%s overlaps %s-%s", model.ErrConflict,
				c.Room, c.Start, c.End, b.StartTime, b.EndTime)
		}
	}
	return nil
}

// ValidateBlocks applies the same rule against other instructors' room blocks,
// which carry no date because a snapshot is already one day.
func ValidateBlocks(blocks []model.RoomBlock, c Candidate) error {
	for _, b := range blocks {
		if b.Room == c.Room && availability.Overlaps(c.Start, c.End, b.StartTime, b.EndTime) {
			return fmt.Errorf("%w: %s is held by %s from %s to %s", model.ErrConflict,
				c.Room, b.Instructor, b.StartTime, b.EndTime)
		}
	}
	return nil
}
