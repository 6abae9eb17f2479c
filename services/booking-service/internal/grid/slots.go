// Package grid materializes a day's bookable time grid and the render layout of
// bookings and room blocks over it.
package grid

import (
	"fmt"
	"strings"

	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/model"
)

// TimeSlot is one column of the day grid. End is the next slot's Time, or the
// closing boundary for the last slot.
type TimeSlot struct {
	Time   model.Clock `json:"time"`
	Hour   int         `json:"hour"`
	Minute int         `json:"minute"`
	End    model.Clock `json:"end"`
}

// Config is the externally supplied shape of the bookable day.
type Config struct {
	StartHour   int      `json:"startHour"`
	EndHour     int      `json:"endHour"`
	SlotMinutes int      `json:"slotMinutes"`
	Rooms       []string `json:"rooms"`
}

func (c Config) Validate() error {
	switch {
	case c.StartHour < 0 || c.EndHour > 24 || c.StartHour >= c.EndHour:
		return fmt.Errorf("invalid day window %d..%d", c.StartHour, c.EndHour)
	case c.SlotMinutes <= 0:
		return fmt.Errorf("slot minutes must be positive (got %d)", c.SlotMinutes)
	case ((c.EndHour-c.StartHour)*60)%c.SlotMinutes != 0:
		return fmt.Errorf("slot minutes %d do not divide the %d..%d window", c.SlotMinutes, c.StartHour, c.EndHour)
	}
	seen := make(map[string]struct{}, len(c.Rooms))
	for _, room := range c.Rooms {
		if strings.TrimSpace(room) == "" {
			return fmt.Errorf("room names must not be blank")
		}
		if _, dup := seen[room]; dup {
			return fmt.Errorf("duplicate room %q", room)
		}
		seen[room] = struct{}{}
	}
	return nil
}

func (c Config) DayStart() model.Clock { return model.At(c.StartHour, 0) }
func (c Config) DayEnd() model.Clock   { return model.At(c.EndHour, 0) }

// CheckRange rejects a [start,end) range that leaves the bookable window or does
// not sit on slot boundaries. Such a range has no column to render into.
func (c Config) CheckRange(start, end model.Clock) error {
	if start < c.DayStart() || end > c.DayEnd() {
		return model.Validationf("%s-%s is outside the bookable window %s-%s", start, end, c.DayStart(), c.DayEnd())
	}
	if c.SlotMinutes > 0 && (!c.onBoundary(start) || !c.onBoundary(end)) {
		return model.Validationf("%s-%s is not aligned to %d-minute slots", start, end, c.SlotMinutes)
	}
	return nil
}

func (c Config) onBoundary(t model.Clock) bool {
	return int(t-c.DayStart())%c.SlotMinutes == 0
}

// Slots regenerates the grid for c; it is never cached so config changes always apply.
func (c Config) Slots() []TimeSlot {
	return GenerateSlots(c.StartHour, c.EndHour, c.SlotMinutes)
}

// GenerateSlots partitions [startHour:00, endHour:00) into slotMinutes-wide slots.
// Degenerate inputs yield no slots.
func GenerateSlots(startHour, endHour, slotMinutes int) []TimeSlot {
	if slotMinutes <= 0 || startHour < 0 || endHour > 24 || startHour >= endHour {
		return nil
	}
	total := (endHour - startHour) * 60
	dayStart := model.At(startHour, 0)
	dayEnd := model.At(endHour, 0)

	slots := make([]TimeSlot, 0, (total+slotMinutes-1)/slotMinutes)
	for m := 0; m < total; m += slotMinutes {
		t := dayStart + model.Clock(m)
		end := t + model.Clock(slotMinutes)
		if end > dayEnd {
			end = dayEnd
		}
		slots = append(slots, TimeSlot{
			Time:   t,
			Hour:   t.Hour(),
			Minute: t.Minute(),
			End:    end,
		})
	}
	return slots
}

// IndexOf returns the position of the slot starting at t, or -1.
func IndexOf(slots []TimeSlot, t model.Clock) int {
	for i, s := range slots {
		if s.Time == t {
			return i
		}
	}
	return -1
}

// EndOptions lists the end times selectable for a booking starting at start:
// every later slot boundary plus the closing boundary.
func EndOptions(slots []TimeSlot, start, dayEnd model.Clock) []model.Clock {
	var out []model.Clock
	for _, s := range slots {
		if s.Time > start {
			out = append(out, s.Time)
		}
	}
	return append(out, dayEnd)
}
