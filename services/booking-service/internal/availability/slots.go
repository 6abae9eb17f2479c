package availability

import (
	"slices"
	"sort"

	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/model"
)

type Interval struct {
	Start model.Clock
	End   model.Clock
}

// Overlaps reports whether half-open [aStart,aEnd) and [bStart,bEnd) share any minute.
// Adjacent ranges such as [09:00,09:30) and [09:30,10:00) do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd model.Clock) bool {
	return aStart < bEnd && bStart < aEnd
}

func (i Interval) Overlaps(o Interval) bool {
	return Overlaps(i.Start, i.End, o.Start, o.End)
}

func (i Interval) Contains(t model.Clock) bool {
	return i.Start <= t && t < i.End
}

// Index answers occupancy questions over one day's snapshot. It is read-only once built;
// a new snapshot means a new Index.
type Index struct {
	bookings map[string][]model.Booking
	blocks   map[string][]model.RoomBlock
}

func NewIndex(snapshot model.DaySnapshot) *Index {
	x := &Index{
		bookings: make(map[string][]model.Booking),
		blocks:   make(map[string][]model.RoomBlock),
	}
	for _, b := range snapshot.Bookings {
		x.bookings[b.Room] = append(x.bookings[b.Room], b)
	}
	for _, b := range snapshot.RoomBlocks {
		x.blocks[b.Room] = append(x.blocks[b.Room], b)
	}
	for room := range x.bookings {
		list := x.bookings[room]
		sort.SliceStable(list, func(i, j int) bool { return list[i].StartTime < list[j].StartTime })
	}
	for room := range x.blocks {
		list := x.blocks[room]
		sort.SliceStable(list, func(i, j int) bool { return list[i].StartTime < list[j].StartTime })
	}
	return x
}

// BookingAt returns the booking in room whose range contains t.
func (x *Index) BookingAt(room string, t model.Clock) (model.Booking, bool) {
	for _, b := range x.bookings[room] {
		if b.StartTime > t {
			break
		}
		if (Interval{b.StartTime, b.EndTime}).Contains(t) {
			return b, true
		}
	}
	return model.Booking{}, false
}

// BlockAt returns the other-instructor block in room whose range contains t.
func (x *Index) BlockAt(room string, t model.Clock) (model.RoomBlock, bool) {
	for _, b := range x.blocks[room] {
		if b.StartTime > t {
			break
		}
		if (Interval{b.StartTime, b.EndTime}).Contains(t) {
			return b, true
		}
	}
	return model.RoomBlock{}, false
}

// Bookings returns a copy of room's bookings ordered by start time.
func (x *Index) Bookings(room string) []model.Booking {
	return slices.Clone(x.bookings[room])
}

func (x *Index) Blocks(room string) []model.RoomBlock {
	return slices.Clone(x.blocks[room])
}

// Occupied reports whether [start,end) in room touches any booking or block.
func (x *Index) Occupied(room string, start, end model.Clock) bool {
	for _, b := range x.bookings[room] {
		if Overlaps(start, end, b.StartTime, b.EndTime) {
			return true
		}
	}
	for _, b := range x.blocks[room] {
		if Overlaps(start, end, b.StartTime, b.EndTime) {
			return true
		}
	}
	return false
}
