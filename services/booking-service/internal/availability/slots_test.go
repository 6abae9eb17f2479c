package availability

import (
	"testing"

	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/model"
)

var clk = model.MustClock

func TestOverlaps_HalfOpen(t *testing.T) {
	if Overlaps(clk("09:00"), clk("09:30"), clk("09:30"), clk("10:00")) {
		t.Fatal("adjacent ranges must not overlap")
	}
	if !Overlaps(clk("09:00"), clk("10:00"), clk("09:30"), clk("09:45")) {
		t.Fatal("contained range must overlap")
	}
	if !Overlaps(clk("09:00"), clk("10:00"), clk("09:59"), clk("11:00")) {
		t.Fatal("one shared minute is an overlap")
	}
}

func TestOverlaps_Symmetric(t *testing.T) {
	ranges := []Interval{
		{clk("09:00"), clk("09:30")},
		{clk("09:30"), clk("10:00")},
		{clk("09:15"), clk("09:45")},
		{clk("08:00"), clk("12:00")},
		{clk("11:00"), clk("11:30")},
	}
	for _, a := range ranges {
		for _, b := range ranges {
			if a.Overlaps(b) != b.Overlaps(a) {
				t.Fatalf("asymmetric overlap for %v and %v", a, b)
			}
		}
	}
}

func newTestIndex() *Index {
	return NewIndex(model.DaySnapshot{
		Bookings: []model.Booking{
			{ID: "late", Room: "Room 1", StartTime: clk("13:00"), EndTime: clk("14:00")},
			{ID: "b1", Room: "Room 1", StartTime: clk("10:00"), EndTime: clk("11:00")},
		},
		RoomBlocks: []model.RoomBlock{
			{Room: "Room 2", StartTime: clk("09:00"), EndTime: clk("09:30"), Instructor: "Park"},
		},
	})
}

func TestIndex_BookingAt(t *testing.T) {
	x := newTestIndex()

	b, ok := x.BookingAt("Room 1", clk("10:30"))
	if !ok || b.ID != "b1" {
		t.Fatalf("expected b1 at 10:30, got %+v %v", b, ok)
	}
	if _, ok := x.BookingAt("Room 1", clk("11:00")); ok {
		t.Fatal("end time is exclusive")
	}
	if b, ok := x.BookingAt("Room 1", clk("13:30")); !ok || b.ID != "late" {
		t.Fatalf("expected late booking, got %+v %v", b, ok)
	}
	if _, ok := x.BookingAt("Room 2", clk("10:30")); ok {
		t.Fatal("room 2 has no bookings")
	}
}

func TestIndex_BlockAt(t *testing.T) {
	x := newTestIndex()
	blk, ok := x.BlockAt("Room 2", clk("09:00"))
	if !ok || blk.Instructor != "Park" {
		t.Fatalf("expected Park's block, got %+v %v", blk, ok)
	}
	if _, ok := x.BlockAt("Room 2", clk("09:30")); ok {
		t.Fatal("block end is exclusive")
	}
}

func TestIndex_Occupied(t *testing.T) {
	x := newTestIndex()
	if !x.Occupied("Room 1", clk("10:30"), clk("11:30")) {
		t.Fatal("expected overlap with b1")
	}
	if x.Occupied("Room 1", clk("11:00"), clk("13:00")) {
		t.Fatal("gap between bookings is free")
	}
	if !x.Occupied("Room 2", clk("08:30"), clk("09:15")) {
		t.Fatal("blocks count as occupied")
	}
	if len(x.Bookings("Room 1")) != 2 || x.Bookings("Room 1")[0].ID != "b1" {
		t.Fatal("bookings should be ordered by start time")
	}
	if len(x.Blocks("Room 2")) != 1 || len(x.Blocks("Room 1")) != 0 {
		t.Fatal("blocks should be grouped by room")
	}
}

func TestIndex_ReturnsCopies(t *testing.T) {
	x := newTestIndex()
	x.Bookings("Room 1")[0].ID = "changed"
	x.Blocks("Room 2")[0].Instructor = "changed"

	if b, ok := x.BookingAt("Room 1", clk("10:00")); !ok || b.ID != "b1" {
		t.Fatalf("index changed through Bookings: %+v", b)
	}
	if blk, ok := x.BlockAt("Room 2", clk("09:00")); !ok || blk.Instructor != "Park" {
		t.Fatalf("index changed through Blocks: %+v", blk)
	}
}
